package core

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Module represents a processing module that handles specific contract events
// Inspired by The Graph Protocol's subgraph pattern
type Module interface {
	// Name returns the unique name of the module
	Name() string

	// Version returns the module version
	Version() string

	// Manifest returns the module's manifest configuration
	Manifest() *Manifest

	// Initialize prepares any state the module needs before receiving events
	Initialize(ctx context.Context) error

	// HandleEvent processes a single event log that matches this module's filters
	HandleEvent(ctx context.Context, event *types.Log) error

	// GetEventFilters returns the event filters this module is interested in
	GetEventFilters() []EventFilter

	// GetStartBlock returns the block number from which this module should start processing
	GetStartBlock() uint64

	// Backfill processes historical events from the event_logs table
	Backfill(ctx context.Context, fromBlock, toBlock uint64) error

	// GetSyncState returns the last processed block for this module
	GetSyncState(ctx context.Context) (uint64, error)

	// UpdateSyncState updates the last processed block for this module
	UpdateSyncState(ctx context.Context, blockNumber uint64) error
}

// CallModule extends Module with handlers for top-level contract calls
type CallModule interface {
	Module

	// HandleCall processes a transaction whose input matches one of the call filters
	HandleCall(ctx context.Context, call *Call) error

	// GetCallFilters returns the (address, selector) pairs this module handles
	GetCallFilters() []CallFilter
}

// EventFilter defines what events a module wants to receive
type EventFilter struct {
	// Address is the contract address to watch (optional, empty = all addresses)
	Address string `yaml:"address,omitempty"`

	// Topic0 is the event signature hash (optional, empty = all events)
	Topic0 string `yaml:"topic0,omitempty"`

	// Topics are additional indexed parameters to filter by
	Topics []string `yaml:"topics,omitempty"`
}

// CallFilter defines which contract calls a module wants to receive
type CallFilter struct {
	Address  string `yaml:"address,omitempty"`
	Selector string `yaml:"selector"` // 0x-prefixed 4-byte method id
}

// Call is a successful transaction sent to a watched contract
type Call struct {
	TxHash      common.Hash
	TxIndex     uint
	BlockNumber uint64
	BlockHash   common.Hash
	Timestamp   uint64

	From     common.Address
	To       common.Address
	Input    []byte
	GasLimit uint64
	GasUsed  uint64
	GasPrice *big.Int
}

// Selector returns the first four bytes of the call input.
func (c *Call) Selector() ([4]byte, bool) {
	var sel [4]byte
	if len(c.Input) < 4 {
		return sel, false
	}
	copy(sel[:], c.Input[:4])
	return sel, true
}

// ModuleState represents the current processing state of a module
type ModuleState struct {
	ModuleName         string  `db:"module_name"`
	Version            string  `db:"version"`
	LastProcessedBlock uint64  `db:"last_processed_block"`
	Status             string  `db:"status"`
	BackfillFromBlock  *uint64 `db:"backfill_from_block"`
	BackfillToBlock    *uint64 `db:"backfill_to_block"`
	Metadata           []byte  `db:"metadata"` // JSON
	CreatedAt          int64   `db:"created_at"`
	UpdatedAt          int64   `db:"updated_at"`
}

// ModuleStatus represents the possible states of a module
type ModuleStatus string

const (
	StatusActive      ModuleStatus = "active"
	StatusBackfilling ModuleStatus = "backfilling"
	StatusPaused      ModuleStatus = "paused"
	StatusError       ModuleStatus = "error"
)

// StateStore persists module_state rows for the registry
type StateStore interface {
	InitModuleState(ctx context.Context, name, version string, startBlock uint64) error
	GetModuleState(ctx context.Context, name string) (*ModuleState, error)
	SetModuleStatus(ctx context.Context, name string, status ModuleStatus) error
	SetModuleBlock(ctx context.Context, name string, blockNumber uint64) error
	SetBackfillRange(ctx context.Context, name string, fromBlock, toBlock *uint64) error
}
