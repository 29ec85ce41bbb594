package augustus

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/paraswap/paraswap-subgraph/internal/database"
	"github.com/paraswap/paraswap-subgraph/internal/modules/core"
)

// SwapStore persists swap and fee records
type SwapStore interface {
	// RecordSwap stores swap and applies credit if the swap was not stored
	// before. It returns the updated ledger, or nil when nothing was credited.
	RecordSwap(ctx context.Context, swap *database.Swap, credit *database.RewardCredit) (*database.RewardLedger, error)
	SaveFee(ctx context.Context, fee *database.Fee) error
}

// SourceStore reads raw chain data written by the ingester
type SourceStore interface {
	// TxContext returns database.ErrNotFound when the transaction is not stored
	TxContext(ctx context.Context, txHash common.Hash) (*database.TxContext, error)
	LogsInRange(ctx context.Context, fromBlock, toBlock uint64, filters []core.EventFilter) ([]*types.Log, error)
	CallsInRange(ctx context.Context, fromBlock, toBlock uint64, filters []core.CallFilter) ([]*core.Call, error)
}

// StateStore tracks the last processed block of a module
type StateStore interface {
	ModuleBlock(ctx context.Context, name string) (uint64, error)
	SetModuleBlock(ctx context.Context, name string, blockNumber uint64) error
}

// Notifier is told about every ledger credit
type Notifier interface {
	NotifyReward(ledger *database.RewardLedger, swap *database.Swap)
}

// Stores groups the storage a module needs
type Stores struct {
	Swaps  SwapStore
	Source SourceStore
	State  StateStore
}
