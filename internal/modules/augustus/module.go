package augustus

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"github.com/paraswap/paraswap-subgraph/internal/feeshare"
	"github.com/paraswap/paraswap-subgraph/internal/metrics"
	"github.com/paraswap/paraswap-subgraph/internal/modules/core"
)

// ModuleType is the manifest type handled by this package
const ModuleType = "augustus"

// Augustus releases a manifest can target
const (
	Release020 = "0.2.0"
	Release2   = "2.0.0"
	Release4   = "4.0.0"
	Release5   = "5.x"
)

// Config represents the manifest context of an Augustus module
type Config struct {
	// Release selects the event layouts and the version stamped on records
	Release string `yaml:"release"`
	// GasFromLimit records the transaction gas limit instead of gas used
	GasFromLimit bool `yaml:"gasFromLimit"`
}

type eventHandlerFunc func(ctx context.Context, m *Module, event *core.ParsedEvent) error

type callHandlerFunc func(ctx context.Context, m *Module, call *core.ParsedCall) error

type eventKey struct {
	address common.Address
	topic   common.Hash
}

type callKey struct {
	address  common.Address
	selector [4]byte
}

type boundEvent struct {
	name     string
	handler  eventHandlerFunc
	scheme   feeshare.Scheme
	minBlock uint64
}

type boundCall struct {
	name     string
	handler  callHandlerFunc
	minBlock uint64
}

// Module indexes one Augustus release described by a manifest
type Module struct {
	manifest *core.Manifest
	config   Config
	engine   *feeshare.Engine
	stores   Stores
	notifier Notifier
	logger   zerolog.Logger

	parser       *core.EventParser
	events       map[eventKey]boundEvent
	calls        map[callKey]boundCall
	eventFilters []core.EventFilter
	callFilters  []core.CallFilter
	startBlock   uint64
}

// NewModule builds a module from its manifest and binds the manifest handlers
// to the release ABI.
func NewModule(manifest *core.Manifest, stores Stores, engine *feeshare.Engine, logger zerolog.Logger) (*Module, error) {
	if manifest == nil {
		return nil, errors.New("augustus: nil manifest")
	}

	var config Config
	if err := manifest.DecodeContext(&config); err != nil {
		return nil, err
	}
	switch config.Release {
	case Release020, Release2, Release4, Release5:
	default:
		return nil, fmt.Errorf("module %s: unknown Augustus release %q", manifest.Name, config.Release)
	}

	if engine == nil {
		engine = feeshare.NewEngine(feeshare.DefaultPolicy())
	}

	m := &Module{
		manifest:   manifest,
		config:     config,
		engine:     engine,
		stores:     stores,
		logger:     logger.With().Str("module", manifest.Name).Logger(),
		parser:     core.NewEventParser(),
		events:     make(map[eventKey]boundEvent),
		calls:      make(map[callKey]boundCall),
		startBlock: manifest.StartBlock(),
	}

	if err := m.bindHandlers(); err != nil {
		return nil, fmt.Errorf("module %s: %w", manifest.Name, err)
	}

	return m, nil
}

// SetNotifier registers a receiver for ledger credits
func (m *Module) SetNotifier(n Notifier) {
	m.notifier = n
}

func (m *Module) bindHandlers() error {
	for _, ds := range m.manifest.DataSources {
		abiJSON, ok := contractABIs[ds.Source.ABI]
		if !ok {
			return fmt.Errorf("data source %s: unknown ABI %s", ds.Name, ds.Source.ABI)
		}
		contractABI, err := abi.JSON(strings.NewReader(abiJSON))
		if err != nil {
			return fmt.Errorf("data source %s: failed to parse ABI %s: %w", ds.Name, ds.Source.ABI, err)
		}

		if ds.Source.Address == nil || !common.IsHexAddress(*ds.Source.Address) {
			return fmt.Errorf("data source %s: a contract address is required", ds.Name)
		}
		address := common.HexToAddress(*ds.Source.Address)
		m.parser.AddContract(address, &contractABI)

		var dsStart uint64
		if ds.Source.StartBlock != nil {
			dsStart = *ds.Source.StartBlock
		}

		for _, h := range ds.Mapping.EventHandlers {
			topic, err := core.EventTopic(h.Event)
			if err != nil {
				return err
			}
			event, ok := m.parser.Event(topic)
			if !ok {
				return fmt.Errorf("data source %s: event %s is not part of %s", ds.Name, h.Event, ds.Source.ABI)
			}
			handler, ok := eventHandlers[h.Handler]
			if !ok {
				return fmt.Errorf("data source %s: unknown event handler %s", ds.Name, h.Handler)
			}
			scheme, err := handlerScheme(h)
			if err != nil {
				return fmt.Errorf("data source %s: %w", ds.Name, err)
			}

			minBlock := dsStart
			if h.Filter != nil && h.Filter.MinBlock != nil && *h.Filter.MinBlock > minBlock {
				minBlock = *h.Filter.MinBlock
			}

			m.events[eventKey{address: address, topic: topic}] = boundEvent{
				name:     event.Name,
				handler:  handler,
				scheme:   scheme,
				minBlock: minBlock,
			}
			m.eventFilters = append(m.eventFilters, core.EventFilter{
				Address: strings.ToLower(address.Hex()),
				Topic0:  topic.Hex(),
			})
		}

		for _, h := range ds.Mapping.CallHandlers {
			selector, err := core.MethodSelector(h.Function)
			if err != nil {
				return err
			}
			method, ok := m.parser.Method(selector)
			if !ok {
				return fmt.Errorf("data source %s: function %s is not part of %s", ds.Name, h.Function, ds.Source.ABI)
			}
			handler, ok := callHandlers[h.Handler]
			if !ok {
				return fmt.Errorf("data source %s: unknown call handler %s", ds.Name, h.Handler)
			}

			m.calls[callKey{address: address, selector: selector}] = boundCall{
				name:     method.RawName,
				handler:  handler,
				minBlock: dsStart,
			}
			m.callFilters = append(m.callFilters, core.CallFilter{
				Address:  strings.ToLower(address.Hex()),
				Selector: "0x" + hex.EncodeToString(selector[:]),
			})
		}
	}

	return nil
}

// Name returns the module name
func (m *Module) Name() string {
	return m.manifest.Name
}

// Version returns the module version
func (m *Module) Version() string {
	return m.manifest.Version
}

// Manifest returns the module manifest
func (m *Module) Manifest() *core.Manifest {
	return m.manifest
}

// Release returns the Augustus release this module indexes
func (m *Module) Release() string {
	return m.config.Release
}

// Initialize checks that the module has somewhere to write to
func (m *Module) Initialize(ctx context.Context) error {
	if m.stores.Swaps == nil || m.stores.Source == nil || m.stores.State == nil {
		return errors.New("augustus: swap, source and state stores are required")
	}

	m.logger.Info().
		Str("release", m.config.Release).
		Int("event_handlers", len(m.events)).
		Int("call_handlers", len(m.calls)).
		Uint64("start_block", m.startBlock).
		Msg("Augustus module initialized")
	return nil
}

// GetEventFilters returns the event filters this module is interested in
func (m *Module) GetEventFilters() []core.EventFilter {
	return m.eventFilters
}

// GetCallFilters returns the call filters this module is interested in
func (m *Module) GetCallFilters() []core.CallFilter {
	return m.callFilters
}

// GetStartBlock returns the lowest start block of the data sources
func (m *Module) GetStartBlock() uint64 {
	return m.startBlock
}

// HandleEvent decodes a log and runs its handler. Logs that cannot be decoded
// are skipped; only storage failures are returned.
func (m *Module) HandleEvent(ctx context.Context, log *types.Log) error {
	if len(log.Topics) == 0 || log.Removed {
		return nil
	}

	bound, ok := m.events[eventKey{address: log.Address, topic: log.Topics[0]}]
	if !ok {
		m.logger.Debug().
			Str("address", log.Address.Hex()).
			Str("topic0", log.Topics[0].Hex()).
			Msg("No handler for event")
		return nil
	}
	if log.BlockNumber < bound.minBlock {
		return nil
	}

	event, err := m.parser.ParseEvent(log)
	if err != nil {
		m.logger.Warn().
			Err(err).
			Str("event", bound.name).
			Str("tx", log.TxHash.Hex()).
			Uint("log_index", log.Index).
			Msg("Skipping undecodable event")
		metrics.SkippedInputs.WithLabelValues(m.Name(), "undecodable").Inc()
		return nil
	}

	if err := bound.handler(ctx, m, event); err != nil {
		if errors.Is(err, errMalformed) {
			m.logger.Warn().
				Err(err).
				Str("event", bound.name).
				Str("tx", log.TxHash.Hex()).
				Uint("log_index", log.Index).
				Msg("Skipping malformed event")
			metrics.SkippedInputs.WithLabelValues(m.Name(), "malformed").Inc()
			return nil
		}
		return fmt.Errorf("%s handler failed for %s-%d: %w", bound.name, log.TxHash.Hex(), log.Index, err)
	}

	return nil
}

// HandleCall decodes the input of a call and runs its handler
func (m *Module) HandleCall(ctx context.Context, call *core.Call) error {
	selector, ok := call.Selector()
	if !ok {
		return nil
	}

	bound, ok := m.calls[callKey{address: call.To, selector: selector}]
	if !ok {
		return nil
	}
	if call.BlockNumber < bound.minBlock {
		return nil
	}

	parsed, err := m.parser.ParseCall(call)
	if err != nil {
		m.logger.Warn().
			Err(err).
			Str("method", bound.name).
			Str("tx", call.TxHash.Hex()).
			Msg("Skipping undecodable call")
		metrics.SkippedInputs.WithLabelValues(m.Name(), "undecodable").Inc()
		return nil
	}

	if err := bound.handler(ctx, m, parsed); err != nil {
		if errors.Is(err, errMalformed) {
			m.logger.Error().
				Err(err).
				Str("method", bound.name).
				Str("tx", call.TxHash.Hex()).
				Msg("Skipping malformed call")
			metrics.SkippedInputs.WithLabelValues(m.Name(), "malformed").Inc()
			return nil
		}
		return fmt.Errorf("%s handler failed for %s: %w", bound.name, call.TxHash.Hex(), err)
	}

	return nil
}

// Backfill replays stored logs and calls of [fromBlock, toBlock] in chain order
func (m *Module) Backfill(ctx context.Context, fromBlock, toBlock uint64) error {
	if fromBlock < m.startBlock {
		fromBlock = m.startBlock
	}
	if fromBlock > toBlock {
		return nil
	}

	start := time.Now()
	logs, err := m.stores.Source.LogsInRange(ctx, fromBlock, toBlock, m.eventFilters)
	if err != nil {
		return fmt.Errorf("failed to load logs for backfill: %w", err)
	}

	var calls []*core.Call
	if len(m.callFilters) > 0 {
		calls, err = m.stores.Source.CallsInRange(ctx, fromBlock, toBlock, m.callFilters)
		if err != nil {
			return fmt.Errorf("failed to load calls for backfill: %w", err)
		}
	}

	for _, item := range mergeChainOrder(logs, calls) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if item.log != nil {
			err = m.HandleEvent(ctx, item.log)
		} else {
			err = m.HandleCall(ctx, item.call)
		}
		if err != nil {
			return err
		}
	}

	if err := m.UpdateSyncState(ctx, toBlock); err != nil {
		return err
	}

	m.logger.Info().
		Uint64("from", fromBlock).
		Uint64("to", toBlock).
		Int("events", len(logs)).
		Int("calls", len(calls)).
		Dur("elapsed", time.Since(start)).
		Msg("Completed Augustus backfill")
	return nil
}

// GetSyncState returns the last processed block for this module
func (m *Module) GetSyncState(ctx context.Context) (uint64, error) {
	block, err := m.stores.State.ModuleBlock(ctx, m.Name())
	if err != nil {
		return 0, fmt.Errorf("failed to get sync state: %w", err)
	}
	return block, nil
}

// UpdateSyncState updates the last processed block for this module
func (m *Module) UpdateSyncState(ctx context.Context, blockNumber uint64) error {
	if err := m.stores.State.SetModuleBlock(ctx, m.Name(), blockNumber); err != nil {
		return fmt.Errorf("failed to update sync state: %w", err)
	}
	return nil
}

type chainItem struct {
	log  *types.Log
	call *core.Call
}

func (c chainItem) position() (uint64, uint, int) {
	if c.log != nil {
		return c.log.BlockNumber, c.log.TxIndex, int(c.log.Index)
	}
	// a call sorts ahead of the logs it emitted
	return c.call.BlockNumber, c.call.TxIndex, -1
}

// mergeChainOrder interleaves logs and calls by block, transaction and log index
func mergeChainOrder(logs []*types.Log, calls []*core.Call) []chainItem {
	items := make([]chainItem, 0, len(logs)+len(calls))
	for _, l := range logs {
		items = append(items, chainItem{log: l})
	}
	for _, c := range calls {
		items = append(items, chainItem{call: c})
	}

	sort.SliceStable(items, func(i, j int) bool {
		bi, ti, li := items[i].position()
		bj, tj, lj := items[j].position()
		if bi != bj {
			return bi < bj
		}
		if ti != tj {
			return ti < tj
		}
		return li < lj
	})
	return items
}
