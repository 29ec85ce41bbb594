package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
)

// routeKey matches a log or call on an optional address and an optional
// topic0/selector. Empty fields are wildcards.
type routeKey struct {
	address string
	id      string
}

// ModuleRegistry manages the lifecycle of indexer modules
type ModuleRegistry struct {
	modules map[string]Module
	store   StateStore
	logger  zerolog.Logger

	// Event and call routing
	eventRoutes map[routeKey][]string
	callRoutes  map[routeKey][]string

	statusMu sync.Mutex
	statuses map[string]ModuleStatus

	// Lifecycle management
	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewModuleRegistry creates a new module registry
func NewModuleRegistry(store StateStore, logger zerolog.Logger) *ModuleRegistry {
	ctx, cancel := context.WithCancel(context.Background())

	return &ModuleRegistry{
		modules:     make(map[string]Module),
		store:       store,
		logger:      logger.With().Str("component", "module_registry").Logger(),
		eventRoutes: make(map[routeKey][]string),
		callRoutes:  make(map[routeKey][]string),
		statuses:    make(map[string]ModuleStatus),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// RegisterModule registers a new module
func (r *ModuleRegistry) RegisterModule(module Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := module.Name()

	// Check if module is already registered
	if _, exists := r.modules[name]; exists {
		return fmt.Errorf("module %s is already registered", name)
	}

	// Validate module manifest
	manifest := module.Manifest()
	if manifest == nil {
		return fmt.Errorf("module %s has no manifest", name)
	}

	if err := manifest.ValidateManifest(); err != nil {
		return fmt.Errorf("module %s has invalid manifest: %w", name, err)
	}

	// Initialize the module
	if err := module.Initialize(r.ctx); err != nil {
		return fmt.Errorf("failed to initialize module %s: %w", name, err)
	}

	// Initialize or update module state in database
	if err := r.store.InitModuleState(r.ctx, name, module.Version(), module.GetStartBlock()); err != nil {
		r.logger.Error().Err(err).Str("module", name).Msg("Failed to initialize module state")
		return fmt.Errorf("failed to initialize module state for %s: %w", name, err)
	}

	status := StatusActive
	if state, err := r.store.GetModuleState(r.ctx, name); err == nil && state.Status != "" {
		status = ModuleStatus(state.Status)
	}

	// Register event filters
	filters := module.GetEventFilters()
	for _, filter := range filters {
		key := routeKey{address: strings.ToLower(filter.Address), id: strings.ToLower(filter.Topic0)}
		r.eventRoutes[key] = append(r.eventRoutes[key], name)
		r.logger.Debug().
			Str("module", name).
			Str("address", key.address).
			Str("topic0", key.id).
			Msg("Registered event filter")
	}

	callFilters := 0
	if cm, ok := module.(CallModule); ok {
		for _, filter := range cm.GetCallFilters() {
			key := routeKey{address: strings.ToLower(filter.Address), id: strings.ToLower(filter.Selector)}
			r.callRoutes[key] = append(r.callRoutes[key], name)
			callFilters++
			r.logger.Debug().
				Str("module", name).
				Str("address", key.address).
				Str("selector", key.id).
				Msg("Registered call filter")
		}
	}

	// Store module
	r.modules[name] = module
	r.setStatus(name, status)

	r.logger.Info().
		Str("module", name).
		Str("version", module.Version()).
		Str("status", string(status)).
		Int("filters", len(filters)).
		Int("call_filters", callFilters).
		Msg("Module registered successfully")

	return nil
}

// UnregisterModule removes a module from the registry
func (r *ModuleRegistry) UnregisterModule(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[name]; !exists {
		return fmt.Errorf("module %s is not registered", name)
	}

	for _, routes := range []map[routeKey][]string{r.eventRoutes, r.callRoutes} {
		for key, moduleNames := range routes {
			routes[key] = removeFromSlice(moduleNames, name)
			if len(routes[key]) == 0 {
				delete(routes, key)
			}
		}
	}

	// Remove module
	delete(r.modules, name)

	r.statusMu.Lock()
	delete(r.statuses, name)
	r.statusMu.Unlock()

	r.logger.Info().Str("module", name).Msg("Module unregistered")
	return nil
}

// ProcessEvent routes an event to interested modules. Handler failures mark
// the module as errored and are returned joined.
func (r *ModuleRegistry) ProcessEvent(ctx context.Context, log *types.Log) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.running {
		return nil // Skip processing if registry is not running
	}
	if len(log.Topics) == 0 {
		return nil
	}

	topic0 := strings.ToLower(log.Topics[0].Hex())
	interestedModules := r.findInterested(r.eventRoutes, strings.ToLower(log.Address.Hex()), topic0)
	if len(interestedModules) == 0 {
		r.logger.Debug().
			Str("topic0", topic0).
			Str("address", log.Address.Hex()).
			Msg("No modules interested in event")
		return nil
	}

	var errs []error
	for _, moduleName := range interestedModules {
		module := r.modules[moduleName]
		if !r.shouldProcess(module, log.BlockNumber) {
			continue
		}

		if err := module.HandleEvent(ctx, log); err != nil {
			r.logger.Error().
				Err(err).
				Str("module", moduleName).
				Uint64("block", log.BlockNumber).
				Str("tx_hash", log.TxHash.Hex()).
				Msg("Module failed to process event")

			r.markError(moduleName)
			errs = append(errs, fmt.Errorf("module %s: %w", moduleName, err))
		}
	}

	return errors.Join(errs...)
}

// ProcessCall routes a top-level call to interested call modules
func (r *ModuleRegistry) ProcessCall(ctx context.Context, call *Call) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.running {
		return nil
	}

	sel, ok := call.Selector()
	if !ok {
		return nil
	}
	selector := fmt.Sprintf("0x%x", sel[:])

	interestedModules := r.findInterested(r.callRoutes, strings.ToLower(call.To.Hex()), selector)
	if len(interestedModules) == 0 {
		return nil
	}

	var errs []error
	for _, moduleName := range interestedModules {
		cm, ok := r.modules[moduleName].(CallModule)
		if !ok || !r.shouldProcess(cm, call.BlockNumber) {
			continue
		}

		if err := cm.HandleCall(ctx, call); err != nil {
			r.logger.Error().
				Err(err).
				Str("module", moduleName).
				Uint64("block", call.BlockNumber).
				Str("tx_hash", call.TxHash.Hex()).
				Msg("Module failed to process call")

			r.markError(moduleName)
			errs = append(errs, fmt.Errorf("module %s: %w", moduleName, err))
		}
	}

	return errors.Join(errs...)
}

// shouldProcess checks the module status and start block
func (r *ModuleRegistry) shouldProcess(module Module, blockNumber uint64) bool {
	name := module.Name()
	status := r.getStatus(name)
	if status != StatusActive && status != StatusBackfilling {
		r.logger.Debug().
			Str("module", name).
			Str("status", string(status)).
			Msg("Skipping input for inactive module")
		return false
	}
	return blockNumber >= module.GetStartBlock()
}

// findInterested looks up exact, address-only and id-only routes
func (r *ModuleRegistry) findInterested(routes map[routeKey][]string, address, id string) []string {
	var interested []string
	seen := make(map[string]bool)

	for _, key := range []routeKey{
		{address: address, id: id},
		{address: address},
		{id: id},
	} {
		for _, name := range routes[key] {
			if !seen[name] {
				interested = append(interested, name)
				seen[name] = true
			}
		}
	}

	return interested
}

// EventFilters returns every registered event filter
func (r *ModuleRegistry) EventFilters() []EventFilter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	filters := make([]EventFilter, 0, len(r.eventRoutes))
	for key := range r.eventRoutes {
		filters = append(filters, EventFilter{Address: key.address, Topic0: key.id})
	}
	sort.Slice(filters, func(i, j int) bool {
		if filters[i].Address != filters[j].Address {
			return filters[i].Address < filters[j].Address
		}
		return filters[i].Topic0 < filters[j].Topic0
	})
	return filters
}

// CallFilters returns every registered call filter
func (r *ModuleRegistry) CallFilters() []CallFilter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	filters := make([]CallFilter, 0, len(r.callRoutes))
	for key := range r.callRoutes {
		filters = append(filters, CallFilter{Address: key.address, Selector: key.id})
	}
	sort.Slice(filters, func(i, j int) bool {
		if filters[i].Address != filters[j].Address {
			return filters[i].Address < filters[j].Address
		}
		return filters[i].Selector < filters[j].Selector
	})
	return filters
}

// Start begins the module registry lifecycle
func (r *ModuleRegistry) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("module registry is already running")
	}

	r.running = true
	r.logger.Info().Int("modules", len(r.modules)).Msg("Module registry started")

	return nil
}

// Stop gracefully stops the module registry
func (r *ModuleRegistry) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return nil
	}

	r.running = false
	r.cancel()

	r.logger.Info().Msg("Module registry stopped")
	return nil
}

// GetModule returns a registered module by name
func (r *ModuleRegistry) GetModule(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	module, exists := r.modules[name]
	return module, exists
}

// ListModules returns all registered module names, sorted
func (r *ModuleRegistry) ListModules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// GetModuleState returns the current state of a module
func (r *ModuleRegistry) GetModuleState(ctx context.Context, name string) (*ModuleState, error) {
	state, err := r.store.GetModuleState(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get module state for %s: %w", name, err)
	}
	return state, nil
}

// ModuleStatus returns the cached status of a module
func (r *ModuleRegistry) ModuleStatus(name string) ModuleStatus {
	return r.getStatus(name)
}

// SetModuleStatus persists and caches a new status, e.g. to pause a module
// or to resume it after an error.
func (r *ModuleRegistry) SetModuleStatus(ctx context.Context, name string, status ModuleStatus) error {
	if _, ok := r.GetModule(name); !ok {
		return fmt.Errorf("module %s not found", name)
	}
	if err := r.store.SetModuleStatus(ctx, name, status); err != nil {
		return fmt.Errorf("failed to set status of %s: %w", name, err)
	}
	r.setStatus(name, status)
	return nil
}

// Backfill replays stored history for a module and waits for it to finish
func (r *ModuleRegistry) Backfill(ctx context.Context, name string, fromBlock, toBlock uint64) error {
	module, exists := r.GetModule(name)
	if !exists {
		return fmt.Errorf("module %s not found", name)
	}

	if err := r.store.SetBackfillRange(ctx, name, &fromBlock, &toBlock); err != nil {
		return fmt.Errorf("failed to update module state for backfill: %w", err)
	}
	if err := r.SetModuleStatus(ctx, name, StatusBackfilling); err != nil {
		return err
	}

	r.logger.Info().
		Str("module", name).
		Uint64("from", fromBlock).
		Uint64("to", toBlock).
		Msg("Starting module backfill")

	start := time.Now()
	if err := module.Backfill(ctx, fromBlock, toBlock); err != nil {
		r.logger.Error().
			Err(err).
			Str("module", name).
			Dur("duration", time.Since(start)).
			Msg("Module backfill failed")

		if serr := r.SetModuleStatus(context.WithoutCancel(ctx), name, StatusError); serr != nil {
			r.logger.Error().Err(serr).Str("module", name).Msg("Failed to update module status to error")
		}
		return fmt.Errorf("backfill of %s failed: %w", name, err)
	}

	r.logger.Info().
		Str("module", name).
		Uint64("blocks", toBlock-fromBlock+1).
		Dur("duration", time.Since(start)).
		Msg("Module backfill completed")

	if err := r.SetModuleStatus(ctx, name, StatusActive); err != nil {
		return err
	}
	if err := r.store.SetBackfillRange(ctx, name, nil, nil); err != nil {
		return fmt.Errorf("failed to clear backfill range for %s: %w", name, err)
	}
	return nil
}

func (r *ModuleRegistry) getStatus(name string) ModuleStatus {
	r.statusMu.Lock()
	defer r.statusMu.Unlock()
	return r.statuses[name]
}

func (r *ModuleRegistry) setStatus(name string, status ModuleStatus) {
	r.statusMu.Lock()
	r.statuses[name] = status
	r.statusMu.Unlock()
}

// markError updates module status to error
func (r *ModuleRegistry) markError(name string) {
	r.setStatus(name, StatusError)
	if err := r.store.SetModuleStatus(r.ctx, name, StatusError); err != nil {
		r.logger.Error().Err(err).Str("module", name).Msg("Failed to update module status to error")
	}
}

// Helper function to remove an item from a slice
func removeFromSlice(slice []string, item string) []string {
	result := make([]string, 0, len(slice))
	for _, s := range slice {
		if s != item {
			result = append(result, s)
		}
	}
	return result
}
