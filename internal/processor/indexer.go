package processor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/paraswap/paraswap-subgraph/internal/config"
	"github.com/paraswap/paraswap-subgraph/internal/database"
	"github.com/paraswap/paraswap-subgraph/internal/feeshare"
	"github.com/paraswap/paraswap-subgraph/internal/modules/augustus"
	"github.com/paraswap/paraswap-subgraph/internal/modules/core"
	"github.com/paraswap/paraswap-subgraph/internal/modules/loader"
	"github.com/paraswap/paraswap-subgraph/internal/realtime"
	"github.com/paraswap/paraswap-subgraph/internal/scheduler"
)

// Indexer wires the Augustus modules to the stored chain data and keeps them
// moving forward
type Indexer struct {
	config *config.Config
	db     *database.Database

	swaps     *database.SwapRepository
	registry  *core.ModuleRegistry
	poller    *scheduler.Poller
	publisher *realtime.Publisher
	metrics   *http.Server

	logger zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewIndexer connects to the database, applies migrations and registers a
// module for every manifest in the configured directory
func NewIndexer(cfg *config.Config, logger zerolog.Logger) (*Indexer, error) {
	ctx, cancel := context.WithCancel(context.Background())

	if err := database.RunMigrations(ctx, &cfg.Database, logger); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	i := &Indexer{
		config: cfg,
		db:     db,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	if err := i.setup(); err != nil {
		i.close()
		return nil, err
	}
	return i, nil
}

func (i *Indexer) setup() error {
	manifests, err := loader.NewManifestLoader(i.logger).LoadFromDirectory(i.config.Modules.ManifestsDir)
	if err != nil {
		return fmt.Errorf("failed to load manifests: %w", err)
	}

	var notifier augustus.Notifier
	if i.config.Realtime.Enabled {
		i.publisher = realtime.NewPublisher(realtime.PublishConfig{
			APIURL: i.config.Realtime.APIURL,
			APIKey: i.config.Realtime.APIKey,
		}, i.logger)
		notifier = i.publisher
	}

	state := database.NewModuleStateRepository(i.db)
	i.swaps = database.NewSwapRepository(i.db)
	stores := augustus.Stores{
		Swaps:  i.swaps,
		Source: database.NewSourceRepository(i.db),
		State:  state,
	}

	modules, err := BuildModules(manifests, stores, feeshare.NewEngine(i.config.FeePolicy()), notifier, i.logger)
	if err != nil {
		return err
	}

	i.registry = core.NewModuleRegistry(state, i.logger)
	for _, module := range modules {
		if err := i.registry.RegisterModule(module); err != nil {
			return err
		}
	}

	i.poller, err = scheduler.NewPoller(i.registry, i.db, scheduler.PollerConfig{
		BatchSize:    uint64(i.config.Processor.BatchSize),
		Workers:      int64(i.config.Processor.Workers),
		PollInterval: i.config.Processor.PollInterval,
	}, i.logger)
	if err != nil {
		return fmt.Errorf("failed to create poller: %w", err)
	}
	return nil
}

// BuildModules creates a module for each manifest according to its type
func BuildModules(manifests []*core.Manifest, stores augustus.Stores, engine *feeshare.Engine, notifier augustus.Notifier, logger zerolog.Logger) ([]core.Module, error) {
	modules := make([]core.Module, 0, len(manifests))
	for _, manifest := range manifests {
		switch manifest.Type {
		case augustus.ModuleType:
			module, err := augustus.NewModule(manifest, stores, engine, logger)
			if err != nil {
				return nil, fmt.Errorf("failed to create module %s: %w", manifest.Name, err)
			}
			if notifier != nil {
				module.SetNotifier(notifier)
			}
			modules = append(modules, module)
		default:
			return nil, fmt.Errorf("module %s has unknown type %q", manifest.Name, manifest.Type)
		}
	}
	return modules, nil
}

// Start runs the poller and blocks until a shutdown signal arrives
func (i *Indexer) Start() error {
	i.logger.Info().Strs("modules", i.registry.ListModules()).Msg("Starting indexer")

	if err := i.registry.Start(); err != nil {
		return err
	}
	if err := i.poller.Start(i.ctx); err != nil {
		return fmt.Errorf("failed to start poller: %w", err)
	}

	if i.config.Metrics.Addr != "" {
		i.serveMetrics()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		i.logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-i.ctx.Done():
		i.logger.Info().Msg("Context cancelled")
	}

	i.Stop()
	return nil
}

func (i *Indexer) serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle(i.config.Metrics.Path, promhttp.Handler())
	i.metrics = &http.Server{
		Addr:              i.config.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		i.logger.Info().Str("addr", i.config.Metrics.Addr).Str("path", i.config.Metrics.Path).Msg("Serving metrics")
		if err := i.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			i.logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
}

// Backfill replays a block range for one module, or for all of them when
// moduleName is empty. A zero bound is taken from the stored event logs.
func (i *Indexer) Backfill(ctx context.Context, moduleName string, fromBlock, toBlock uint64) error {
	if fromBlock == 0 || toBlock == 0 {
		minBlock, maxBlock, err := i.db.LogBlockRange(ctx)
		if errors.Is(err, database.ErrNotFound) {
			i.logger.Warn().Msg("No event logs stored, nothing to backfill")
			return nil
		}
		if err != nil {
			return err
		}
		if fromBlock == 0 {
			fromBlock = minBlock
		}
		if toBlock == 0 {
			toBlock = maxBlock
		}
	}

	if moduleName == "" {
		return i.poller.BackfillAll(ctx, fromBlock, toBlock)
	}
	return i.registry.Backfill(ctx, moduleName, fromBlock, toBlock)
}

// Report reads back the ledgers of account and the given swaps
func (i *Indexer) Report(ctx context.Context, account string, swapIDs []string) (*Report, error) {
	return BuildReport(ctx, i.swaps, account, swapIDs)
}

// Stop stops polling and releases connections
func (i *Indexer) Stop() {
	i.logger.Info().Msg("Stopping indexer")
	i.cancel()
	if i.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := i.metrics.Shutdown(ctx); err != nil {
			i.logger.Error().Err(err).Msg("Failed to stop metrics server")
		}
		cancel()
	}
	if i.poller != nil {
		i.poller.Stop()
	}
	if i.registry != nil {
		if err := i.registry.Stop(); err != nil {
			i.logger.Error().Err(err).Msg("Failed to stop module registry")
		}
	}
	i.close()
	i.logger.Info().Msg("Indexer stopped")
}

func (i *Indexer) close() {
	i.cancel()
	if i.publisher != nil {
		if err := i.publisher.Close(); err != nil {
			i.logger.Error().Err(err).Msg("Failed to flush realtime publisher")
		}
	}
	i.db.Close()
}
