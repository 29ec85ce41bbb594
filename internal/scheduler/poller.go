package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/paraswap/paraswap-subgraph/internal/database"
	"github.com/paraswap/paraswap-subgraph/internal/metrics"
	"github.com/paraswap/paraswap-subgraph/internal/modules/core"
)

// BlockSource reports how far the raw chain data reaches
type BlockSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

type PollerConfig struct {
	BatchSize    uint64
	Workers      int64
	PollInterval time.Duration
}

// Poller advances every active module towards the latest stored block on a
// fixed interval
type Poller struct {
	registry  *core.ModuleRegistry
	source    BlockSource
	scheduler gocron.Scheduler
	sem       *semaphore.Weighted
	config    PollerConfig
	logger    zerolog.Logger
}

func NewPoller(registry *core.ModuleRegistry, source BlockSource, config PollerConfig, logger zerolog.Logger) (*Poller, error) {
	if config.BatchSize == 0 {
		return nil, errors.New("poller batch size must be positive")
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	return &Poller{
		registry:  registry,
		source:    source,
		scheduler: s,
		sem:       semaphore.NewWeighted(config.Workers),
		config:    config,
		logger:    logger.With().Str("component", "module-poller").Logger(),
	}, nil
}

func (p *Poller) Start(ctx context.Context) error {
	_, err := p.scheduler.NewJob(
		gocron.DurationJob(p.config.PollInterval),
		gocron.NewTask(p.tick, ctx),
		gocron.WithName("advance-modules"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return err
	}

	p.logger.Info().
		Dur("interval", p.config.PollInterval).
		Uint64("batch_size", p.config.BatchSize).
		Int64("workers", p.config.Workers).
		Msg("Module poller started")
	p.scheduler.Start()

	return nil
}

func (p *Poller) Stop() {
	p.logger.Info().Msg("Stopping module poller")
	if err := p.scheduler.Shutdown(); err != nil {
		p.logger.Error().Err(err).Msg("Error shutting down scheduler")
	}
}

func (p *Poller) tick(ctx context.Context) {
	if err := p.Tick(ctx); err != nil && ctx.Err() == nil {
		p.logger.Error().Err(err).Msg("Module poll failed")
	}
}

// Tick advances each active module by at most one batch
func (p *Poller) Tick(ctx context.Context) error {
	latest, err := p.source.LatestBlockNumber(ctx)
	if errors.Is(err, database.ErrNotFound) {
		p.logger.Debug().Msg("No blocks stored yet")
		return nil
	}
	if err != nil {
		return err
	}

	return p.forEachModule(ctx, func(ctx context.Context, name string) error {
		if status := p.registry.ModuleStatus(name); status != core.StatusActive {
			return nil
		}
		return p.advance(ctx, name, latest)
	})
}

func (p *Poller) advance(ctx context.Context, name string, latest uint64) error {
	module, ok := p.registry.GetModule(name)
	if !ok {
		return nil
	}

	last, err := module.GetSyncState(ctx)
	if err != nil {
		return fmt.Errorf("module %s: %w", name, err)
	}

	from, to, ok := nextWindow(last, module.GetStartBlock(), latest, p.config.BatchSize)
	if !ok {
		return nil
	}

	start := time.Now()
	if err := module.Backfill(ctx, from, to); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if serr := p.registry.SetModuleStatus(context.WithoutCancel(ctx), name, core.StatusError); serr != nil {
			p.logger.Error().Err(serr).Str("module", name).Msg("Failed to update module status to error")
		}
		return fmt.Errorf("module %s blocks %d-%d: %w", name, from, to, err)
	}

	metrics.ModuleAdvanceDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	metrics.ModuleLastBlock.WithLabelValues(name).Set(float64(to))
	metrics.ModuleBlocksBehind.WithLabelValues(name).Set(float64(latest - to))

	p.logger.Debug().
		Str("module", name).
		Uint64("from", from).
		Uint64("to", to).
		Uint64("behind", latest-to).
		Dur("elapsed", time.Since(start)).
		Msg("Module advanced")
	return nil
}

// BackfillAll replays [fromBlock, toBlock] for every module, a bounded
// number at a time
func (p *Poller) BackfillAll(ctx context.Context, fromBlock, toBlock uint64) error {
	if fromBlock > toBlock {
		return fmt.Errorf("invalid backfill range %d-%d", fromBlock, toBlock)
	}
	return p.forEachModule(ctx, func(ctx context.Context, name string) error {
		return p.registry.Backfill(ctx, name, fromBlock, toBlock)
	})
}

func (p *Poller) forEachModule(ctx context.Context, fn func(ctx context.Context, name string) error) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for _, name := range p.registry.ListModules() {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			break
		}

		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			defer p.sem.Release(1)

			if err := fn(ctx, name); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(name)
	}

	wg.Wait()
	return errors.Join(errs...)
}

// nextWindow returns the next block range a module should process, or false
// when it is caught up
func nextWindow(last, startBlock, latest, batchSize uint64) (uint64, uint64, bool) {
	from := last + 1
	if from < startBlock {
		from = startBlock
	}
	if from > latest {
		return 0, 0, false
	}
	return from, min(latest, from+batchSize-1), true
}
