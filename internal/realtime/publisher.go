package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/centrifugal/gocent/v3"
	"github.com/rs/zerolog"

	"github.com/paraswap/paraswap-subgraph/internal/database"
)

const (
	rewardChannelPrefix = "augustus.rewards."
	batchChannel        = "augustus.rewards"
	flushInterval       = 250 * time.Millisecond
)

// publishClient is the part of the Centrifugo client the publisher uses
type publishClient interface {
	Publish(ctx context.Context, channel string, data []byte, opts ...gocent.PublishOption) (gocent.PublishResult, error)
}

type rewardUpdate struct {
	Ledger      *database.RewardLedger `json:"ledger"`
	SwapID      string                 `json:"swap_id"`
	TxHash      string                 `json:"tx_hash"`
	BlockNumber uint64                 `json:"block_number"`
}

// Publisher pushes reward ledger credits to Centrifugo. Credits are
// coalesced per ledger and flushed in the background.
type Publisher struct {
	gc      publishClient
	logger  zerolog.Logger
	mu      sync.Mutex
	pending map[string]rewardUpdate
	flushCh chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type PublishConfig struct {
	APIURL string
	APIKey string
}

func NewPublisher(config PublishConfig, logger zerolog.Logger) *Publisher {
	p := newPublisher(gocent.New(gocent.Config{
		Addr: config.APIURL,
		Key:  config.APIKey,
	}), logger)
	p.startFlusher()
	return p
}

func newPublisher(client publishClient, logger zerolog.Logger) *Publisher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Publisher{
		gc:      client,
		logger:  logger.With().Str("component", "realtime-publisher").Logger(),
		pending: make(map[string]rewardUpdate),
		flushCh: make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (p *Publisher) startFlusher() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(flushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-p.ctx.Done():
				p.logger.Info().Msg("Stopping publisher flusher")
				return
			case <-ticker.C:
				p.flush(p.ctx)
			case <-p.flushCh:
				p.flush(p.ctx)
			}
		}
	}()
}

// NotifyReward queues the new ledger total. Only the latest total of a
// ledger is published.
func (p *Publisher) NotifyReward(ledger *database.RewardLedger, swap *database.Swap) {
	if ledger == nil {
		return
	}

	update := rewardUpdate{Ledger: ledger}
	if swap != nil {
		update.SwapID = swap.ID
		update.TxHash = swap.TxHash
		update.BlockNumber = swap.BlockNumber
	}

	p.mu.Lock()
	p.pending[string(ledger.Kind)+":"+ledger.ID] = update
	p.mu.Unlock()

	select {
	case p.flushCh <- struct{}{}:
	default:
	}
}

func (p *Publisher) Flush() {
	p.flush(p.ctx)
}

func (p *Publisher) flush(ctx context.Context) {
	p.mu.Lock()
	if len(p.pending) == 0 {
		p.mu.Unlock()
		return
	}
	updates := make([]rewardUpdate, 0, len(p.pending))
	for _, u := range p.pending {
		updates = append(updates, u)
	}
	p.pending = make(map[string]rewardUpdate)
	p.mu.Unlock()

	sort.Slice(updates, func(i, j int) bool {
		if updates[i].BlockNumber != updates[j].BlockNumber {
			return updates[i].BlockNumber < updates[j].BlockNumber
		}
		return updates[i].Ledger.ID < updates[j].Ledger.ID
	})

	timestamp := time.Now().UTC().Unix()

	for _, u := range updates {
		payload := map[string]any{
			"type":   "reward.update",
			"kind":   u.Ledger.Kind,
			"ts":     timestamp,
			"update": u,
		}

		payloadBytes, err := json.Marshal(payload)
		if err != nil {
			p.logger.Warn().Err(err).Msg("Failed to marshal reward payload")
			continue
		}

		channel := rewardChannel(u.Ledger.Account)
		if _, err := p.gc.Publish(ctx, channel, payloadBytes); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn().
				Err(err).
				Str("ledger", u.Ledger.ID).
				Str("channel", channel).
				Msg("Failed to publish reward update")
		}
	}

	batchPayload := map[string]any{
		"type":  "reward.batch",
		"ts":    timestamp,
		"items": updates,
	}

	batchPayloadBytes, err := json.Marshal(batchPayload)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Failed to marshal batch payload")
		return
	}

	if _, err := p.gc.Publish(ctx, batchChannel, batchPayloadBytes); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to publish batch update")
	} else {
		p.logger.Debug().
			Int("count", len(updates)).
			Msg("Published reward batch")
	}
}

func rewardChannel(account string) string {
	return fmt.Sprintf("%s%s", rewardChannelPrefix, strings.ToLower(account))
}

// Close stops the flusher after publishing what is still queued
func (p *Publisher) Close() error {
	p.logger.Info().Msg("Closing publisher")
	p.flush(p.ctx)
	p.cancel()
	p.wg.Wait()
	return nil
}
