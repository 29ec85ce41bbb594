package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/centrifugal/gocent/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paraswap/paraswap-subgraph/internal/database"
)

type published struct {
	channel string
	data    []byte
}

type fakeClient struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (c *fakeClient) Publish(ctx context.Context, channel string, data []byte, opts ...gocent.PublishOption) (gocent.PublishResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, published{channel: channel, data: data})
	return gocent.PublishResult{}, c.err
}

func ledger(account string, total int64) *database.RewardLedger {
	return &database.RewardLedger{
		ID:           database.LedgerID(account, "0xtoken"),
		Kind:         database.RewardPartner,
		Account:      account,
		Token:        "0xtoken",
		TotalRewards: big.NewInt(total),
	}
}

func TestPublisherCoalescesPerLedger(t *testing.T) {
	client := &fakeClient{}
	p := newPublisher(client, zerolog.Nop())

	swap := &database.Swap{ID: "0xaa-1", TxHash: "0xaa", BlockNumber: 10}
	p.NotifyReward(ledger("0xABC", 100), swap)
	p.NotifyReward(ledger("0xABC", 250), swap)
	p.NotifyReward(nil, swap)
	p.Flush()

	require.Len(t, client.msgs, 2)
	assert.Equal(t, "augustus.rewards.0xabc", client.msgs[0].channel)
	assert.Equal(t, "augustus.rewards", client.msgs[1].channel)

	var payload struct {
		Type   string `json:"type"`
		Kind   string `json:"kind"`
		Update struct {
			Ledger struct {
				TotalRewards json.Number `json:"totalRewards"`
			} `json:"ledger"`
			SwapID string `json:"swap_id"`
		} `json:"update"`
	}
	require.NoError(t, json.Unmarshal(client.msgs[0].data, &payload))
	assert.Equal(t, "reward.update", payload.Type)
	assert.Equal(t, "partner", payload.Kind)
	assert.Equal(t, "250", payload.Update.Ledger.TotalRewards.String())
	assert.Equal(t, "0xaa-1", payload.Update.SwapID)

	// nothing queued, nothing sent
	p.Flush()
	assert.Len(t, client.msgs, 2)
	require.NoError(t, p.Close())
}

func TestPublisherKeepsGoingOnErrors(t *testing.T) {
	client := &fakeClient{err: errors.New("unavailable")}
	p := newPublisher(client, zerolog.Nop())

	p.NotifyReward(ledger("0x01", 1), nil)
	p.NotifyReward(ledger("0x02", 2), nil)
	p.Flush()

	// two accounts and the batch
	assert.Len(t, client.msgs, 3)
	require.NoError(t, p.Close())
}

func TestRewardChannel(t *testing.T) {
	assert.Equal(t, "augustus.rewards.0xdef1", rewardChannel("0xDEF1"))
}
