package processor

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paraswap/paraswap-subgraph/internal/database"
)

type fakeReader struct {
	swaps   map[string]*database.Swap
	ledgers map[database.RewardKind][]*database.RewardLedger
	err     error
	queried []string
}

func (f *fakeReader) GetSwap(ctx context.Context, id string) (*database.Swap, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.swaps[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return s, nil
}

func (f *fakeReader) ListLedgers(ctx context.Context, kind database.RewardKind, account string) ([]*database.RewardLedger, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.queried = append(f.queried, account)
	return f.ledgers[kind], nil
}

func TestBuildReport(t *testing.T) {
	account := "0x1111111111111111111111111111111111111111"
	reader := &fakeReader{
		swaps: map[string]*database.Swap{
			"0xaa01-7": {ID: "0xaa01-7", Side: "Sell", SrcAmount: big.NewInt(2), DestAmount: big.NewInt(1), ReferrerFee: big.NewInt(4250)},
		},
		ledgers: map[database.RewardKind][]*database.RewardLedger{
			database.RewardPartner: {
				{ID: account + "-0xdest", Kind: database.RewardPartner, Account: account, Token: "0xdest", TotalRewards: big.NewInt(8500)},
			},
			database.RewardReferrer: {
				{ID: account + "-0xsrc", Kind: database.RewardReferrer, Account: account, Token: "0xsrc", TotalRewards: big.NewInt(50)},
			},
		},
	}

	report, err := BuildReport(context.Background(), reader, "0x1111111111111111111111111111111111111111", []string{"0xaa01-7", "0xbb01-2"})
	require.NoError(t, err)

	assert.Equal(t, account, report.Account)
	require.Len(t, report.Ledgers, 2)
	assert.Equal(t, database.RewardPartner, report.Ledgers[0].Kind)
	assert.Equal(t, "8500", report.Ledgers[0].TotalRewards.String())
	assert.Equal(t, database.RewardReferrer, report.Ledgers[1].Kind)
	require.Len(t, report.Swaps, 1)
	assert.Equal(t, "0xaa01-7", report.Swaps[0].ID)
	assert.Equal(t, []string{"0xbb01-2"}, report.Missing)

	report.Log(zerolog.Nop())
}

func TestBuildReportWithoutAccount(t *testing.T) {
	reader := &fakeReader{}
	report, err := BuildReport(context.Background(), reader, "", []string{"0xaa01-7"})
	require.NoError(t, err)
	assert.Empty(t, reader.queried)
	assert.Empty(t, report.Ledgers)
	assert.Equal(t, []string{"0xaa01-7"}, report.Missing)
}

func TestBuildReportStoreError(t *testing.T) {
	reader := &fakeReader{err: errors.New("connection refused")}

	_, err := BuildReport(context.Background(), reader, "0xabc", nil)
	assert.ErrorContains(t, err, "connection refused")

	_, err = BuildReport(context.Background(), reader, "", []string{"0xaa01-7"})
	assert.ErrorContains(t, err, "connection refused")
}
