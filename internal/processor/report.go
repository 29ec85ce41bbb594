package processor

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/paraswap/paraswap-subgraph/internal/database"
)

// LedgerReader reads back what the Augustus handlers stored
type LedgerReader interface {
	GetSwap(ctx context.Context, id string) (*database.Swap, error)
	ListLedgers(ctx context.Context, kind database.RewardKind, account string) ([]*database.RewardLedger, error)
}

// Report holds the reward ledgers of one account and a set of swaps, read
// after a replay
type Report struct {
	Account string
	Ledgers []*database.RewardLedger
	Swaps   []*database.Swap
	Missing []string
}

// BuildReport collects the partner and referrer ledgers of account and the
// swaps listed in swapIDs. Unknown swap ids are reported as missing.
func BuildReport(ctx context.Context, r LedgerReader, account string, swapIDs []string) (*Report, error) {
	report := &Report{Account: strings.ToLower(account)}

	if report.Account != "" {
		for _, kind := range []database.RewardKind{database.RewardPartner, database.RewardReferrer} {
			ledgers, err := r.ListLedgers(ctx, kind, report.Account)
			if err != nil {
				return nil, err
			}
			report.Ledgers = append(report.Ledgers, ledgers...)
		}
	}

	for _, id := range swapIDs {
		swap, err := r.GetSwap(ctx, id)
		if errors.Is(err, database.ErrNotFound) {
			report.Missing = append(report.Missing, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		report.Swaps = append(report.Swaps, swap)
	}

	return report, nil
}

// Log writes one line per ledger and swap
func (r *Report) Log(logger zerolog.Logger) {
	for _, l := range r.Ledgers {
		logger.Info().
			Str("kind", string(l.Kind)).
			Str("account", l.Account).
			Str("token", l.Token).
			Str("total", l.TotalRewards.String()).
			Msg("Reward ledger")
	}

	for _, s := range r.Swaps {
		event := logger.Info().
			Str("id", s.ID).
			Str("version", s.AugustusVersion).
			Str("side", s.Side).
			Str("method", s.Method).
			Str("src_token", s.SrcToken).
			Str("dest_token", s.DestToken).
			Str("src_amount", s.SrcAmount.String()).
			Str("dest_amount", s.DestAmount.String()).
			Uint64("block", s.BlockNumber)
		if s.ReferrerFee != nil {
			event = event.Str("referrer_fee", s.ReferrerFee.String())
		}
		if s.ParaswapFee != nil {
			event = event.Str("paraswap_fee", s.ParaswapFee.String())
		}
		event.Msg("Swap")
	}

	for _, id := range r.Missing {
		logger.Warn().Str("id", id).Msg("Swap not found")
	}
}
