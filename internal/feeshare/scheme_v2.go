package feeshare

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var two = big.NewInt(2)

// ComputeV2 replays the Swapped2/Bought2 rule. A fixed fee (capped at
// MaxFeePercent) is charged on the received amount; when that fee is at most
// FixedFeeSlippageThreshold bps and there is positive slippage, the fee is
// charged on the expected amount instead and half of the slippage goes to
// ParaSwap, plus half to the partner unless bit 14 sends it to the user.
// Swaps that end up with no fee at all still give ParaSwap half of any
// positive slippage.
func (e *Engine) ComputeV2(code FeeCode, partner common.Address, receivedAmount, expectedAmount *big.Int) Share {
	received := amountOrZero(receivedAmount)
	expected := amountOrZero(expectedAmount)
	maxFee := uint64(e.policy.MaxFeePercent)

	share := ZeroShare()
	if !code.IsZero() && partner != NullAddress {
		if code.Version() == 0 {
			share = e.completeFeeV2(code.clampedUint64(maxFee), received, expected, true)
		} else {
			share = e.completeFeeV2(
				min(code.FeeBpsField(), maxFee),
				received,
				expected,
				code.IsPositiveSlippageToUser(),
			)
		}
	}

	if share.IsZero() && received.Cmp(expected) > 0 {
		half := new(big.Int).Sub(received, expected)
		share.Paraswap = half.Quo(half, two)
	}
	return share
}

func (e *Engine) completeFeeV2(bps uint64, received, expected *big.Int, positiveSlippageToUser bool) Share {
	share := ZeroShare()
	takeSlippage := bps <= uint64(e.policy.FixedFeeSlippageThreshold) && received.Cmp(expected) > 0

	if bps > 0 {
		base := received
		if takeSlippage {
			base = expected
		}
		share = e.splitFixedFee(base, bps)
	}

	if takeSlippage {
		half := new(big.Int).Sub(received, expected)
		half.Quo(half, two)
		share.Paraswap = new(big.Int).Add(share.Paraswap, half)
		if !positiveSlippageToUser {
			share.Partner = new(big.Int).Add(share.Partner, half)
		}
	}
	return share
}
