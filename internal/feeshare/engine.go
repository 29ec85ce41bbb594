package feeshare

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Engine computes fee shares under a fixed Policy. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	policy Policy

	denominator           *big.Int
	partnerSharePercent   *big.Int
	paraswapSlippageShare *big.Int
	paraswapReferralShare *big.Int
}

// NewEngine creates an engine bound to p.
func NewEngine(p Policy) *Engine {
	return &Engine{
		policy:                p,
		denominator:           big.NewInt(p.Denominator),
		partnerSharePercent:   big.NewInt(p.PartnerSharePercent),
		paraswapSlippageShare: big.NewInt(p.ParaswapSlippageShare),
		paraswapReferralShare: big.NewInt(p.ParaswapReferralShare),
	}
}

// Policy returns the constants the engine was built with.
func (e *Engine) Policy() Policy { return e.policy }

var defaultEngine = NewEngine(DefaultPolicy())

// ComputeFeeShare runs the current (V3) rule with the default policy.
func ComputeFeeShare(in Input) Share {
	return defaultEngine.ComputeV3(in)
}

// Compute replays in under the given scheme.
func (e *Engine) Compute(scheme Scheme, in Input) Share {
	switch scheme {
	case SchemeV2:
		return e.ComputeV2(in.FeeCode, in.Partner, in.ReceivedAmount, in.ExpectedAmount)
	case SchemeV3:
		return e.ComputeV3(in)
	default:
		return ZeroShare()
	}
}

// ComputeV3 is the current rule. Slippage-taking swaps are charged only on
// positive slippage; every other swap pays a fixed bps fee on the fee-token
// amount. The two never combine.
func (e *Engine) ComputeV3(in Input) Share {
	from := amountOrZero(in.FromAmount)
	received := amountOrZero(in.ReceivedAmount)
	expected := amountOrZero(in.ExpectedAmount)

	if in.FeeCode.IsTakeSlippage(in.Partner) {
		if in.SwapType == SwapTypeSell {
			return e.feeWithSlippage(received, expected, in.Partner, in.FeeCode)
		}
		return e.feeWithSlippage(from, expected, in.Partner, in.FeeCode)
	}

	if in.FeeCode.IsTakeFeeFromSrcToken() {
		return e.fixedFee(from, in.FeeCode)
	}
	return e.fixedFee(received, in.FeeCode)
}

// DecodeFixedFeeBps returns the fixed fee in bps carried by code.
//
// With the referral bit set the 14-bit field holds a slippage share, not a
// fee, and is returned without the MaxFeePercent cap. The contract itself
// would never charge it as a fee; the value is kept uncapped here on purpose.
func (e *Engine) DecodeFixedFeeBps(code FeeCode) uint64 {
	maxFee := uint64(e.policy.MaxFeePercent)
	if code.Version() == 0 {
		return code.clampedUint64(maxFee)
	}
	if code.Flag(bitReferralProgram) {
		return code.FeeBpsField()
	}
	return min(code.FeeBpsField(), maxFee)
}

func (e *Engine) fixedFee(amount *big.Int, code FeeCode) Share {
	bps := e.DecodeFixedFeeBps(code)
	if bps == 0 {
		return ZeroShare()
	}
	return e.splitFixedFee(amount, bps)
}

// splitFixedFee charges amount*bps and gives the partner PartnerSharePercent of it.
func (e *Engine) splitFixedFee(amount *big.Int, bps uint64) Share {
	fee := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	fee.Quo(fee, e.denominator)

	partner := new(big.Int).Mul(fee, e.partnerSharePercent)
	partner.Quo(partner, e.denominator)

	return Share{
		Partner:  partner,
		Paraswap: fee.Sub(fee, partner),
	}
}

func (e *Engine) feeWithSlippage(positive, negative *big.Int, partner common.Address, code FeeCode) Share {
	slippage := positiveSlippage(positive, negative)
	if slippage.Sign() == 0 {
		return ZeroShare()
	}
	return e.slippageFee(slippage, partner, code)
}

// slippageFee splits positive slippage. Without a partner ParaSwap keeps
// ParaswapSlippageShare; with one, ParaSwap keeps ParaswapReferralShare and
// the partner gets the share encoded in the fee code. The partner part is
// funded separately on-chain, so the sum may differ from slippage.
func (e *Engine) slippageFee(slippage *big.Int, partner common.Address, code FeeCode) Share {
	if partner == NullAddress {
		paraswap := new(big.Int).Mul(slippage, e.paraswapSlippageShare)
		return Share{
			Partner:  new(big.Int),
			Paraswap: paraswap.Quo(paraswap, e.denominator),
		}
	}

	paraswap := new(big.Int).Mul(slippage, e.paraswapReferralShare)
	paraswap.Quo(paraswap, e.denominator)

	partnerShare := new(big.Int).Mul(slippage, new(big.Int).SetUint64(code.FeeBpsField()))
	partnerShare.Quo(partnerShare, e.denominator)

	return Share{Partner: partnerShare, Paraswap: paraswap}
}

// positiveSlippage returns positive-negative, or zero when that is not positive.
func positiveSlippage(positive, negative *big.Int) *big.Int {
	if positive.Cmp(negative) <= 0 {
		return new(big.Int)
	}
	return new(big.Int).Sub(positive, negative)
}
