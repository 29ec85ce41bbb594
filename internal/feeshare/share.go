package feeshare

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// SwapType is the direction of the swap as reported by the emitting event.
type SwapType string

const (
	SwapTypeSell SwapType = "sell"
	SwapTypeBuy  SwapType = "buy"
)

// Side is the capitalised form stored on swap records.
func (t SwapType) Side() string {
	if t == SwapTypeBuy {
		return "Buy"
	}
	return "Sell"
}

// Scheme selects which historical fee-share rule an event is replayed with.
type Scheme int

const (
	// SchemeV0 covers events that carry no fee code (Augustus 0.2 to 5.0).
	SchemeV0 Scheme = iota
	// SchemeV2 covers Swapped2/Bought2 (Augustus 5.2).
	SchemeV2
	// SchemeV3 covers SwappedV3/BoughtV3/SwappedDirect (Augustus 5.3+).
	SchemeV3
)

func (s Scheme) String() string {
	switch s {
	case SchemeV0:
		return "v0"
	case SchemeV2:
		return "v2"
	case SchemeV3:
		return "v3"
	}
	return fmt.Sprintf("scheme(%d)", int(s))
}

// ParseScheme maps a manifest value to a Scheme.
func ParseScheme(s string) (Scheme, error) {
	switch s {
	case "", "v0", "none":
		return SchemeV0, nil
	case "v2":
		return SchemeV2, nil
	case "v3":
		return SchemeV3, nil
	}
	return SchemeV0, fmt.Errorf("unknown fee scheme %q", s)
}

// Share is the (partnerShare, paraswapShare) pair, in the smallest unit of
// the fee token. The two parts are not required to add up to the fee or
// slippage they were derived from.
type Share struct {
	Partner  *big.Int
	Paraswap *big.Int
}

// ZeroShare returns a share with both parts set to zero.
func ZeroShare() Share {
	return Share{Partner: new(big.Int), Paraswap: new(big.Int)}
}

// Total is Partner + Paraswap.
func (s Share) Total() *big.Int {
	return new(big.Int).Add(s.Partner, s.Paraswap)
}

// IsZero reports whether neither party receives anything.
func (s Share) IsZero() bool {
	return s.Partner.Sign() == 0 && s.Paraswap.Sign() == 0
}

// Input bundles what the emitting event tells us about a swap. Nil amounts
// count as zero.
type Input struct {
	FeeCode        FeeCode
	Partner        common.Address
	FromAmount     *big.Int
	ReceivedAmount *big.Int
	ExpectedAmount *big.Int
	SwapType       SwapType
}

// Policy holds the split constants, all in bps of Denominator.
type Policy struct {
	Denominator           int64
	PartnerSharePercent   int64
	MaxFeePercent         int64
	ParaswapSlippageShare int64
	ParaswapReferralShare int64
	// V2 only takes slippage when the fixed fee is at most this many bps.
	FixedFeeSlippageThreshold int64
}

// DefaultPolicy returns the constants used by every deployed Augustus release.
func DefaultPolicy() Policy {
	return Policy{
		Denominator:               10000,
		PartnerSharePercent:       8500,
		MaxFeePercent:             500,
		ParaswapSlippageShare:     10000,
		ParaswapReferralShare:     5000,
		FixedFeeSlippageThreshold: 50,
	}
}

// MarshalZerologObject lets a policy be logged with Event.Object
func (p Policy) MarshalZerologObject(e *zerolog.Event) {
	e.Int64("denominator", p.Denominator).
		Int64("partner_share", p.PartnerSharePercent).
		Int64("max_fee", p.MaxFeePercent).
		Int64("paraswap_slippage_share", p.ParaswapSlippageShare).
		Int64("paraswap_referral_share", p.ParaswapReferralShare).
		Int64("fixed_fee_slippage_threshold", p.FixedFeeSlippageThreshold)
}

func amountOrZero(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return x
}
