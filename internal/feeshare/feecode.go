// Package feeshare computes how an Augustus swap fee or positive slippage is
// split between a partner (or referrer) and ParaSwap.
//
// The fee code emitted by the swapper contract is a packed 256-bit word:
//
//	bits 0..13    fee or slippage share in bps (mask 0x3FFF)
//	bit 14        positive slippage goes to the user
//	bit 15        take the fee from the source token
//	bit 16        referral program
//	bit 17        no fee, split slippage
//	bits 248..255 encoding version (0 = the whole word is a fee in bps)
package feeshare

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	feeBpsMask = 0x3FFF

	bitPositiveSlippageToUser = 14
	bitTakeFeeFromSrcToken    = 15
	bitReferralProgram        = 16
	bitNoFeeAndSplitSlippage  = 17

	versionShift = 248
)

// NullAddress marks a swap without a partner.
var NullAddress = common.Address{}

// FeeCode is the packed fee word carried by Swapped2/Bought2/SwappedV3/BoughtV3/SwappedDirect.
type FeeCode struct {
	v uint256.Int
}

// NewFeeCode converts a decoded uint256 event argument. Values wider than 256
// bits are truncated the same way the EVM would have; nil is zero.
func NewFeeCode(b *big.Int) FeeCode {
	var c FeeCode
	if b != nil {
		c.v.SetFromBig(b)
	}
	return c
}

// FeeCodeFromUint64 builds a legacy (version 0) fee code or a test fixture.
func FeeCodeFromUint64(x uint64) FeeCode {
	var c FeeCode
	c.v.SetUint64(x)
	return c
}

// Big returns the fee code as a fresh *big.Int, for storage.
func (c FeeCode) Big() *big.Int {
	return c.v.ToBig()
}

func (c FeeCode) String() string {
	return c.v.Dec()
}

// IsZero reports whether no fee code was set at all.
func (c FeeCode) IsZero() bool {
	return c.v.IsZero()
}

// Version is the top byte of the word.
func (c FeeCode) Version() uint8 {
	return uint8(c.v[3] >> (versionShift - 192))
}

// FeeBpsField returns bits 0..13. Its meaning depends on the flags.
func (c FeeCode) FeeBpsField() uint64 {
	return c.v.Uint64() & feeBpsMask
}

// Flag reports whether the given bit is set.
func (c FeeCode) Flag(bit uint) bool {
	if bit >= 256 {
		return false
	}
	return (c.v[bit/64]>>(bit%64))&1 == 1
}

// IsPositiveSlippageToUser reads bit 14. Only the V2 scheme honours it.
func (c FeeCode) IsPositiveSlippageToUser() bool {
	return c.Flag(bitPositiveSlippageToUser)
}

// IsTakeFeeFromSrcToken reports whether the fee is denominated in the source token.
func (c FeeCode) IsTakeFeeFromSrcToken() bool {
	return c.Version() != 0 && c.Flag(bitTakeFeeFromSrcToken)
}

// IsNoFeeAndSplitSlippage reports a partner that takes no fee but splits
// positive slippage with ParaSwap.
func (c FeeCode) IsNoFeeAndSplitSlippage() bool {
	return c.Flag(bitNoFeeAndSplitSlippage)
}

// IsReferralProgram reports a referral swap. Bit 17 wins over bit 16: a
// no-fee-split-slippage swap also carries the referral bit and must not be
// credited to the referrer ledger.
func (c FeeCode) IsReferralProgram() bool {
	return !c.IsNoFeeAndSplitSlippage() && c.Version() != 0 && c.Flag(bitReferralProgram)
}

// IsTakeSlippage reports whether the swap is charged on positive slippage
// instead of on the traded amount.
func (c FeeCode) IsTakeSlippage(partner common.Address) bool {
	return c.IsReferralProgram() || c.IsNoFeeAndSplitSlippage() || partner == NullAddress
}

// clampedUint64 returns min(c, limit) as a uint64.
func (c FeeCode) clampedUint64(limit uint64) uint64 {
	if c.v.GtUint64(limit) {
		return limit
	}
	return c.v.Uint64()
}
