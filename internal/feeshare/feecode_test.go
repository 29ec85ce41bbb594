package feeshare

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

// packFeeCode builds a fee word the way the contract does.
func packFeeCode(version uint8, bps uint64, bits ...uint) FeeCode {
	v := new(big.Int).Lsh(big.NewInt(int64(version)), versionShift)
	v.Or(v, new(big.Int).SetUint64(bps))
	for _, b := range bits {
		v.SetBit(v, int(b), 1)
	}
	return NewFeeCode(v)
}

var (
	partnerABC = common.HexToAddress("0xABC0000000000000000000000000000000000001")
	partnerDEF = common.HexToAddress("0xDEF0000000000000000000000000000000000002")
)

func TestFeeCodeDecoding(t *testing.T) {
	code := packFeeCode(1, 2000, bitReferralProgram, bitTakeFeeFromSrcToken)

	assert.Equal(t, uint8(1), code.Version())
	assert.Equal(t, uint64(2000), code.FeeBpsField())
	assert.True(t, code.Flag(bitReferralProgram))
	assert.True(t, code.Flag(bitTakeFeeFromSrcToken))
	assert.False(t, code.Flag(bitPositiveSlippageToUser))
	assert.False(t, code.Flag(300))
	assert.Equal(t, 0, code.Big().Cmp(new(big.Int).Add(
		new(big.Int).Lsh(big.NewInt(1), 248),
		big.NewInt(2000+1<<15+1<<16),
	)))
}

func TestFeeCodeVersionTopByte(t *testing.T) {
	assert.Equal(t, uint8(0), FeeCodeFromUint64(300).Version())
	assert.Equal(t, uint8(255), packFeeCode(255, 0).Version())
	assert.Equal(t, uint8(2), packFeeCode(2, 0x3FFF).Version())
	assert.Equal(t, uint64(0x3FFF), packFeeCode(2, 0x3FFF).FeeBpsField())
}

func TestNewFeeCodeNil(t *testing.T) {
	code := NewFeeCode(nil)
	assert.True(t, code.IsZero())
	assert.Equal(t, "0", code.String())
}

func TestClassifiers(t *testing.T) {
	tests := []struct {
		name           string
		code           FeeCode
		partner        common.Address
		takeFeeFromSrc bool
		referral       bool
		noFeeSplit     bool
		takeSlippage   bool
	}{
		{
			name:    "legacy fee ignores flag bits",
			code:    FeeCodeFromUint64(1<<15 | 1<<16 | 300),
			partner: partnerABC,
		},
		{
			name:           "src token fee",
			code:           packFeeCode(1, 100, bitTakeFeeFromSrcToken),
			partner:        partnerABC,
			takeFeeFromSrc: true,
		},
		{
			name:         "referral",
			code:         packFeeCode(1, 2000, bitReferralProgram),
			partner:      partnerDEF,
			referral:     true,
			takeSlippage: true,
		},
		{
			name:         "no fee split slippage outranks referral bit",
			code:         packFeeCode(1, 5000, bitReferralProgram, bitNoFeeAndSplitSlippage),
			partner:      partnerDEF,
			noFeeSplit:   true,
			takeSlippage: true,
		},
		{
			name:         "no fee split slippage without version byte",
			code:         FeeCodeFromUint64(1 << 17),
			partner:      partnerDEF,
			noFeeSplit:   true,
			takeSlippage: true,
		},
		{
			name:         "null partner always takes slippage",
			code:         packFeeCode(1, 100),
			partner:      NullAddress,
			takeSlippage: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.takeFeeFromSrc, tt.code.IsTakeFeeFromSrcToken())
			assert.Equal(t, tt.referral, tt.code.IsReferralProgram())
			assert.Equal(t, tt.noFeeSplit, tt.code.IsNoFeeAndSplitSlippage())
			assert.Equal(t, tt.takeSlippage, tt.code.IsTakeSlippage(tt.partner))
		})
	}
}
