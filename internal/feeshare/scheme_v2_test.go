package feeshare

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestComputeV2(t *testing.T) {
	engine := NewEngine(DefaultPolicy())

	tests := []struct {
		name         string
		code         FeeCode
		partner      common.Address
		received     int64
		expected     int64
		wantPartner  int64
		wantParaswap int64
	}{
		{
			name:         "no fee code gives paraswap half the slippage",
			code:         FeeCodeFromUint64(0),
			partner:      partnerABC,
			received:     1_100,
			expected:     1_000,
			wantParaswap: 50,
		},
		{
			name:     "no fee and no slippage",
			code:     FeeCodeFromUint64(0),
			partner:  partnerABC,
			received: 1_000,
			expected: 1_000,
		},
		{
			name:         "legacy low fee charged on expected plus slippage",
			code:         FeeCodeFromUint64(30),
			partner:      partnerABC,
			received:     1_100_000,
			expected:     1_000_000,
			wantPartner:  2_550,
			wantParaswap: 50_450,
		},
		{
			name:         "versioned low fee splits slippage with partner",
			code:         packFeeCode(1, 30),
			partner:      partnerABC,
			received:     1_100_000,
			expected:     1_000_000,
			wantPartner:  52_550,
			wantParaswap: 50_450,
		},
		{
			name:         "versioned low fee with slippage to user",
			code:         packFeeCode(1, 30, bitPositiveSlippageToUser),
			partner:      partnerABC,
			received:     1_100_000,
			expected:     1_000_000,
			wantPartner:  2_550,
			wantParaswap: 50_450,
		},
		{
			name:         "fee above threshold ignores slippage",
			code:         packFeeCode(1, 100),
			partner:      partnerABC,
			received:     1_100_000,
			expected:     1_000_000,
			wantPartner:  9_350,
			wantParaswap: 1_650,
		},
		{
			name:         "null partner",
			code:         packFeeCode(1, 30),
			partner:      NullAddress,
			received:     1_100_000,
			expected:     1_000_000,
			wantParaswap: 50_000,
		},
		{
			name:         "legacy fee is capped",
			code:         FeeCodeFromUint64(1_000),
			partner:      partnerABC,
			received:     1_000_000,
			expected:     1_000_000,
			wantPartner:  42_500,
			wantParaswap: 7_500,
		},
		{
			name:         "zero bps field still splits slippage",
			code:         packFeeCode(1, 0),
			partner:      partnerABC,
			received:     1_100,
			expected:     1_000,
			wantPartner:  50,
			wantParaswap: 50,
		},
		{
			name:         "negative slippage charges received",
			code:         FeeCodeFromUint64(30),
			partner:      partnerABC,
			received:     900_000,
			expected:     1_000_000,
			wantPartner:  2_295,
			wantParaswap: 405,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			share := engine.ComputeV2(tt.code, tt.partner, big.NewInt(tt.received), big.NewInt(tt.expected))
			assertShare(t, tt.wantPartner, tt.wantParaswap, share)
		})
	}
}

func TestComputeV2NilAmounts(t *testing.T) {
	share := NewEngine(DefaultPolicy()).ComputeV2(packFeeCode(1, 30), partnerABC, nil, nil)
	assertShare(t, 0, 0, share)
}
