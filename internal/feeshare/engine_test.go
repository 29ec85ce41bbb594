package feeshare

import (
	"bytes"
	"encoding/json"
	"math/big"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertShare(t *testing.T, wantPartner, wantParaswap int64, got Share) {
	t.Helper()
	require.NotNil(t, got.Partner)
	require.NotNil(t, got.Paraswap)
	assert.Equal(t, big.NewInt(wantPartner).String(), got.Partner.String(), "partner share")
	assert.Equal(t, big.NewInt(wantParaswap).String(), got.Paraswap.String(), "paraswap share")
}

func TestComputeV3Scenarios(t *testing.T) {
	engine := NewEngine(DefaultPolicy())

	t.Run("no fee code and no partner", func(t *testing.T) {
		share := engine.ComputeV3(Input{
			FeeCode:        FeeCodeFromUint64(0),
			Partner:        NullAddress,
			FromAmount:     big.NewInt(1_000_000),
			ReceivedAmount: big.NewInt(990_000),
			ExpectedAmount: big.NewInt(990_000),
			SwapType:       SwapTypeSell,
		})
		assertShare(t, 0, 0, share)
	})

	t.Run("legacy 3 percent fee", func(t *testing.T) {
		share := engine.ComputeV3(Input{
			FeeCode:        FeeCodeFromUint64(300),
			Partner:        partnerABC,
			FromAmount:     big.NewInt(1_000_000),
			ReceivedAmount: big.NewInt(1_000_000),
			ExpectedAmount: big.NewInt(1_000_000),
			SwapType:       SwapTypeBuy,
		})
		assertShare(t, 25500, 4500, share)
	})

	t.Run("referral takes slippage share", func(t *testing.T) {
		code := packFeeCode(1, 2000, bitReferralProgram)
		share := engine.ComputeV3(Input{
			FeeCode:        code,
			Partner:        partnerDEF,
			FromAmount:     big.NewInt(5_000),
			ReceivedAmount: big.NewInt(1_100_000),
			ExpectedAmount: big.NewInt(1_000_000),
			SwapType:       SwapTypeSell,
		})
		assertShare(t, 20_000, 50_000, share)
		assert.True(t, code.IsReferralProgram())
	})

	t.Run("src token fixed fee", func(t *testing.T) {
		share := engine.ComputeV3(Input{
			FeeCode:        packFeeCode(1, 100, bitTakeFeeFromSrcToken),
			Partner:        partnerABC,
			FromAmount:     big.NewInt(2_000_000),
			ReceivedAmount: big.NewInt(700_000),
			ExpectedAmount: big.NewInt(700_000),
			SwapType:       SwapTypeSell,
		})
		// 1% of fromAmount, split 85/15
		assertShare(t, 17_000, 3_000, share)
	})

	t.Run("no fee split slippage on buy skips fixed fee", func(t *testing.T) {
		code := packFeeCode(1, 300, bitReferralProgram, bitNoFeeAndSplitSlippage)
		share := engine.ComputeV3(Input{
			FeeCode:        code,
			Partner:        partnerABC,
			FromAmount:     big.NewInt(500_000),
			ReceivedAmount: big.NewInt(1_000),
			ExpectedAmount: big.NewInt(400_000),
			SwapType:       SwapTypeBuy,
		})
		assertShare(t, 3_000, 50_000, share)
		assert.False(t, code.IsReferralProgram())
	})
}

func TestComputeV3DestTokenFixedFee(t *testing.T) {
	share := ComputeFeeShare(Input{
		FeeCode:        packFeeCode(1, 20),
		Partner:        partnerABC,
		FromAmount:     big.NewInt(9_999_999),
		ReceivedAmount: big.NewInt(1_000_000),
		ExpectedAmount: big.NewInt(900_000),
		SwapType:       SwapTypeSell,
	})
	// 0.2% of received; slippage is ignored once a fixed fee applies
	assertShare(t, 1_700, 300, share)
}

func TestComputeV3CapsFixedFee(t *testing.T) {
	share := ComputeFeeShare(Input{
		FeeCode:        packFeeCode(1, 9000),
		Partner:        partnerABC,
		ReceivedAmount: big.NewInt(1_000_000),
		ExpectedAmount: big.NewInt(1_000_000),
		SwapType:       SwapTypeBuy,
	})
	// capped at 5%
	assertShare(t, 42_500, 7_500, share)
}

func TestComputeV3NullPartnerSlippage(t *testing.T) {
	for _, swapType := range []SwapType{SwapTypeSell, SwapTypeBuy} {
		t.Run(string(swapType), func(t *testing.T) {
			in := Input{
				FeeCode:        packFeeCode(1, 300),
				Partner:        NullAddress,
				FromAmount:     big.NewInt(1_250),
				ReceivedAmount: big.NewInt(1_250),
				ExpectedAmount: big.NewInt(1_000),
				SwapType:       swapType,
			}
			share := ComputeFeeShare(in)
			assertShare(t, 0, 250, share)
		})
	}
}

func TestComputeV3NegativeSlippageIsZero(t *testing.T) {
	share := ComputeFeeShare(Input{
		FeeCode:        packFeeCode(1, 2000, bitReferralProgram),
		Partner:        partnerDEF,
		ReceivedAmount: big.NewInt(900),
		ExpectedAmount: big.NewInt(1_000),
		SwapType:       SwapTypeSell,
	})
	assertShare(t, 0, 0, share)
}

func TestComputeV3NilAmounts(t *testing.T) {
	share := ComputeFeeShare(Input{
		FeeCode:  packFeeCode(1, 100, bitTakeFeeFromSrcToken),
		Partner:  partnerABC,
		SwapType: SwapTypeSell,
	})
	assertShare(t, 0, 0, share)
}

func TestComputeV3PartnerShareMayExceedRemainder(t *testing.T) {
	// 80% to the partner on top of ParaSwap's 50%
	share := ComputeFeeShare(Input{
		FeeCode:        packFeeCode(1, 8000, bitReferralProgram),
		Partner:        partnerDEF,
		ReceivedAmount: big.NewInt(2_000),
		ExpectedAmount: big.NewInt(1_000),
		SwapType:       SwapTypeSell,
	})
	assertShare(t, 800, 500, share)
	assert.Equal(t, 1, share.Total().Cmp(big.NewInt(1_000)))
}

func TestDecodeFixedFeeBps(t *testing.T) {
	engine := NewEngine(DefaultPolicy())

	tests := []struct {
		name string
		code FeeCode
		want uint64
	}{
		{"legacy under cap", FeeCodeFromUint64(300), 300},
		{"legacy over cap", FeeCodeFromUint64(10_000), 500},
		{"legacy huge word", NewFeeCode(new(big.Int).Lsh(big.NewInt(1), 200)), 500},
		{"versioned field", packFeeCode(1, 250), 250},
		{"versioned field over cap", packFeeCode(1, 2000), 500},
		{"referral bit leaves field uncapped", packFeeCode(1, 2000, bitReferralProgram), 2000},
		{"zero", packFeeCode(1, 0), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.DecodeFixedFeeBps(tt.code))
		})
	}
}

func TestComputeV3NonNegative(t *testing.T) {
	codes := []FeeCode{
		FeeCodeFromUint64(0),
		FeeCodeFromUint64(499),
		packFeeCode(1, 0x3FFF),
		packFeeCode(1, 0x3FFF, bitReferralProgram),
		packFeeCode(1, 0x3FFF, bitTakeFeeFromSrcToken),
		packFeeCode(1, 0x3FFF, bitNoFeeAndSplitSlippage),
	}
	partners := []struct {
		name string
		in   Input
	}{
		{"partner", Input{Partner: partnerABC}},
		{"null", Input{Partner: NullAddress}},
	}
	amounts := []int64{0, 1, 9_999, 10_000, 123_456_789}

	for _, code := range codes {
		for _, p := range partners {
			for _, from := range amounts {
				for _, received := range amounts {
					for _, swapType := range []SwapType{SwapTypeSell, SwapTypeBuy} {
						in := p.in
						in.FeeCode = code
						in.FromAmount = big.NewInt(from)
						in.ReceivedAmount = big.NewInt(received)
						in.ExpectedAmount = big.NewInt(10_000)
						in.SwapType = swapType

						share := ComputeFeeShare(in)
						require.GreaterOrEqual(t, share.Partner.Sign(), 0)
						require.GreaterOrEqual(t, share.Paraswap.Sign(), 0)
						if p.in.Partner == NullAddress {
							require.Zero(t, share.Partner.Sign(), "null partner never earns")
						}
					}
				}
			}
		}
	}
}

func TestComputeV3Monotonic(t *testing.T) {
	code := packFeeCode(1, 1500, bitReferralProgram)
	prev := big.NewInt(-1)
	for received := int64(1_000_001); received < 1_100_000; received += 7_919 {
		share := ComputeFeeShare(Input{
			FeeCode:        code,
			Partner:        partnerDEF,
			ReceivedAmount: big.NewInt(received),
			ExpectedAmount: big.NewInt(1_000_000),
			SwapType:       SwapTypeSell,
		})
		total := share.Total()
		assert.GreaterOrEqual(t, total.Cmp(prev), 0, "received=%d", received)
		prev = total
	}
}

func TestComputeIsIdempotentAndConcurrent(t *testing.T) {
	in := Input{
		FeeCode:        packFeeCode(1, 2000, bitReferralProgram),
		Partner:        partnerDEF,
		FromAmount:     big.NewInt(42),
		ReceivedAmount: big.NewInt(1_100_000),
		ExpectedAmount: big.NewInt(1_000_000),
		SwapType:       SwapTypeSell,
	}
	want := ComputeFeeShare(in)

	var wg sync.WaitGroup
	results := make([]Share, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = ComputeFeeShare(in)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want.Partner.String(), got.Partner.String())
		assert.Equal(t, want.Paraswap.String(), got.Paraswap.String())
	}
	// inputs are never mutated
	assert.Equal(t, "1100000", in.ReceivedAmount.String())
	assert.Equal(t, "1000000", in.ExpectedAmount.String())
}

func TestComputeDispatchesByScheme(t *testing.T) {
	engine := NewEngine(DefaultPolicy())
	in := Input{
		FeeCode:        FeeCodeFromUint64(30),
		Partner:        partnerABC,
		FromAmount:     big.NewInt(1_000_000),
		ReceivedAmount: big.NewInt(1_100_000),
		ExpectedAmount: big.NewInt(1_000_000),
		SwapType:       SwapTypeSell,
	}

	assertShare(t, 0, 0, engine.Compute(SchemeV0, in))
	assertShare(t, 2_550, 50_450, engine.Compute(SchemeV2, in))
	// fixed 0.3% on received, no slippage component
	assertShare(t, 2_805, 495, engine.Compute(SchemeV3, in))
}

func TestCustomPolicy(t *testing.T) {
	p := DefaultPolicy()
	p.PartnerSharePercent = 5000
	p.MaxFeePercent = 100
	engine := NewEngine(p)

	share := engine.ComputeV3(Input{
		FeeCode:        packFeeCode(1, 300),
		Partner:        partnerABC,
		ReceivedAmount: big.NewInt(1_000_000),
		ExpectedAmount: big.NewInt(1_000_000),
		SwapType:       SwapTypeSell,
	})
	assertShare(t, 5_000, 5_000, share)
	assert.Equal(t, int64(100), engine.Policy().MaxFeePercent)
}

func TestSwapTypeSideAndParseScheme(t *testing.T) {
	assert.Equal(t, "Buy", SwapTypeBuy.Side())
	assert.Equal(t, "Sell", SwapTypeSell.Side())

	s, err := ParseScheme("v3")
	require.NoError(t, err)
	assert.Equal(t, SchemeV3, s)
	assert.Equal(t, "v3", s.String())

	s, err = ParseScheme("")
	require.NoError(t, err)
	assert.Equal(t, SchemeV0, s)

	s, err = ParseScheme("none")
	require.NoError(t, err)
	assert.Equal(t, SchemeV0, s)

	_, err = ParseScheme("v9")
	assert.Error(t, err)
}

func TestPolicyLogObject(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	logger.Info().Object("fee_policy", DefaultPolicy()).Msg("")

	var line struct {
		Policy map[string]int64 `json:"fee_policy"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, map[string]int64{
		"denominator":                  10000,
		"partner_share":                8500,
		"max_fee":                      500,
		"paraswap_slippage_share":      10000,
		"paraswap_referral_share":      5000,
		"fixed_fee_slippage_threshold": 50,
	}, line.Policy)
}
