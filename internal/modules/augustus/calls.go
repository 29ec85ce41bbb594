package augustus

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/paraswap/paraswap-subgraph/internal/database"
	"github.com/paraswap/paraswap-subgraph/internal/modules/core"
)

var callHandlers = map[string]callHandlerFunc{
	"handleSwapOnUniswap":           handleSwapOnUniswap,
	"handleSwapOnUniswapFork":       handleSwapOnUniswap,
	"handleBuyOnUniswap":            handleBuyOnUniswap,
	"handleBuyOnUniswapFork":        handleBuyOnUniswap,
	"handleSwapOnZeroXv2":           handleSwapOnZeroX,
	"handleSwapOnZeroXv2WithPermit": handleSwapOnZeroX,
	"handleSwapOnZeroXv4":           handleSwapOnZeroX,
	"handleSwapOnZeroXv4WithPermit": handleSwapOnZeroX,

	"handleDirectUniV3Swap":              directHandler(sideSell, directTokens),
	"handleDirectUniV3Buy":               directHandler(sideBuy, directTokens),
	"handleDirectCurveV1Swap":            directHandler(sideSell, directTokens),
	"handleDirectCurveV2Swap":            directHandler(sideSell, directTokens),
	"handleDirectBalancerV2GivenInSwap":  directHandler(sideSell, balancerTokens),
	"handleDirectBalancerV2GivenOutSwap": directHandler(sideBuy, balancerTokens),
}

// callVersion is the version stamped on call-sourced swaps
func (m *Module) callVersion() string {
	if m.config.Release == Release5 {
		return "5.0.0"
	}
	return m.config.Release
}

// callSwapID derives a stable id for a swap decoded from a call. A call has
// no log index, so the id hashes what identifies the trade inside its
// transaction.
func callSwapID(method string, txHash common.Hash, src, dest common.Address, amountA, amountB *big.Int) string {
	key := strings.Join([]string{
		method,
		txHash.Hex(),
		lower(src),
		lower(dest),
		amountA.String(),
		amountB.String(),
	}, "-")
	return crypto.Keccak256Hash([]byte(key)).Hex()
}

// pathEnds returns the first and last token of a swap path
func pathEnds(a args) (common.Address, common.Address, error) {
	path, err := a.addresses("path")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	if len(path) < 2 {
		return common.Address{}, common.Address{}, fmt.Errorf("%w: invalid path length %d", errMalformed, len(path))
	}
	return path[0], path[len(path)-1], nil
}

func handleSwapOnUniswap(ctx context.Context, m *Module, pc *core.ParsedCall) error {
	a := args(pc.Args)
	src, dest, err := pathEnds(a)
	if err != nil {
		return err
	}
	amountIn, err := a.bigInt("amountIn")
	if err != nil {
		return err
	}
	amountOutMin, err := a.bigInt("amountOutMin")
	if err != nil {
		return err
	}
	return m.recordCallSwap(ctx, pc, sideSell, src, dest, amountIn, amountOutMin, pc.Call.From)
}

func handleBuyOnUniswap(ctx context.Context, m *Module, pc *core.ParsedCall) error {
	a := args(pc.Args)
	src, dest, err := pathEnds(a)
	if err != nil {
		return err
	}
	amountInMax, err := a.bigInt("amountInMax")
	if err != nil {
		return err
	}
	amountOut, err := a.bigInt("amountOut")
	if err != nil {
		return err
	}
	return m.recordCallSwap(ctx, pc, sideBuy, src, dest, amountInMax, amountOut, pc.Call.From)
}

func handleSwapOnZeroX(ctx context.Context, m *Module, pc *core.ParsedCall) error {
	a := args(pc.Args)
	src, err := a.address("fromToken")
	if err != nil {
		return err
	}
	dest, err := a.address("toToken")
	if err != nil {
		return err
	}
	fromAmount, err := a.bigInt("fromAmount")
	if err != nil {
		return err
	}
	amountOutMin, err := a.bigInt("amountOutMin")
	if err != nil {
		return err
	}
	return m.recordCallSwap(ctx, pc, sideSell, src, dest, fromAmount, amountOutMin, pc.Call.From)
}

// tokenResolver picks the traded pair out of a direct swap payload
type tokenResolver func(data args) (common.Address, common.Address, error)

func directTokens(data args) (common.Address, common.Address, error) {
	src, err := data.address("fromToken")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	dest, err := data.address("toToken")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return src, dest, nil
}

// balancerTokens resolves the pair through the vault asset list: the input
// of the first batch step and the output of the last one.
func balancerTokens(data args) (common.Address, common.Address, error) {
	steps, err := data.tuples("swaps")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	if len(steps) == 0 {
		return common.Address{}, common.Address{}, fmt.Errorf("%w: no batch swap steps", errMalformed)
	}
	assets, err := data.addresses("assets")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	src, err := assetAt(assets, steps[0], "assetInIndex")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	dest, err := assetAt(assets, steps[len(steps)-1], "assetOutIndex")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return src, dest, nil
}

func assetAt(assets []common.Address, step args, field string) (common.Address, error) {
	index, err := step.bigInt(field)
	if err != nil {
		return common.Address{}, err
	}
	if !index.IsUint64() || index.Uint64() >= uint64(len(assets)) {
		return common.Address{}, fmt.Errorf("%w: %s %s out of range for %d assets", errMalformed, field, index, len(assets))
	}
	return assets[index.Uint64()], nil
}

// directHandler builds the handler for the direct* methods. They take one
// struct argument named data that carries the amounts and the beneficiary.
func directHandler(side string, tokens tokenResolver) callHandlerFunc {
	return func(ctx context.Context, m *Module, pc *core.ParsedCall) error {
		data, err := args(pc.Args).tuple("data")
		if err != nil {
			return err
		}
		src, dest, err := tokens(data)
		if err != nil {
			return err
		}
		fromAmount, err := data.bigInt("fromAmount")
		if err != nil {
			return err
		}
		toAmount, err := data.bigInt("toAmount")
		if err != nil {
			return err
		}
		beneficiary, err := data.address("beneficiary")
		if err != nil {
			return err
		}
		return m.recordCallSwap(ctx, pc, side, src, dest, fromAmount, toAmount, beneficiary)
	}
}

// recordCallSwap stores a swap whose amounts are the caller's limits, not
// the executed amounts. The sender is the initiator.
func (m *Module) recordCallSwap(ctx context.Context, pc *core.ParsedCall, side string, src, dest common.Address, srcAmount, destAmount *big.Int, beneficiary common.Address) error {
	call := pc.Call
	sender := lower(call.From)

	gas := call.GasUsed
	if m.config.GasFromLimit {
		gas = call.GasLimit
	}

	swap := &database.Swap{
		ID:              callSwapID(pc.MethodName, call.TxHash, src, dest, srcAmount, destAmount),
		Augustus:        lower(call.To),
		AugustusVersion: m.callVersion(),
		Side:            side,
		Method:          pc.MethodName,
		Initiator:       ptr(sender),
		Beneficiary:     lower(beneficiary),
		SrcToken:        lower(src),
		DestToken:       lower(dest),
		SrcAmount:       srcAmount,
		DestAmount:      destAmount,
		TxHash:          call.TxHash.Hex(),
		TxOrigin:        ptr(sender),
		TxTarget:        ptr(lower(call.To)),
		TxGasUsed:       new(big.Int).SetUint64(gas),
		TxGasPrice:      call.GasPrice,
		BlockHash:       call.BlockHash.Hex(),
		BlockNumber:     call.BlockNumber,
		Timestamp:       int64(call.Timestamp),
	}

	return m.recordSwap(ctx, swap, nil)
}
