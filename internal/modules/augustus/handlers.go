package augustus

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/paraswap/paraswap-subgraph/internal/database"
	"github.com/paraswap/paraswap-subgraph/internal/feeshare"
	"github.com/paraswap/paraswap-subgraph/internal/metrics"
	"github.com/paraswap/paraswap-subgraph/internal/modules/core"
)

const (
	sideSell    = "Sell"
	sideBuy     = "Buy"
	methodEvent = "event"
)

var eventHandlers = map[string]eventHandlerFunc{
	"handleSwapped":       handleSwapped,
	"handlePayed":         handlePayed,
	"handleBought":        handleBought,
	"handleFeeTaken":      handleFeeTaken,
	"handleSwapped2":      handleSwapped2,
	"handleBought2":       handleBought2,
	"handleSwappedV3":     handleSwappedV3,
	"handleBoughtV3":      handleBoughtV3,
	"handleSwappedDirect": handleSwappedDirect,
}

// defaultSchemes is the fee-share rule of each fee-code event when the
// manifest does not name one
var defaultSchemes = map[string]feeshare.Scheme{
	"handleSwapped2":      feeshare.SchemeV2,
	"handleBought2":       feeshare.SchemeV2,
	"handleSwappedV3":     feeshare.SchemeV3,
	"handleBoughtV3":      feeshare.SchemeV3,
	"handleSwappedDirect": feeshare.SchemeV3,
}

func handlerScheme(h core.EventHandler) (feeshare.Scheme, error) {
	if h.FeeScheme == "" {
		return defaultSchemes[h.Handler], nil
	}
	scheme, err := feeshare.ParseScheme(h.FeeScheme)
	if err != nil {
		return feeshare.SchemeV0, fmt.Errorf("handler %s: %w", h.Handler, err)
	}
	return scheme, nil
}

// feeScheme is the rule bound to the event's contract and topic
func (m *Module) feeScheme(ev *core.ParsedEvent) feeshare.Scheme {
	return m.events[eventKey{address: ev.Log.Address, topic: ev.Log.Topics[0]}].scheme
}

// eventVersion is the Augustus version stamped on records of an event.
// The 5.x swapper emits three generations of events from one address.
func (m *Module) eventVersion(eventName string) string {
	if m.config.Release != Release5 {
		return m.config.Release
	}
	switch eventName {
	case "Swapped2", "Bought2":
		return "5.2.0"
	case "SwappedV3", "BoughtV3", "SwappedDirect":
		return "5.3.0"
	default:
		return "5.0.0"
	}
}

func eventID(ev *core.ParsedEvent) string {
	return ev.TransactionHash.Hex() + "-" + strconv.FormatUint(uint64(ev.LogIndex), 10)
}

func lower(addr common.Address) string {
	return database.AddressToLower(addr)
}

func ptr[T any](v T) *T {
	return &v
}

// newEventSwap fills the fields every event-sourced swap shares
func (m *Module) newEventSwap(ctx context.Context, ev *core.ParsedEvent, side string) (*database.Swap, error) {
	a := args(ev.Args)

	srcToken, err := a.address("srcToken")
	if err != nil {
		return nil, err
	}
	destToken, err := a.address("destToken")
	if err != nil {
		return nil, err
	}
	srcAmount, err := a.bigInt("srcAmount")
	if err != nil {
		return nil, err
	}
	receivedAmount, err := a.bigInt("receivedAmount")
	if err != nil {
		return nil, err
	}

	swap := &database.Swap{
		ID:              eventID(ev),
		Augustus:        lower(ev.Address),
		AugustusVersion: m.eventVersion(ev.EventName),
		Side:            side,
		Method:          methodEvent,
		SrcToken:        lower(srcToken),
		DestToken:       lower(destToken),
		SrcAmount:       srcAmount,
		DestAmount:      receivedAmount,
		TxHash:          ev.TransactionHash.Hex(),
		BlockHash:       ev.BlockHash.Hex(),
		BlockNumber:     ev.BlockNumber,
	}
	if ev.Timestamp != nil {
		swap.Timestamp = ev.Timestamp.Int64()
	}
	if uuid, ok := a.uuid("uuid"); ok {
		swap.UUID = &uuid
	}

	if err := m.applyTxContext(ctx, swap, ev.TransactionHash); err != nil {
		return nil, err
	}
	return swap, nil
}

// applyTxContext copies sender, gas and block time of the emitting
// transaction. A transaction missing from the raw tables leaves them unset.
func (m *Module) applyTxContext(ctx context.Context, swap *database.Swap, txHash common.Hash) error {
	tc, err := m.stores.Source.TxContext(ctx, txHash)
	if errors.Is(err, database.ErrNotFound) {
		m.logger.Debug().Str("tx", swap.TxHash).Msg("Transaction not found, leaving tx fields empty")
		return nil
	}
	if err != nil {
		return err
	}

	swap.TxOrigin = ptr(tc.From)
	swap.TxTarget = tc.To
	gas := tc.GasUsed
	if m.config.GasFromLimit {
		gas = tc.GasLimit
	}
	swap.TxGasUsed = new(big.Int).SetUint64(gas)
	swap.TxGasPrice = tc.GasPrice
	if tc.Timestamp != 0 {
		swap.Timestamp = tc.Timestamp
	}
	if swap.BlockHash == (common.Hash{}).Hex() && tc.BlockHash != "" {
		swap.BlockHash = tc.BlockHash
	}
	return nil
}

// setParties reads initiator and beneficiary. Augustus 0.2.0 names a single
// user that plays both roles.
func setParties(swap *database.Swap, a args) error {
	if user, err := a.address("user"); err == nil {
		swap.Initiator = ptr(lower(user))
		swap.Beneficiary = lower(user)
		return nil
	}

	initiator, err := a.address("initiator")
	if err != nil {
		return err
	}
	beneficiary, err := a.address("beneficiary")
	if err != nil {
		return err
	}
	swap.Initiator = ptr(lower(initiator))
	swap.Beneficiary = lower(beneficiary)
	return nil
}

// setReferrer records the free-form referrer string of releases 2.0.0 and 4.0.0
func (m *Module) setReferrer(swap *database.Swap, a args) {
	if r := m.config.Release; r != Release2 && r != Release4 {
		return
	}
	if referrer, ok := a.str("referrer"); ok {
		swap.Referrer = &referrer
	}
}

func handleSwapped(ctx context.Context, m *Module, ev *core.ParsedEvent) error {
	swap, err := m.newEventSwap(ctx, ev, sideSell)
	if err != nil {
		return err
	}
	a := args(ev.Args)
	if err := setParties(swap, a); err != nil {
		return err
	}
	swap.ExpectedAmount = a.optionalBigInt("expectedAmount")
	m.setReferrer(swap, a)
	return m.recordSwap(ctx, swap, nil)
}

// handlePayed records the 0.2.0 pay-to variant of a sell. The recipient is
// known, the initiator is not.
func handlePayed(ctx context.Context, m *Module, ev *core.ParsedEvent) error {
	swap, err := m.newEventSwap(ctx, ev, sideSell)
	if err != nil {
		return err
	}
	to, err := args(ev.Args).address("to")
	if err != nil {
		return err
	}
	swap.Beneficiary = lower(to)
	return m.recordSwap(ctx, swap, nil)
}

func handleBought(ctx context.Context, m *Module, ev *core.ParsedEvent) error {
	swap, err := m.newEventSwap(ctx, ev, sideBuy)
	if err != nil {
		return err
	}
	a := args(ev.Args)
	if err := setParties(swap, a); err != nil {
		return err
	}
	swap.ExpectedAmount = a.optionalBigInt("expectedAmount")
	m.setReferrer(swap, a)
	return m.recordSwap(ctx, swap, nil)
}

func handleFeeTaken(ctx context.Context, m *Module, ev *core.ParsedEvent) error {
	a := args(ev.Args)
	fee, err := a.bigInt("fee")
	if err != nil {
		return err
	}
	partnerShare, err := a.bigInt("partnerShare")
	if err != nil {
		return err
	}
	paraswapShare, err := a.bigInt("paraswapShare")
	if err != nil {
		return err
	}

	record := &database.Fee{
		ID:              eventID(ev),
		Augustus:        lower(ev.Address),
		AugustusVersion: m.eventVersion(ev.EventName),
		Fee:             fee,
		PartnerShare:    partnerShare,
		ParaswapShare:   paraswapShare,
		TxHash:          ev.TransactionHash.Hex(),
		BlockNumber:     ev.BlockNumber,
	}
	if ev.Timestamp != nil {
		record.Timestamp = ev.Timestamp.Int64()
	}
	tc, err := m.stores.Source.TxContext(ctx, ev.TransactionHash)
	switch {
	case err == nil:
		record.Timestamp = tc.Timestamp
	case !errors.Is(err, database.ErrNotFound):
		return err
	}

	return m.stores.Swaps.SaveFee(ctx, record)
}

// feeEvent is the fee-carrying part shared by the 5.2 and 5.3 events
type feeEvent struct {
	partner  common.Address
	feeCode  feeshare.FeeCode
	feeBig   *big.Int
	src      common.Address
	dest     common.Address
	srcAmt   *big.Int
	received *big.Int
}

func decodeFeeEvent(a args) (*feeEvent, error) {
	partner, err := a.address("partner")
	if err != nil {
		return nil, err
	}
	feePercent, err := a.bigInt("feePercent")
	if err != nil {
		return nil, err
	}
	src, err := a.address("srcToken")
	if err != nil {
		return nil, err
	}
	dest, err := a.address("destToken")
	if err != nil {
		return nil, err
	}
	srcAmount, err := a.bigInt("srcAmount")
	if err != nil {
		return nil, err
	}
	received, err := a.bigInt("receivedAmount")
	if err != nil {
		return nil, err
	}

	return &feeEvent{
		partner:  partner,
		feeCode:  feeshare.NewFeeCode(feePercent),
		feeBig:   feePercent,
		src:      src,
		dest:     dest,
		srcAmt:   srcAmount,
		received: received,
	}, nil
}

func handleSwapped2(ctx context.Context, m *Module, ev *core.ParsedEvent) error {
	return m.handleFeeShareV2(ctx, ev, sideSell)
}

func handleBought2(ctx context.Context, m *Module, ev *core.ParsedEvent) error {
	return m.handleFeeShareV2(ctx, ev, sideBuy)
}

// handleFeeShareV2 records a 5.2 swap. The fee is always charged in the
// destination token and nothing is credited to a ledger.
func (m *Module) handleFeeShareV2(ctx context.Context, ev *core.ParsedEvent, side string) error {
	a := args(ev.Args)
	fe, err := decodeFeeEvent(a)
	if err != nil {
		return err
	}

	swap, err := m.newEventSwap(ctx, ev, side)
	if err != nil {
		return err
	}
	if err := setParties(swap, a); err != nil {
		return err
	}

	// Bought2 carries no expected amount; the fee is measured against the
	// received amount instead.
	expected := fe.received
	if side == sideSell {
		swap.ExpectedAmount = a.optionalBigInt("expectedAmount")
		if swap.ExpectedAmount == nil {
			return missingArg("expectedAmount")
		}
		expected = swap.ExpectedAmount
	}

	share := m.engine.Compute(m.feeScheme(ev), feeshare.Input{
		FeeCode:        fe.feeCode,
		Partner:        fe.partner,
		FromAmount:     fe.srcAmt,
		ReceivedAmount: fe.received,
		ExpectedAmount: expected,
	})

	swap.Referrer = ptr(lower(fe.partner))
	swap.ReferrerFee = share.Partner
	swap.ParaswapFee = share.Paraswap
	swap.FeeCode = fe.feeBig
	swap.FeeToken = ptr(lower(fe.dest))
	return m.recordSwap(ctx, swap, nil)
}

func handleSwappedV3(ctx context.Context, m *Module, ev *core.ParsedEvent) error {
	return m.handleFeeShareV3(ctx, ev, feeshare.SwapTypeSell, sellFeeToken)
}

func handleBoughtV3(ctx context.Context, m *Module, ev *core.ParsedEvent) error {
	return m.handleFeeShareV3(ctx, ev, feeshare.SwapTypeBuy, buyFeeToken)
}

// handleSwappedDirect records a direct-route swap. Direct swaps are replayed
// with the buy rule but keep the sell fee-token choice.
func handleSwappedDirect(ctx context.Context, m *Module, ev *core.ParsedEvent) error {
	return m.handleFeeShareV3(ctx, ev, feeshare.SwapTypeBuy, sellFeeToken)
}

func sellFeeToken(fe *feeEvent) common.Address {
	if fe.feeCode.IsTakeFeeFromSrcToken() {
		return fe.src
	}
	return fe.dest
}

// buyFeeToken ignores the source-token flag for referral and slippage-split
// codes, which always settle in the source token.
func buyFeeToken(fe *feeEvent) common.Address {
	if fe.feeCode.IsReferralProgram() || fe.feeCode.IsNoFeeAndSplitSlippage() || fe.feeCode.IsTakeFeeFromSrcToken() {
		return fe.src
	}
	return fe.dest
}

// handleFeeShareV3 records a 5.3 swap and credits a positive partner share
// to the referrer ledger for referral codes, to the partner ledger otherwise.
func (m *Module) handleFeeShareV3(ctx context.Context, ev *core.ParsedEvent, swapType feeshare.SwapType, feeToken func(*feeEvent) common.Address) error {
	a := args(ev.Args)
	fe, err := decodeFeeEvent(a)
	if err != nil {
		return err
	}
	expected, err := a.bigInt("expectedAmount")
	if err != nil {
		return err
	}

	swap, err := m.newEventSwap(ctx, ev, swapType.Side())
	if err != nil {
		return err
	}
	if err := setParties(swap, a); err != nil {
		return err
	}

	share := m.engine.Compute(m.feeScheme(ev), feeshare.Input{
		FeeCode:        fe.feeCode,
		Partner:        fe.partner,
		FromAmount:     fe.srcAmt,
		ReceivedAmount: fe.received,
		ExpectedAmount: expected,
		SwapType:       swapType,
	})

	referral := fe.feeCode.IsReferralProgram()
	token := feeToken(fe)

	swap.ExpectedAmount = expected
	swap.Referrer = ptr(lower(fe.partner))
	swap.ReferrerFee = share.Partner
	swap.ParaswapFee = share.Paraswap
	swap.ReferralProgram = ptr(referral)
	swap.FeeToken = ptr(lower(token))
	swap.FeeCode = fe.feeBig

	var credit *database.RewardCredit
	if share.Partner.Sign() > 0 {
		kind := database.RewardPartner
		if referral {
			kind = database.RewardReferrer
		}
		credit = &database.RewardCredit{
			Kind:    kind,
			Account: lower(fe.partner),
			Token:   lower(token),
			Amount:  new(big.Int).Set(share.Partner),
		}
	}

	return m.recordSwap(ctx, swap, credit)
}

// recordSwap stores swap with its optional credit and forwards ledger
// updates to the notifier
func (m *Module) recordSwap(ctx context.Context, swap *database.Swap, credit *database.RewardCredit) error {
	ledger, err := m.stores.Swaps.RecordSwap(ctx, swap, credit)
	if err != nil {
		return err
	}

	m.logger.Debug().
		Str("id", swap.ID).
		Str("version", swap.AugustusVersion).
		Str("side", swap.Side).
		Str("method", swap.Method).
		Msg("Recorded swap")
	metrics.SwapsRecorded.WithLabelValues(m.Name(), swap.Method).Inc()

	if ledger == nil {
		return nil
	}

	m.logger.Info().
		Str("ledger", ledger.ID).
		Str("kind", string(ledger.Kind)).
		Str("total_rewards", ledger.TotalRewards.String()).
		Msg("Reward credited")
	metrics.RewardCredits.WithLabelValues(m.Name(), string(ledger.Kind)).Inc()
	if m.notifier != nil {
		m.notifier.NotifyReward(ledger, swap)
	}
	return nil
}
