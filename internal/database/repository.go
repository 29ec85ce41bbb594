package database

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/jackc/pgx/v5"
	"github.com/paraswap/paraswap-subgraph/internal/modules/core"
)

// SwapRepository stores Augustus swaps, fees and reward ledgers
type SwapRepository struct {
	db *Database
}

func NewSwapRepository(db *Database) *SwapRepository {
	return &SwapRepository{db: db}
}

const insertSwapQuery = `
	INSERT INTO swaps (
		id, uuid, augustus, augustus_version, side, method,
		initiator, beneficiary, src_token, dest_token,
		src_amount, dest_amount, expected_amount,
		referrer, referrer_fee, paraswap_fee, referral_program, fee_token, fee_code,
		tx_hash, tx_origin, tx_target, tx_gas_used, tx_gas_price,
		block_hash, block_number, timestamp
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27
	)
	ON CONFLICT (id) DO NOTHING`

// RecordSwap inserts a swap and, if the swap is new, applies credit to its
// reward ledger in the same transaction. Replaying a swap that is already
// stored changes nothing. The returned ledger is nil when nothing was credited.
func (r *SwapRepository) RecordSwap(ctx context.Context, swap *Swap, credit *RewardCredit) (*RewardLedger, error) {
	var ledger *RewardLedger

	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, insertSwapQuery,
			swap.ID,
			swap.UUID,
			swap.Augustus,
			swap.AugustusVersion,
			swap.Side,
			swap.Method,
			swap.Initiator,
			swap.Beneficiary,
			swap.SrcToken,
			swap.DestToken,
			BigIntToNumeric(swap.SrcAmount),
			BigIntToNumeric(swap.DestAmount),
			BigIntToNumeric(swap.ExpectedAmount),
			swap.Referrer,
			BigIntToNumeric(swap.ReferrerFee),
			BigIntToNumeric(swap.ParaswapFee),
			swap.ReferralProgram,
			swap.FeeToken,
			BigIntToNumeric(swap.FeeCode),
			swap.TxHash,
			swap.TxOrigin,
			swap.TxTarget,
			BigIntToNumeric(swap.TxGasUsed),
			BigIntToNumeric(swap.TxGasPrice),
			swap.BlockHash,
			swap.BlockNumber,
			swap.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to insert swap %s: %w", swap.ID, err)
		}

		if tag.RowsAffected() == 0 || credit == nil || credit.Amount == nil || credit.Amount.Sign() <= 0 {
			return nil
		}

		ledger, err = creditReward(ctx, tx, credit)
		return err
	})
	if err != nil {
		return nil, err
	}

	return ledger, nil
}

func creditReward(ctx context.Context, tx pgx.Tx, credit *RewardCredit) (*RewardLedger, error) {
	table, err := credit.Kind.Table()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		INSERT INTO %[1]s (id, account, token, total_rewards)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			total_rewards = %[1]s.total_rewards + EXCLUDED.total_rewards,
			updated_at = NOW()
		RETURNING total_rewards::text`, table)

	id := credit.LedgerID()
	var total string
	if err := tx.QueryRow(ctx, query, id, credit.Account, credit.Token, credit.Amount.String()).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to credit %s ledger %s: %w", credit.Kind, id, err)
	}

	return &RewardLedger{
		ID:           id,
		Kind:         credit.Kind,
		Account:      credit.Account,
		Token:        credit.Token,
		TotalRewards: NumericToBigInt(&total),
	}, nil
}

// SaveFee inserts a FeeTaken record
func (r *SwapRepository) SaveFee(ctx context.Context, fee *Fee) error {
	query := `
		INSERT INTO fees (id, augustus, augustus_version, fee, partner_share, paraswap_share, tx_hash, block_number, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.pool.Exec(ctx, query,
		fee.ID,
		fee.Augustus,
		fee.AugustusVersion,
		BigIntToNumeric(fee.Fee),
		BigIntToNumeric(fee.PartnerShare),
		BigIntToNumeric(fee.ParaswapShare),
		fee.TxHash,
		fee.BlockNumber,
		fee.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert fee %s: %w", fee.ID, err)
	}

	return nil
}

// GetSwap retrieves a swap by id
func (r *SwapRepository) GetSwap(ctx context.Context, id string) (*Swap, error) {
	query := `
		SELECT id, uuid, augustus, augustus_version, side, method,
		       initiator, beneficiary, src_token, dest_token,
		       src_amount::text, dest_amount::text, expected_amount::text,
		       referrer, referrer_fee::text, paraswap_fee::text, referral_program, fee_token, fee_code::text,
		       tx_hash, tx_origin, tx_target, tx_gas_used::text, tx_gas_price::text,
		       block_hash, block_number, timestamp
		FROM swaps
		WHERE id = $1`

	var (
		s                                  Swap
		srcAmount, destAmount              string
		expected, referrerFee, paraswapFee *string
		feeCode, gasUsed, gasPrice         *string
	)
	err := r.db.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.UUID, &s.Augustus, &s.AugustusVersion, &s.Side, &s.Method,
		&s.Initiator, &s.Beneficiary, &s.SrcToken, &s.DestToken,
		&srcAmount, &destAmount, &expected,
		&s.Referrer, &referrerFee, &paraswapFee, &s.ReferralProgram, &s.FeeToken, &feeCode,
		&s.TxHash, &s.TxOrigin, &s.TxTarget, &gasUsed, &gasPrice,
		&s.BlockHash, &s.BlockNumber, &s.Timestamp,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get swap %s: %w", id, err)
	}

	s.SrcAmount = NumericToBigInt(&srcAmount)
	s.DestAmount = NumericToBigInt(&destAmount)
	s.ExpectedAmount = NumericToBigInt(expected)
	s.ReferrerFee = NumericToBigInt(referrerFee)
	s.ParaswapFee = NumericToBigInt(paraswapFee)
	s.FeeCode = NumericToBigInt(feeCode)
	s.TxGasUsed = NumericToBigInt(gasUsed)
	s.TxGasPrice = NumericToBigInt(gasPrice)

	return &s, nil
}

// ListLedgers returns every ledger entry of an account
func (r *SwapRepository) ListLedgers(ctx context.Context, kind RewardKind, account string) ([]*RewardLedger, error) {
	table, err := kind.Table()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, account, token, total_rewards::text
		FROM %s
		WHERE account = $1
		ORDER BY token`, table)

	rows, err := r.db.pool.Query(ctx, query, strings.ToLower(account))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s ledgers: %w", kind, err)
	}
	defer rows.Close()

	var ledgers []*RewardLedger
	for rows.Next() {
		l := &RewardLedger{Kind: kind}
		var total string
		if err := rows.Scan(&l.ID, &l.Account, &l.Token, &total); err != nil {
			return nil, fmt.Errorf("failed to scan %s ledger: %w", kind, err)
		}
		l.TotalRewards = NumericToBigInt(&total)
		ledgers = append(ledgers, l)
	}

	return ledgers, rows.Err()
}

// SourceRepository reads the raw blocks, transactions and event_logs tables
type SourceRepository struct {
	db *Database
}

func NewSourceRepository(db *Database) *SourceRepository {
	return &SourceRepository{db: db}
}

// TxContext loads the transaction and block fields a swap needs
func (r *SourceRepository) TxContext(ctx context.Context, txHash common.Hash) (*TxContext, error) {
	query := `
		SELECT t.hash, t.block_number, b.hash, b.timestamp,
		       t.from_address, t.to_address, t.gas_limit, t.gas_used, t.gas_price::text
		FROM transactions t
		LEFT JOIN blocks b ON b.number = t.block_number
		WHERE t.hash = $1`

	var (
		tc        TxContext
		blockHash *string
		timestamp *int64
		gasPrice  *string
	)
	err := r.db.pool.QueryRow(ctx, query, strings.ToLower(txHash.Hex())).Scan(
		&tc.Hash,
		&tc.BlockNumber,
		&blockHash,
		&timestamp,
		&tc.From,
		&tc.To,
		&tc.GasLimit,
		&tc.GasUsed,
		&gasPrice,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction context %s: %w", txHash.Hex(), err)
	}

	if blockHash != nil {
		tc.BlockHash = *blockHash
	}
	if timestamp != nil {
		tc.Timestamp = *timestamp
	}
	tc.GasPrice = NumericToBigInt(gasPrice)

	return &tc, nil
}

// LogsInRange returns stored logs matching any of the filters, in chain order
func (r *SourceRepository) LogsInRange(ctx context.Context, fromBlock, toBlock uint64, filters []core.EventFilter) ([]*types.Log, error) {
	clause, args := logFilterClause(filters, 3)
	if clause == "" {
		return nil, nil
	}

	query := `
		SELECT block_number, block_hash, transaction_hash, transaction_index,
		       log_index, address, topics, data, removed
		FROM event_logs
		WHERE block_number >= $1 AND block_number <= $2
		  AND NOT removed
		  AND (` + clause + `)
		ORDER BY block_number, transaction_index, log_index`

	rows, err := r.db.pool.Query(ctx, query, append([]any{fromBlock, toBlock}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event logs %d-%d: %w", fromBlock, toBlock, err)
	}
	defer rows.Close()

	var logs []*types.Log
	for rows.Next() {
		var l EventLog
		if err := rows.Scan(
			&l.BlockNumber,
			&l.BlockHash,
			&l.TransactionHash,
			&l.TransactionIndex,
			&l.LogIndex,
			&l.Address,
			&l.Topics,
			&l.Data,
			&l.Removed,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event log: %w", err)
		}

		ethLog, err := l.ToEthereumLog()
		if err != nil {
			r.db.logger.Warn().Err(err).Str("tx", l.TransactionHash).Msg("Skipping undecodable event log")
			continue
		}
		logs = append(logs, ethLog)
	}

	return logs, rows.Err()
}

// CallsInRange returns successful transactions whose target and selector
// match any of the filters, in chain order
func (r *SourceRepository) CallsInRange(ctx context.Context, fromBlock, toBlock uint64, filters []core.CallFilter) ([]*core.Call, error) {
	clause, args := callFilterClause(filters, 3)
	if clause == "" {
		return nil, nil
	}

	query := `
		SELECT t.hash, t.transaction_index, t.block_number, b.hash, b.timestamp,
		       t.from_address, t.to_address, t.input, t.gas_limit, t.gas_used, t.gas_price::text
		FROM transactions t
		LEFT JOIN blocks b ON b.number = t.block_number
		WHERE t.block_number >= $1 AND t.block_number <= $2
		  AND t.status = 1
		  AND (` + clause + `)
		ORDER BY t.block_number, t.transaction_index`

	rows, err := r.db.pool.Query(ctx, query, append([]any{fromBlock, toBlock}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query calls %d-%d: %w", fromBlock, toBlock, err)
	}
	defer rows.Close()

	var calls []*core.Call
	for rows.Next() {
		var (
			hash, from, input string
			to, blockHash     *string
			txIndex           int
			timestamp         *int64
			gasPrice          *string
			call              core.Call
		)
		if err := rows.Scan(
			&hash,
			&txIndex,
			&call.BlockNumber,
			&blockHash,
			&timestamp,
			&from,
			&to,
			&input,
			&call.GasLimit,
			&call.GasUsed,
			&gasPrice,
		); err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}

		data, err := decodeHexData(input)
		if err != nil {
			r.db.logger.Warn().Err(err).Str("tx", hash).Msg("Skipping call with undecodable input")
			continue
		}

		call.TxHash = common.HexToHash(hash)
		call.TxIndex = uint(txIndex)
		call.From = common.HexToAddress(from)
		if to != nil {
			call.To = common.HexToAddress(*to)
		}
		if blockHash != nil {
			call.BlockHash = common.HexToHash(*blockHash)
		}
		if timestamp != nil && *timestamp > 0 {
			call.Timestamp = uint64(*timestamp)
		}
		call.Input = data
		call.GasPrice = NumericToBigInt(gasPrice)
		if call.GasPrice == nil {
			call.GasPrice = new(big.Int)
		}

		calls = append(calls, &call)
	}

	return calls, rows.Err()
}

// logFilterClause renders filters as an OR of (address, topic0) matches.
// Placeholders start at $argStart.
func logFilterClause(filters []core.EventFilter, argStart int) (string, []any) {
	var (
		parts []string
		args  []any
	)
	next := func(v string) string {
		args = append(args, strings.ToLower(v))
		return "$" + strconv.Itoa(argStart+len(args)-1)
	}

	for _, f := range filters {
		var conds []string
		if f.Address != "" {
			conds = append(conds, "address = "+next(f.Address))
		}
		if f.Topic0 != "" {
			conds = append(conds, "topics->>0 = "+next(f.Topic0))
		}
		if len(conds) == 0 {
			// A filter without address or topic matches everything
			return "TRUE", nil
		}
		parts = append(parts, "("+strings.Join(conds, " AND ")+")")
	}

	return strings.Join(parts, " OR "), args
}

// callFilterClause renders filters as an OR of (to_address, selector) matches
func callFilterClause(filters []core.CallFilter, argStart int) (string, []any) {
	var (
		parts []string
		args  []any
	)
	next := func(v string) string {
		args = append(args, strings.ToLower(v))
		return "$" + strconv.Itoa(argStart+len(args)-1)
	}

	for _, f := range filters {
		if f.Selector == "" {
			continue
		}
		cond := "substring(lower(t.input) from 1 for 10) = " + next(f.Selector)
		if f.Address != "" {
			cond = "t.to_address = " + next(f.Address) + " AND " + cond
		}
		parts = append(parts, "("+cond+")")
	}

	return strings.Join(parts, " OR "), args
}

// ModuleStateRepository persists module_state rows
type ModuleStateRepository struct {
	db *Database
}

func NewModuleStateRepository(db *Database) *ModuleStateRepository {
	return &ModuleStateRepository{db: db}
}

// InitModuleState creates the module row or refreshes its version. An
// interrupted backfill or an error is reset to active; paused stays paused.
func (r *ModuleStateRepository) InitModuleState(ctx context.Context, name, version string, startBlock uint64) error {
	var initial uint64
	if startBlock > 0 {
		initial = startBlock - 1
	}

	query := `
		INSERT INTO module_state (module_name, version, last_processed_block, status)
		VALUES ($1, $2, $3, 'active')
		ON CONFLICT (module_name) DO UPDATE SET
			version = EXCLUDED.version,
			status = CASE WHEN module_state.status = 'paused' THEN 'paused' ELSE 'active' END,
			backfill_from_block = NULL,
			backfill_to_block = NULL,
			updated_at = NOW()`

	if _, err := r.db.pool.Exec(ctx, query, name, version, initial); err != nil {
		return fmt.Errorf("failed to init module state for %s: %w", name, err)
	}
	return nil
}

// GetModuleState returns the state row of a module
func (r *ModuleStateRepository) GetModuleState(ctx context.Context, name string) (*core.ModuleState, error) {
	query := `
		SELECT module_name, version, last_processed_block, status,
		       backfill_from_block, backfill_to_block, metadata,
		       EXTRACT(EPOCH FROM created_at)::BIGINT, EXTRACT(EPOCH FROM updated_at)::BIGINT
		FROM module_state
		WHERE module_name = $1`

	var state core.ModuleState
	err := r.db.pool.QueryRow(ctx, query, name).Scan(
		&state.ModuleName,
		&state.Version,
		&state.LastProcessedBlock,
		&state.Status,
		&state.BackfillFromBlock,
		&state.BackfillToBlock,
		&state.Metadata,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("module %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get module state for %s: %w", name, err)
	}

	return &state, nil
}

func (r *ModuleStateRepository) SetModuleStatus(ctx context.Context, name string, status core.ModuleStatus) error {
	query := `UPDATE module_state SET status = $2, updated_at = NOW() WHERE module_name = $1`
	if _, err := r.db.pool.Exec(ctx, query, name, string(status)); err != nil {
		return fmt.Errorf("failed to set status of %s: %w", name, err)
	}
	return nil
}

// SetModuleBlock advances the last processed block; it never moves backwards
func (r *ModuleStateRepository) SetModuleBlock(ctx context.Context, name string, blockNumber uint64) error {
	query := `
		UPDATE module_state
		SET last_processed_block = GREATEST(last_processed_block, $2), updated_at = NOW()
		WHERE module_name = $1`
	if _, err := r.db.pool.Exec(ctx, query, name, blockNumber); err != nil {
		return fmt.Errorf("failed to update block of %s: %w", name, err)
	}
	return nil
}

func (r *ModuleStateRepository) SetBackfillRange(ctx context.Context, name string, fromBlock, toBlock *uint64) error {
	query := `
		UPDATE module_state
		SET backfill_from_block = $2, backfill_to_block = $3, updated_at = NOW()
		WHERE module_name = $1`
	if _, err := r.db.pool.Exec(ctx, query, name, fromBlock, toBlock); err != nil {
		return fmt.Errorf("failed to set backfill range of %s: %w", name, err)
	}
	return nil
}

// ModuleBlock returns the last processed block of a module
func (r *ModuleStateRepository) ModuleBlock(ctx context.Context, name string) (uint64, error) {
	var lastBlock uint64
	query := `SELECT last_processed_block FROM module_state WHERE module_name = $1`
	if err := r.db.pool.QueryRow(ctx, query, name).Scan(&lastBlock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("module %s: %w", name, ErrNotFound)
		}
		return 0, fmt.Errorf("failed to get block of %s: %w", name, err)
	}
	return lastBlock, nil
}
