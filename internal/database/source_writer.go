package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// SourceBatch is a slice of raw chain data as exported by an ingester
type SourceBatch struct {
	Blocks       []*Block       `json:"blocks"`
	Transactions []*Transaction `json:"transactions"`
	Logs         []*EventLog    `json:"logs"`
}

// Normalize lower-cases hashes and addresses so they compare equal to the
// values written by the Augustus handlers and filters.
func (b *SourceBatch) Normalize() {
	for _, block := range b.Blocks {
		block.Hash = strings.ToLower(block.Hash)
		block.ParentHash = strings.ToLower(block.ParentHash)
	}
	for _, tx := range b.Transactions {
		tx.Hash = strings.ToLower(tx.Hash)
		tx.FromAddress = strings.ToLower(tx.FromAddress)
		if tx.ToAddress != nil {
			to := strings.ToLower(*tx.ToAddress)
			tx.ToAddress = &to
		}
		tx.Input = strings.ToLower(tx.Input)
		if tx.Input == "" {
			tx.Input = "0x"
		}
	}
	for _, l := range b.Logs {
		l.BlockHash = strings.ToLower(l.BlockHash)
		l.TransactionHash = strings.ToLower(l.TransactionHash)
		l.Address = strings.ToLower(l.Address)
		for i, t := range l.Topics {
			l.Topics[i] = strings.ToLower(t)
		}
		l.Data = strings.ToLower(l.Data)
	}
}

// SourceWriter loads raw chain data with PostgreSQL COPY
type SourceWriter struct {
	db     *Database
	logger zerolog.Logger
}

func NewSourceWriter(db *Database, logger zerolog.Logger) *SourceWriter {
	return &SourceWriter{
		db:     db,
		logger: logger.With().Str("component", "source_writer").Logger(),
	}
}

// WriteBatch upserts a batch in a single transaction
func (w *SourceWriter) WriteBatch(ctx context.Context, batch *SourceBatch) error {
	if len(batch.Blocks) == 0 && len(batch.Transactions) == 0 && len(batch.Logs) == 0 {
		return nil
	}
	batch.Normalize()

	start := time.Now()
	err := w.db.Transaction(ctx, func(tx pgx.Tx) error {
		if err := copyBlocks(ctx, tx, batch.Blocks); err != nil {
			return fmt.Errorf("failed to copy blocks: %w", err)
		}
		if err := copyTransactions(ctx, tx, batch.Transactions); err != nil {
			return fmt.Errorf("failed to copy transactions: %w", err)
		}
		if err := copyEventLogs(ctx, tx, batch.Logs); err != nil {
			return fmt.Errorf("failed to copy event logs: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	w.logger.Debug().
		Int("blocks", len(batch.Blocks)).
		Int("transactions", len(batch.Transactions)).
		Int("event_logs", len(batch.Logs)).
		Dur("elapsed", time.Since(start)).
		Msg("Source batch written")

	return nil
}

func copyBlocks(ctx context.Context, tx pgx.Tx, blocks []*Block) error {
	if len(blocks) == 0 {
		return nil
	}

	if _, err := tx.Exec(ctx, `
		CREATE TEMPORARY TABLE temp_blocks (
			number BIGINT,
			hash TEXT,
			parent_hash TEXT,
			timestamp BIGINT,
			gas_limit BIGINT,
			gas_used BIGINT,
			transaction_count INTEGER
		) ON COMMIT DROP
	`); err != nil {
		return err
	}

	_, err := tx.CopyFrom(ctx, pgx.Identifier{"temp_blocks"},
		[]string{"number", "hash", "parent_hash", "timestamp", "gas_limit", "gas_used", "transaction_count"},
		pgx.CopyFromSlice(len(blocks), func(i int) ([]any, error) {
			b := blocks[i]
			return []any{b.Number, b.Hash, b.ParentHash, b.Timestamp, b.GasLimit, b.GasUsed, b.TransactionCount}, nil
		}))
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO blocks (number, hash, parent_hash, timestamp, gas_limit, gas_used, transaction_count)
		SELECT number, hash, parent_hash, timestamp, gas_limit, gas_used, transaction_count
		FROM temp_blocks
		ON CONFLICT (number) DO UPDATE SET
			hash = EXCLUDED.hash,
			parent_hash = EXCLUDED.parent_hash,
			timestamp = EXCLUDED.timestamp,
			gas_limit = EXCLUDED.gas_limit,
			gas_used = EXCLUDED.gas_used,
			transaction_count = EXCLUDED.transaction_count
	`)
	return err
}

func copyTransactions(ctx context.Context, tx pgx.Tx, transactions []*Transaction) error {
	if len(transactions) == 0 {
		return nil
	}

	if _, err := tx.Exec(ctx, `
		CREATE TEMPORARY TABLE temp_transactions (
			hash TEXT,
			block_number BIGINT,
			transaction_index INTEGER,
			from_address TEXT,
			to_address TEXT,
			value TEXT,
			gas_price TEXT,
			gas_limit BIGINT,
			gas_used BIGINT,
			nonce BIGINT,
			input TEXT,
			status INTEGER
		) ON COMMIT DROP
	`); err != nil {
		return err
	}

	_, err := tx.CopyFrom(ctx, pgx.Identifier{"temp_transactions"},
		[]string{"hash", "block_number", "transaction_index", "from_address", "to_address", "value", "gas_price", "gas_limit", "gas_used", "nonce", "input", "status"},
		pgx.CopyFromSlice(len(transactions), func(i int) ([]any, error) {
			t := transactions[i]
			return []any{
				t.Hash,
				t.BlockNumber,
				t.TransactionIndex,
				t.FromAddress,
				t.ToAddress,
				BigIntToNumeric(t.Value),
				BigIntToNumeric(t.GasPrice),
				t.GasLimit,
				t.GasUsed,
				t.Nonce,
				t.Input,
				t.Status,
			}, nil
		}))
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (hash, block_number, transaction_index, from_address, to_address, value, gas_price, gas_limit, gas_used, nonce, input, status)
		SELECT hash, block_number, transaction_index, from_address, to_address, value::numeric, gas_price::numeric, gas_limit, gas_used, nonce, input, status
		FROM temp_transactions
		ON CONFLICT (hash) DO UPDATE SET
			block_number = EXCLUDED.block_number,
			transaction_index = EXCLUDED.transaction_index,
			gas_used = EXCLUDED.gas_used,
			status = EXCLUDED.status
	`)
	return err
}

func copyEventLogs(ctx context.Context, tx pgx.Tx, logs []*EventLog) error {
	if len(logs) == 0 {
		return nil
	}

	if _, err := tx.Exec(ctx, `
		CREATE TEMPORARY TABLE temp_event_logs (
			block_number BIGINT,
			block_hash TEXT,
			transaction_hash TEXT,
			transaction_index INTEGER,
			log_index INTEGER,
			address TEXT,
			topics TEXT,
			data TEXT,
			removed BOOLEAN
		) ON COMMIT DROP
	`); err != nil {
		return err
	}

	_, err := tx.CopyFrom(ctx, pgx.Identifier{"temp_event_logs"},
		[]string{"block_number", "block_hash", "transaction_hash", "transaction_index", "log_index", "address", "topics", "data", "removed"},
		pgx.CopyFromSlice(len(logs), func(i int) ([]any, error) {
			l := logs[i]
			topics, err := encodeTopics(l.Topics)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal topics of %s/%d: %w", l.TransactionHash, l.LogIndex, err)
			}
			return []any{
				l.BlockNumber,
				l.BlockHash,
				l.TransactionHash,
				l.TransactionIndex,
				l.LogIndex,
				l.Address,
				string(topics),
				l.Data,
				l.Removed,
			}, nil
		}))
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO event_logs (block_number, block_hash, transaction_hash, transaction_index, log_index, address, topics, data, removed)
		SELECT block_number, block_hash, transaction_hash, transaction_index, log_index, address, topics::jsonb, data, removed
		FROM temp_event_logs
		ON CONFLICT (block_number, transaction_index, log_index) DO UPDATE SET
			block_hash = EXCLUDED.block_hash,
			transaction_hash = EXCLUDED.transaction_hash,
			removed = EXCLUDED.removed
	`)
	return err
}
