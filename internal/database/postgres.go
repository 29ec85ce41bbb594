package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paraswap/paraswap-subgraph/internal/config"
	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("not found")

type Database struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func New(ctx context.Context, cfg *config.DatabaseConfig, logger zerolog.Logger) (*Database, error) {
	connString := cfg.ConnectionString()

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConnections
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Msg("Connected to database")

	return &Database{
		pool:   pool,
		logger: logger.With().Str("component", "database").Logger(),
	}, nil
}

func (db *Database) Close() {
	db.pool.Close()
	db.logger.Info().Msg("Database connection closed")
}

func (db *Database) Pool() *pgxpool.Pool {
	return db.pool
}

// Transaction executes a function within a database transaction
func (db *Database) Transaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				db.logger.Error().Err(rbErr).Msg("Failed to rollback transaction")
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// LatestBlockNumber returns the highest block the ingester has stored
func (db *Database) LatestBlockNumber(ctx context.Context) (uint64, error) {
	var blockNumber *int64
	query := `SELECT MAX(number) FROM blocks`

	if err := db.pool.QueryRow(ctx, query).Scan(&blockNumber); err != nil {
		return 0, fmt.Errorf("failed to get latest block number: %w", err)
	}
	if blockNumber == nil {
		return 0, ErrNotFound
	}

	return uint64(*blockNumber), nil
}

// LogBlockRange returns the lowest and highest block present in event_logs
func (db *Database) LogBlockRange(ctx context.Context) (uint64, uint64, error) {
	var minBlock, maxBlock *int64
	query := `SELECT MIN(block_number), MAX(block_number) FROM event_logs`

	if err := db.pool.QueryRow(ctx, query).Scan(&minBlock, &maxBlock); err != nil {
		return 0, 0, fmt.Errorf("failed to get event log range: %w", err)
	}
	if minBlock == nil || maxBlock == nil {
		return 0, 0, ErrNotFound
	}

	return uint64(*minBlock), uint64(*maxBlock), nil
}

// FindMissingBlocks finds gaps in block numbers between start and end
func (db *Database) FindMissingBlocks(ctx context.Context, start, end uint64) ([]uint64, error) {
	query := `
		SELECT e.block_num
		FROM generate_series($1::BIGINT, $2::BIGINT) AS e(block_num)
		LEFT JOIN blocks b ON e.block_num = b.number
		WHERE b.number IS NULL
		ORDER BY e.block_num`

	rows, err := db.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to find missing blocks: %w", err)
	}
	defer rows.Close()

	var missing []uint64
	for rows.Next() {
		var blockNum uint64
		if err := rows.Scan(&blockNum); err != nil {
			return nil, err
		}
		missing = append(missing, blockNum)
	}

	return missing, rows.Err()
}
