package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/paraswap/paraswap-subgraph/internal/config"
	"github.com/paraswap/paraswap-subgraph/internal/database"
)

// import loads raw chain data exported as JSON lines, one database.SourceBatch
// per line, into the blocks, transactions and event_logs tables.
func main() {
	var (
		configPath string
		inputPath  string
	)

	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&inputPath, "input", "", "JSONL file of source batches (stdin when empty)")
	flag.Parse()

	// INDEXER_* overrides may live in a local .env file
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		Level(zerolog.InfoLevel).
		With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	input := os.Stdin
	if inputPath != "" {
		f, err := os.Open(inputPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", inputPath).Msg("Failed to open input")
		}
		defer f.Close()
		input = f
	}

	if err := database.RunMigrations(ctx, &cfg.Database, logger); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	writer := database.NewSourceWriter(db, logger)

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 1<<20), 64<<20)

	var (
		batches, logs         int
		firstBlock, lastBlock uint64
	)
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var batch database.SourceBatch
		if err := json.Unmarshal(scanner.Bytes(), &batch); err != nil {
			logger.Error().Err(err).Int("line", line).Msg("Failed to decode batch")
			return
		}
		if err := writer.WriteBatch(ctx, &batch); err != nil {
			logger.Error().Err(err).Int("line", line).Msg("Failed to write batch")
			return
		}
		batches++
		logs += len(batch.Logs)
		for _, b := range batch.Blocks {
			if firstBlock == 0 || b.Number < firstBlock {
				firstBlock = b.Number
			}
			lastBlock = max(lastBlock, b.Number)
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Error().Err(err).Msg("Failed to read input")
		return
	}

	logger.Info().Int("batches", batches).Int("event_logs", logs).Msg("Import completed")

	if lastBlock == 0 {
		return
	}
	// a gap means the ingester skipped blocks the modules will read past
	missing, err := db.FindMissingBlocks(ctx, firstBlock, lastBlock)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to check for missing blocks")
		return
	}
	if len(missing) > 0 {
		logger.Warn().
			Int("count", len(missing)).
			Uint64("first_missing", missing[0]).
			Uint64("from", firstBlock).
			Uint64("to", lastBlock).
			Msg("Imported range has missing blocks")
	}
}
