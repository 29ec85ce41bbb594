package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/paraswap/paraswap-subgraph/internal/config"
	"github.com/paraswap/paraswap-subgraph/internal/processor"
)

func main() {
	var (
		configPath string
		moduleName string
		fromBlock  uint64
		toBlock    uint64
		account    string
		swapIDs    string
	)

	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&moduleName, "module", "", "Module name to backfill (all modules when empty)")
	flag.Uint64Var(&fromBlock, "from", 0, "Starting block (defaults to the first stored log)")
	flag.Uint64Var(&toBlock, "to", 0, "Ending block (defaults to the last stored log)")
	flag.StringVar(&account, "account", "", "Print the partner and referrer ledgers of this account afterwards")
	flag.StringVar(&swapIDs, "swaps", "", "Comma separated swap ids to print afterwards")
	flag.Parse()

	// INDEXER_* overrides may live in a local .env file
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		Level(level).
		With().Timestamp().Logger()

	indexer, err := processor.NewIndexer(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create indexer")
	}
	defer indexer.Stop()

	logger.Info().
		Str("module", moduleName).
		Uint64("from", fromBlock).
		Uint64("to", toBlock).
		Msg("Starting backfill")

	ctx := context.Background()
	if err := indexer.Backfill(ctx, moduleName, fromBlock, toBlock); err != nil {
		logger.Error().Err(err).Msg("Backfill failed")
		return
	}

	logger.Info().Msg("Backfill completed")

	var ids []string
	for _, id := range strings.Split(swapIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if account == "" && len(ids) == 0 {
		return
	}

	report, err := indexer.Report(ctx, account, ids)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read back ledgers")
		return
	}
	report.Log(logger)
}
