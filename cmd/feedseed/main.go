package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/connstorm/connstorm/internal/config"
	"github.com/connstorm/connstorm/internal/feed"
)

const chunkSize = 500

// feedseed loads a CSV of test data into the shared Redis feed: one JSON
// row per data line pushed onto the rows list, plus the total row count.
func main() {
	configPath := flag.String("config", "configs/connstorm.yaml", "path to config file")
	csvPath := flag.String("csv", "", "path to CSV data file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if *csvPath == "" {
		logger.Error("-csv is required")
		os.Exit(1)
	}

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Feed.Redis.Addr == "" {
		logger.Error("feed.redis.addr is required")
		os.Exit(1)
	}

	file, err := os.Open(*csvPath)
	if err != nil {
		logger.Error("failed to open csv", "error", err)
		os.Exit(1)
	}
	defer file.Close()

	rows, err := feed.ReadCSV(file)
	if err != nil {
		logger.Error("failed to parse csv", "error", err)
		os.Exit(1)
	}
	logger.Info("parsed csv", "rows", len(rows), "file", *csvPath)

	ctx := context.Background()
	dataFeed := feed.NewRedis(cfg.Feed.Redis, logger)
	defer dataFeed.Close()

	if err := dataFeed.Ping(ctx); err != nil {
		logger.Error("feed unreachable", "error", err)
		os.Exit(1)
	}

	if err := dataFeed.Reset(ctx); err != nil {
		logger.Error("failed to reset feed", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for start := 0; start < len(rows); start += chunkSize {
		chunk := rows[start:min(start+chunkSize, len(rows))]
		g.Go(func() error {
			return dataFeed.Push(gctx, chunk)
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("failed to push rows", "error", err)
		os.Exit(1)
	}

	if err := dataFeed.SetCount(ctx, len(rows)); err != nil {
		logger.Error("failed to set row count", "error", err)
		os.Exit(1)
	}

	logger.Info("feed seeded",
		"rows", len(rows),
		"list_key", cfg.Feed.Redis.ListKey,
		"count_key", cfg.Feed.Redis.CountKey,
	)
}
