package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/connstorm/connstorm/internal/config"
	"github.com/connstorm/connstorm/internal/conn"
	"github.com/connstorm/connstorm/internal/feed"
	"github.com/connstorm/connstorm/internal/population"
	"github.com/connstorm/connstorm/internal/sink"
	"github.com/connstorm/connstorm/internal/stats"
	"github.com/connstorm/connstorm/internal/version"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "configs/connstorm.yaml", "path to config file")
	flag.Parse()

	// Bootstrap logger; replaced once the configured level is known.
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	kind := cfg.Target.Transport()
	logger.Info("starting connstorm",
		"version", version.Version,
		"commit", version.Commit,
		"run_id", cfg.Run.ID,
		"target", cfg.Target.URL,
		"transport", kind,
		"mode", cfg.Population.Mode,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Data feed; unreachable feed is recoverable (static count fallback).
	dataFeed := feed.NewRedis(cfg.Feed.Redis, logger)
	if err := dataFeed.Ping(ctx); err != nil {
		logger.Warn("data feed unreachable, population will use static count", "error", err)
	} else {
		logger.Info("data feed connected", "addr", cfg.Feed.Redis.Addr)
	}

	// Metrics sink
	pgSink, err := sink.NewPostgres(ctx, cfg.Sink, logger)
	if err != nil {
		logger.Error("failed to connect metrics sink", "error", err)
		os.Exit(1)
	}
	if err := pgSink.Start(ctx); err != nil {
		logger.Error("failed to start metrics sink", "error", err)
		os.Exit(1)
	}
	logger.Info("metrics sink connected",
		"host", cfg.Sink.Postgres.Host,
		"database", cfg.Sink.Postgres.Name,
	)

	// Stats aggregator
	aggregator := stats.New(stats.Config{RunID: cfg.Run.ID}, pgSink, logger)
	if err := aggregator.Start(ctx); err != nil {
		logger.Error("failed to start stats aggregator", "error", err)
		os.Exit(1)
	}

	// Population manager
	manager := population.New(population.Config{
		Kind:          kind,
		URLTemplate:   cfg.Target.URL,
		Method:        cfg.Target.Method,
		Mode:          cfg.Population.Mode,
		StaticCount:   cfg.Population.Count,
		Replicas:      cfg.Population.Replicas,
		RatePerSecond: cfg.Population.RatePerSecond,
		RetryDelay:    cfg.Population.RetryDelay.Std(),
		TLS:           conn.NewTLSConfig(cfg.Target.InsecureSkipVerify),
	}, dataFeed, aggregator, logger)

	if err := manager.Start(ctx); err != nil {
		logger.Error("failed to start population manager", "error", err)
		os.Exit(1)
	}

	// Periodic population snapshot for the console.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				snap := manager.Snapshot()
				logger.Info("population",
					"total", snap.Total,
					"active", snap.Active,
				)
			}
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("connstorm stopped")
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
