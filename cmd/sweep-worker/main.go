package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"scadenze/internal/amqp"
	"scadenze/internal/config"
	"scadenze/internal/core"
	"scadenze/internal/log"
	"scadenze/internal/services"
	"scadenze/internal/storage"
)

func main() {
	// Load .env for local development; missing files are fine in production.
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker)
	log.SetDefault(logger)

	logger.Info("Starting sweep-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			defer client.Close()
			events = client
		}
	}

	engine := services.NewEngine(repo, repo, events)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := engine.Initialize(ctx); err != nil {
		logger.Error("Engine initialization failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Sweep worker configured",
		"interval", cfg.SweepInterval,
		"sqlite_db", cfg.SQLiteDBPath)
	// The overlap guard inside the engine is per process.
	logger.Warn("Overlap protection is in-process only; run a single replica or front sweeps with a distributed lease")

	runSweep := func(now time.Time) {
		summary, err := engine.Run(ctx, core.Truncate(now))
		if err != nil {
			logger.Error("Sweep failed", "error", err)
			return
		}
		logger.Info("Sweep finished",
			"status", string(summary.Status),
			"processed", summary.Processed,
			"skipped", summary.Skipped,
			"errored", summary.Errored)
	}

	// One sweep at startup so a worker that was down does not wait a full
	// interval to catch up.
	runSweep(time.Now())

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				runSweep(now)
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())
	cancel()
	logger.Info("Sweep-worker shutdown complete")
}
