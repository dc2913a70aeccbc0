package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"livrocaixa/internal/amqp"
	"livrocaixa/internal/config"
	"livrocaixa/internal/core"
	applog "livrocaixa/internal/log"
	"livrocaixa/internal/mirror"
	"livrocaixa/internal/storage"
	"livrocaixa/internal/worker"
)

// backfillWindowDays bounds the startup recovery scan. Messages lost
// while the worker was down are re-mirrored from this window.
const backfillWindowDays = 7

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	cfg := applog.DefaultConfig()
	cfg.Component = applog.ComponentWorker
	logger := applog.New(cfg)
	applog.SetDefault(logger)

	logger.Info("Starting livrocaixa-worker")

	appCfg := config.Load()
	if err := appCfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	// The worker tails the shared SQLite ledger; a memory backend has
	// nothing to mirror.
	if appCfg.AMQPURL == "" || appCfg.MirrorSpreadsheetID == "" {
		logger.Error("Worker requires AMQP_URL and MIRROR_SPREADSHEET_ID")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := storage.NewSQLiteRepository(appCfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", appCfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	sheets, err := mirror.New(ctx, appCfg.MirrorSpreadsheetID, appCfg.MirrorSheetName)
	if err != nil {
		logger.Error("Failed to initialize spreadsheet mirror", "error", err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(appCfg.AMQPURL, appCfg.AMQPExchange, appCfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	mirrorWorker := worker.NewMirrorWorker(repo, sheets)

	// On startup, re-mirror recent rows in case deliveries were lost
	// while the worker was down.
	since := core.DateOf(time.Now().AddDate(0, 0, -backfillWindowDays))
	if _, err := mirrorWorker.BackfillBatch(ctx, since, appCfg.SyncBatchSize); err != nil {
		logger.Error("Startup backfill failed", "error", err)
		// Don't exit - continue with normal operation
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeTransactionSync(ctx, func(msg *amqp.TransactionSyncMessage) error {
			return mirrorWorker.HandleMessage(ctx, msg)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(appCfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				since := core.DateOf(time.Now().AddDate(0, 0, -backfillWindowDays))
				if _, err := mirrorWorker.BackfillBatch(ctx, since, appCfg.SyncBatchSize); err != nil {
					logger.Error("Periodic backfill failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
