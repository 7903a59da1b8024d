package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"kharcha/internal/amqp"
	"kharcha/internal/config"
	"kharcha/internal/export"
	"kharcha/internal/ingest"
	applog "kharcha/internal/log"
	"kharcha/internal/storage"
	"kharcha/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(slog.LevelInfo, applog.ComponentWorker)
	applog.SetDefault(logger)

	logger.Info("Starting kharcha-worker")

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		feed := worker.NewFeedWorker(ingest.NewService(repo))
		group.Go(func() error {
			logger.Info("Starting bank feed consumer", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
			err := amqp.ConsumeWithReconnect(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, feed.HandleBankMessage)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	if cfg.GoogleSpreadsheetID != "" {
		appender, err := export.NewFromEnv(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		exporter := worker.NewExportWorker(repo, appender, cfg.ExportBatchSize)

		group.Go(func() error {
			logger.Info("Starting sheet export loop", "interval", cfg.ExportInterval.String(), "batch_size", cfg.ExportBatchSize)

			// Drain anything left over from a previous run before settling
			// into the ticker cadence.
			if err := exporter.ProcessPending(ctx); err != nil {
				logger.Error("Startup export pass failed", "error", err)
			}

			ticker := time.NewTicker(cfg.ExportInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := exporter.ProcessPending(ctx); err != nil {
						logger.Error("Export pass failed", "error", err)
					}
				}
			}
		})
	} else {
		logger.Info("Sheet export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	if err := group.Wait(); err != nil {
		logger.Error("Worker exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
