package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"htracker/internal/amqp"
	"htracker/internal/cli"
	applog "htracker/internal/log"
	"htracker/internal/sheets"
	"htracker/internal/sheets/google"
	"htracker/internal/sheets/memory"
	"htracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.InitStore(logger, cfg.SQLiteDBPath)
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var writer sheets.EntryWriter
	var deleter sheets.EntryDeleter
	if cfg.ExportConfigured() {
		client, err := google.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		writer, deleter = client, client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		mem := memory.New()
		writer, deleter = mem, mem
		logger.Warn("No spreadsheet configured, exporting to in-memory store only")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	w := worker.NewSyncWorker(store, writer, deleter, cfg.SyncBatchSize)

	// Drain entries that went pending while the worker was down.
	if err := w.StartupSyncCheck(ctx); err != nil {
		logger.Error("Startup sync check failed", applog.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeEntryMessages(gctx, func(msg *amqp.EntryMessage) error {
			return w.HandleMessage(gctx, msg)
		})
	})
	g.Go(func() error {
		return w.RunPendingScan(gctx, cfg.SyncInterval)
	})

	logger.Info("Sync worker started",
		"queue", cfg.AMQPQueue, "batch_size", cfg.SyncBatchSize, "scan_interval", cfg.SyncInterval.String())

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
