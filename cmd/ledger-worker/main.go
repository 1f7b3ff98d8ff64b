package main

import (
	"context"
	"errors"
	"os"
	"time"
	_ "time/tzdata"

	"ledger/internal/amqp"
	"ledger/internal/cli"
	applog "ledger/internal/log"
	"ledger/internal/services"
	gsheet "ledger/internal/sheets/google"
	"ledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	if err := cfg.ValidateExport(); err != nil {
		logger.Error("Export configuration invalid", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting ledger-worker")

	store := cli.InitStore(context.Background(), logger, cfg)
	defer store.Cleanup()

	exporter, err := gsheet.New(context.Background(), gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
		TabPrefix:       cfg.GoogleSheetPrefix,
		Logger:          logger.WithComponent(applog.ComponentSheets),
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(applog.ComponentAMQP))
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	// Reports are read fresh for every export; the API process owns the cache.
	reports := services.NewCashflowService(store.Store, cli.Clock(cfg),
		services.WithCashflowLogger(logger.WithComponent(applog.ComponentCashflow)))
	exportWorker := worker.NewExportWorker(reports, exporter, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	go exportWorker.RunRetries(ctx, cfg.ExportRetryInterval)

	logger.Info("Consuming transaction events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	if err := amqpClient.ConsumeTransactionEvents(ctx, exportWorker.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped", "pending_exports", len(exportWorker.Pending()))
}
