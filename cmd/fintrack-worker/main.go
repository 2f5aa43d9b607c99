package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/sheets/google"
	"fintrack/internal/telemetry"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()
	log.SetDefault(logger)
	logger = logger.WithComponent("worker")

	if err := cfg.ValidateExport(); err != nil {
		logger.Error("Export configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	shutdownTracing, err := telemetry.Init(ctx, cfg.ServiceName+"-worker", cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	repo, err := cli.InitRepository(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize repository", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	creds, err := google.CredentialsFromConfig(cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile)
	if err != nil {
		logger.Error("Failed to load Google credentials", "error", err)
		os.Exit(1)
	}
	ledger, err := google.New(ctx, google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: creds,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets ledger", "error", err)
		os.Exit(1)
	}

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	exporter := worker.NewExportWorker(repo, ledger)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Consuming transaction changes", "queue", cfg.AMQPQueue)
		if err := consumer.ConsumeTransactionChanges(gctx, exporter.HandleChange); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return exporter.RunReconcileLoop(gctx, cfg.ExportInterval)
	})

	err = g.Wait()
	if err != nil {
		logger.Error("Worker stopped with error", "error", err)
	}

	shutdownErr := cli.GracefulShutdown(logger, 15*time.Second,
		func(context.Context) error { return consumer.Close() },
		func(context.Context) error { return repo.Close() },
		func(ctx context.Context) error { return shutdownTracing(ctx) },
	)
	if err != nil || shutdownErr != nil {
		os.Exit(1)
	}
}
