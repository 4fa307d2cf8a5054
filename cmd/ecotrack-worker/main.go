package main

import (
	"context"
	"errors"
	"os"
	"time"

	"ecotrack/internal/amqp"
	"ecotrack/internal/cli"
	"ecotrack/internal/log"
	"ecotrack/internal/ports"
	gsheet "ecotrack/internal/sheets/google"
	"ecotrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Stdout, os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentWorker)
	logger.Info("Starting ecotrack-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by the worker")
		os.Exit(1)
	}

	var exporter ports.ActivityExporter
	if cfg.SheetsExportEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.OptionsFromConfig(cfg))
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		exporter = worker.NewLogExporter(logger)
		logger.Info("Google Sheets disabled, exporting activities to the log")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) error {
		return amqpClient.Close()
	})

	w := worker.NewExportWorker(exporter, logger, cfg.ExportBatchSize, cfg.ExportInterval)
	if err := w.Run(ctx, amqpClient); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", log.FieldError, err, "pending", w.Pending())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete", "pending", w.Pending())
}
