package main

import (
	"os"
	"time"

	"velam/internal/amqp"
	"velam/internal/backend"
	"velam/internal/cli"
	"velam/internal/log"
	"velam/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		// logger not configured yet
		cli.SetupLogger("info", log.ComponentWorker, os.Stdout).Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentWorker, os.Stdout)
	logger.Info("Starting velam-worker", log.FieldOperation, log.OpStartup, "backend", cfg.DataBackend)

	ctx := log.NewContext(cli.GracefulShutdown(logger, 30*time.Second, nil), logger)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err.Error())
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to open ledger backend", log.FieldError, err.Error())
		os.Exit(1)
	}
	if res.Cleanup != nil {
		defer res.Cleanup()
	}

	writer, err := cli.NewReportWriter(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize report writer", log.FieldError, err.Error())
		os.Exit(1)
	}

	var consume worker.ConsumeFunc
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
			os.Exit(1)
		}
		defer client.Close()
		consume = client.ConsumeLedgerChanges
	} else {
		logger.Info("AMQP disabled - exporting on the interval only", "interval", cfg.ExportInterval.String())
	}

	w := worker.NewReportWorker(res.Port, writer, cfg.TopBorrowersLimit, logger)
	if err := w.Run(ctx, cfg.ExportInterval, consume); err != nil {
		logger.Error("Report worker stopped", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete", log.FieldOperation, log.OpShutdown)
}
