// Package cli provides the initialization shared by cmd/velam and
// cmd/velam-worker.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"velam/internal/amqp"
	"velam/internal/backend"
	"velam/internal/config"
	"velam/internal/ledger"
	"velam/internal/log"
	"velam/internal/services"
	"velam/internal/sheets"
	gsheet "velam/internal/sheets/google"
	"velam/internal/sheets/memory"
)

// SetupLogger builds the process logger at the given level and installs it
// as the slog default. An unknown level falls back to info.
func SetupLogger(level, component string, out io.Writer) *log.Logger {
	lvl, err := log.ParseLevel(level)
	logger := log.New(log.Config{Level: lvl, Component: component, Format: "text", Output: out})
	log.SetDefault(logger)
	if err != nil {
		logger.Warn("Falling back to info level", log.FieldError, err.Error())
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// amqpDialTimeout bounds the broker retries of a single command.
const amqpDialTimeout = 10 * time.Second

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// OpenLedgerService opens the configured backend, loads the ledger from it
// and, when AMQP_URL is set, connects the change feed. A broker that cannot
// be reached is logged and the service runs without notifications.
func OpenLedgerService(ctx context.Context, cfg *config.Config, logger *log.Logger) (*services.LedgerService, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	store, err := ledger.Open(ctx, res.Port, ledger.WithLogger(logger))
	if err != nil {
		if res.Cleanup != nil {
			res.Cleanup()
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	var opts []services.ServiceOption
	if cfg.AMQPURL != "" {
		dialCtx, cancel := context.WithTimeout(ctx, amqpDialTimeout)
		client, err := amqp.NewClient(dialCtx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change feed",
				log.NewFields().WithError(err).WithErrorType(log.ErrorTypeNetwork).ToSlice()...)
		} else {
			opts = append(opts, services.WithPublisher(client), services.WithCloser(client))
		}
		cancel()
	}
	if res.Cleanup != nil {
		opts = append(opts, services.WithCloser(closerFunc(res.Cleanup)))
	}
	return services.NewLedgerService(store, logger, opts...), nil
}

// NewReportWriter returns the Google Sheets writer when a spreadsheet is
// configured and an in-memory writer otherwise.
func NewReportWriter(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.ReportWriter, error) {
	if !cfg.ExportEnabled() {
		logger.InfoContext(ctx, "Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, keeping reports in memory")
		return memory.NewWriter(), nil
	}
	return gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleReportSheet,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.CredentialsFile(),
		Logger:          logger,
	})
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. After
// the signal, cleanup runs with at most timeout to finish.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)
		cancel()

		if cleanup != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
			defer shutdownCancel()
			cleanup(shutdownCtx)
		}
	}()

	return ctx
}
