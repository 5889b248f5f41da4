// Package worker keeps the exported report in step with the ledger written
// by other processes.
package worker

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"velam/internal/amqp"
	"velam/internal/ledger"
	"velam/internal/log"
	"velam/internal/sheets"
	"velam/internal/storage"
)

// RevisionSource is implemented by ports that count writes per key.
type RevisionSource interface {
	Revisions(ctx context.Context) (map[string]int64, error)
}

// ConsumeFunc delivers change notifications to handler until ctx is done.
type ConsumeFunc func(ctx context.Context, handler func(context.Context, *amqp.LedgerChangedMessage) error) error

// ReportWorker reloads the ledger from its port and exports a fresh report.
// It never writes to the ledger.
type ReportWorker struct {
	port     storage.Port
	writer   sheets.ReportWriter
	topLimit int
	logger   *log.Logger
	now      func() time.Time

	mu       sync.Mutex
	exported map[string]int64
}

func NewReportWorker(port storage.Port, writer sheets.ReportWriter, topLimit int, logger *log.Logger) *ReportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReportWorker{
		port:     port,
		writer:   writer,
		topLimit: topLimit,
		logger:   logger.WithComponent(log.ComponentWorker),
		now:      time.Now,
	}
}

// HandleLedgerChange exports after a change notification. A failed export
// is logged and the message still settled: redelivering it would retry at
// once, while the ticker retries on the next interval.
func (w *ReportWorker) HandleLedgerChange(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	w.logger.InfoContext(ctx, "Ledger change received",
		log.NewFields().WithOperation(msg.Operation).WithEntry(msg.Kind, msg.ID).ToSlice()...)
	w.exportLogged(ctx)
	return nil
}

// Export writes a new report unless the port reports the same revisions as
// the last successful export. It reports whether a report was written.
func (w *ReportWorker) Export(ctx context.Context) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var revisions map[string]int64
	if src, ok := w.port.(RevisionSource); ok {
		var err error
		if revisions, err = src.Revisions(ctx); err != nil {
			return false, fmt.Errorf("read revisions: %w", err)
		}
		if w.exported != nil && maps.Equal(revisions, w.exported) {
			w.logger.DebugContext(ctx, "Ledger unchanged, skipping export")
			return false, nil
		}
	}

	start := time.Now()
	store, err := ledger.Open(ctx, w.port, ledger.WithLogger(w.logger))
	if err != nil {
		return false, fmt.Errorf("reload ledger: %w", err)
	}
	report := ledger.BuildReport(store.Snapshot(), w.topLimit, w.now())
	if err := w.writer.WriteReport(ctx, report); err != nil {
		return false, fmt.Errorf("write report: %w", err)
	}
	w.exported = revisions

	w.logger.InfoContext(ctx, "Report exported",
		log.FieldOperation, log.OpExport,
		"months", len(report.Monthly),
		log.FieldDurationMs, time.Since(start).Milliseconds())
	return true, nil
}

// Run exports once, then on every tick of interval and on every message
// delivered by consume (when non-nil), until ctx is cancelled. Export
// failures are logged and retried on the next trigger.
func (w *ReportWorker) Run(ctx context.Context, interval time.Duration, consume ConsumeFunc) error {
	w.exportLogged(ctx)

	g, ctx := errgroup.WithContext(ctx)
	if consume != nil {
		g.Go(func() error {
			return consume(ctx, w.HandleLedgerChange)
		})
	}
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				w.exportLogged(ctx)
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *ReportWorker) exportLogged(ctx context.Context) {
	if _, err := w.Export(ctx); err != nil && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "Report export failed",
			log.NewFields().WithOperation(log.OpExport).WithError(err).ToSlice()...)
	}
}
