// Package memory keeps exported reports in process memory, for tests and dry
// runs without a spreadsheet.
package memory

import (
	"context"
	"sync"

	"velam/internal/ledger"
	ports "velam/internal/sheets"
)

type Writer struct {
	mu      sync.Mutex
	reports []ledger.Report
}

var _ ports.ReportWriter = (*Writer)(nil)

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) WriteReport(ctx context.Context, r ledger.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reports = append(w.reports, r)
	return nil
}

// Last returns the most recent report.
func (w *Writer) Last() (ledger.Report, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.reports) == 0 {
		return ledger.Report{}, false
	}
	return w.reports[len(w.reports)-1], true
}

// Count is the number of reports written so far.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.reports)
}
