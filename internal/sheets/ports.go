// Package sheets defines where the ledger report is exported to.
package sheets

import (
	"context"

	"velam/internal/ledger"
)

// Ports for outbound adapters.
type (
	// ReportWriter replaces the exported report with r.
	ReportWriter interface {
		WriteReport(ctx context.Context, r ledger.Report) error
	}
)
