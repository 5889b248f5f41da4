package ledger

import (
	"time"

	"velam/internal/core"
)

// Report is the read-only projection exported to spreadsheets.
type Report struct {
	GeneratedAt  time.Time             `json:"generatedAt"`
	Totals       core.Totals           `json:"totals"`
	Monthly      []core.MonthlySummary `json:"monthly"`
	TopBorrowers []core.Borrower       `json:"topBorrowers"`
}

// BuildReport computes every aggregate of snap at once.
func BuildReport(snap Snapshot, topLimit int, now time.Time) Report {
	return Report{
		GeneratedAt:  now,
		Totals:       snap.Totals(),
		Monthly:      snap.MonthlySummary(),
		TopBorrowers: snap.TopBorrowers(topLimit),
	}
}
