package google

import (
	"time"

	"velam/internal/core"
	"velam/internal/ledger"
)

// reportRows lays r out as three blocks separated by blank rows: totals,
// monthly summary and top borrowers. Month keys stay text; amounts are
// numbers so the sheet can chart them.
func reportRows(r ledger.Report) [][]any {
	num := func(a core.Amount) any { return a.Float() }

	rows := [][]any{
		{"Velam fund report", r.GeneratedAt.UTC().Format(time.RFC3339)},
		{},
		{"Totals"},
		{"Total contributions", num(r.Totals.Contributions)},
		{"Total interest", num(r.Totals.Interest)},
		{"Loans given", num(r.Totals.LoansGiven)},
		{"Loans returned", num(r.Totals.LoansReturned)},
		{"Total expenses", num(r.Totals.Expenses)},
		{"Available balance", num(r.Totals.AvailableBalance)},
		{},
		{"Monthly summary"},
		{"Month", "Contributions", "Loans given", "Loans returned", "Interest", "Expenses"},
	}
	for _, m := range r.Monthly {
		rows = append(rows, []any{
			m.Month,
			num(m.Contributions),
			num(m.LoansGiven),
			num(m.LoansReturned),
			num(m.Interest),
			num(m.Expenses),
		})
	}

	rows = append(rows, []any{}, []any{"Top borrowers"}, []any{"Name", "Loans"})
	for _, b := range r.TopBorrowers {
		rows = append(rows, []any{b.Name, b.Count})
	}
	return rows
}
