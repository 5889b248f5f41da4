// Package render turns ledger views into markdown for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"velam/internal/core"
)

// Rupees formats an amount in Indian rupees, with paise and grouping.
func Rupees(a core.Amount) string {
	// go-money works in minor units
	paise := a.Decimal().Shift(2).Round(0).IntPart()
	return money.New(paise, money.INR).Display()
}

// cell escapes the characters that would break a markdown table row.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// Fund describes the membership the dashboard compares collections with.
type Fund struct {
	Members      int
	Contribution core.Amount // expected from each member every month
}

// ExpectedMonthly is what a full month of contributions brings in.
func (f Fund) ExpectedMonthly() core.Amount {
	return core.AmountOf(f.Contribution.Decimal().Mul(decimal.NewFromInt(int64(f.Members))))
}

// DashboardMarkdown renders the fund totals. A zero Fund omits the
// membership rows.
func DashboardMarkdown(t core.Totals, f Fund) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Dashboard\n\n")
	fmt.Fprintln(&b, "| | Amount |")
	fmt.Fprintln(&b, "|:---|---:|")
	rows := []struct {
		label string
		value core.Amount
	}{
		{"Total Contributions", t.Contributions},
		{"Total Interest", t.Interest},
		{"Loans Given", t.LoansGiven},
		{"Loans Returned", t.LoansReturned},
		{"Total Expenses", t.Expenses},
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %s |\n", r.label, Rupees(r.value))
	}
	fmt.Fprintf(&b, "| **Available Balance** | **%s** |\n", Rupees(t.AvailableBalance))
	if f.Members > 0 {
		fmt.Fprintf(&b, "\n%d members, expected monthly collection %s (%s each)\n",
			f.Members, Rupees(f.ExpectedMonthly()), Rupees(f.Contribution))
	}
	return b.String()
}

// ContributionsMarkdown renders contributions in the given order.
func ContributionsMarkdown(cs []core.Contribution) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Contributions\n\n")
	if len(cs) == 0 {
		fmt.Fprintln(&b, "No contributions yet")
		return b.String()
	}
	fmt.Fprintln(&b, "| ID | Date | Member | Amount | Month |")
	fmt.Fprintln(&b, "|---:|:---|:---|---:|:---|")
	for _, c := range cs {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n", c.ID, c.Date, cell(c.PersonName), Rupees(c.Amount), c.Month)
	}
	return b.String()
}

// LoansMarkdown renders loans in the given order.
func LoansMarkdown(ls []core.Loan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Loans\n\n")
	if len(ls) == 0 {
		fmt.Fprintln(&b, "No loans yet")
		return b.String()
	}
	fmt.Fprintln(&b, "| ID | Date | Borrower | Principal | Interest | Status | Returned |")
	fmt.Fprintln(&b, "|---:|:---|:---|---:|---:|:---|:---|")
	for _, l := range ls {
		status, returned := "Active", ""
		if l.IsReturned() {
			status = "Returned"
			if l.ReturnedDate != nil {
				returned = l.ReturnedDate.String()
			}
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s | %s |\n",
			l.ID,
			l.Date,
			cell(l.PersonName),
			Rupees(l.Principal),
			Rupees(l.Interest),
			status,
			returned,
		)
	}
	return b.String()
}

// ExpensesMarkdown renders expenses in the given order.
func ExpensesMarkdown(es []core.Expense) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Expenses\n\n")
	if len(es) == 0 {
		fmt.Fprintln(&b, "No expenses yet")
		return b.String()
	}
	fmt.Fprintln(&b, "| ID | Date | Type | Description | Amount |")
	fmt.Fprintln(&b, "|---:|:---|:---|:---|---:|")
	for _, e := range es {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n", e.ID, e.Date, e.Type, cell(e.Description), Rupees(e.Amount))
	}
	return b.String()
}

// BorrowersMarkdown renders the ranked borrower list.
func BorrowersMarkdown(bs []core.Borrower) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Top Borrowers\n\n")
	if len(bs) == 0 {
		fmt.Fprintln(&b, "No borrowers yet")
		return b.String()
	}
	for i, br := range bs {
		times := "times"
		if br.Count == 1 {
			times = "time"
		}
		fmt.Fprintf(&b, "%d. %s - **%d** %s\n", i+1, br.Name, br.Count, times)
	}
	return b.String()
}

// MonthlyReportMarkdown renders one row per month.
func MonthlyReportMarkdown(ms []core.MonthlySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Monthly Report\n\n")
	if len(ms) == 0 {
		fmt.Fprintln(&b, "No data available")
		return b.String()
	}
	fmt.Fprintln(&b, "| Month | Contributions | Loans Given | Loans Returned | Interest | Expenses |")
	fmt.Fprintln(&b, "|:---|---:|---:|---:|---:|---:|")
	for _, m := range ms {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			m.Month,
			Rupees(m.Contributions),
			Rupees(m.LoansGiven),
			Rupees(m.LoansReturned),
			Rupees(m.Interest),
			Rupees(m.Expenses),
		)
	}
	return b.String()
}
