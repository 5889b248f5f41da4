package ledger

import (
	"slices"
	"strings"

	"velam/internal/core"
)

// DefaultTopBorrowers is the leaderboard size used when no limit is given.
const DefaultTopBorrowers = 5

// Snapshot is a point-in-time copy of the ledger. All aggregates are pure
// functions of a Snapshot; the zero value is an empty ledger.
type Snapshot struct {
	Contributions []core.Contribution
	Loans         []core.Loan
	Expenses      []core.Expense
}

func (s Snapshot) TotalContributions() core.Amount {
	return core.Sum(s.Contributions, func(c core.Contribution) core.Amount { return c.Amount })
}

// TotalInterest counts the interest of every loan, active or returned.
func (s Snapshot) TotalInterest() core.Amount {
	return core.Sum(s.Loans, func(l core.Loan) core.Amount { return l.Interest })
}

func (s Snapshot) TotalLoansGiven() core.Amount {
	return core.Sum(s.Loans, func(l core.Loan) core.Amount { return l.Principal })
}

func (s Snapshot) TotalLoansReturned() core.Amount {
	return core.Sum(s.Loans, func(l core.Loan) core.Amount {
		if l.Status != core.StatusReturned {
			return core.Zero
		}
		return l.Principal
	})
}

func (s Snapshot) TotalExpenses() core.Amount {
	return core.Sum(s.Expenses, func(e core.Expense) core.Amount { return e.Amount })
}

// AvailableBalance is contributions + interest + returned - given - expenses.
// Interest is counted as soon as the loan is recorded, not when collected.
func (s Snapshot) AvailableBalance() core.Amount {
	return s.TotalContributions().
		Add(s.TotalInterest()).
		Add(s.TotalLoansReturned()).
		Sub(s.TotalLoansGiven()).
		Sub(s.TotalExpenses())
}

// Totals bundles the dashboard figures.
func (s Snapshot) Totals() core.Totals {
	return core.Totals{
		Contributions:    s.TotalContributions(),
		Interest:         s.TotalInterest(),
		LoansGiven:       s.TotalLoansGiven(),
		LoansReturned:    s.TotalLoansReturned(),
		Expenses:         s.TotalExpenses(),
		AvailableBalance: s.AvailableBalance(),
	}
}

// TopBorrowers ranks person names by number of loans, highest first. Equal
// counts keep the order in which the names first appear among the loans.
// A limit of zero or less means DefaultTopBorrowers.
func (s Snapshot) TopBorrowers(limit int) []core.Borrower {
	if limit <= 0 {
		limit = DefaultTopBorrowers
	}
	index := make(map[string]int)
	ranked := []core.Borrower{}
	for _, l := range s.Loans {
		i, ok := index[l.PersonName]
		if !ok {
			i = len(ranked)
			index[l.PersonName] = i
			ranked = append(ranked, core.Borrower{Name: l.PersonName})
		}
		ranked[i].Count++
	}
	slices.SortStableFunc(ranked, func(a, b core.Borrower) int { return b.Count - a.Count })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// MonthlySummary returns one record per month touched by any entry, sorted
// by month key. A returned loan adds its principal to the month it came
// back, which may differ from the month it was given.
func (s Snapshot) MonthlySummary() []core.MonthlySummary {
	months := make(map[string]*core.MonthlySummary)
	at := func(key string) *core.MonthlySummary {
		m, ok := months[key]
		if !ok {
			m = &core.MonthlySummary{Month: key}
			months[key] = m
		}
		return m
	}

	for _, c := range s.Contributions {
		m := at(c.Date.MonthKey())
		m.Contributions = m.Contributions.Add(c.Amount)
	}
	for _, l := range s.Loans {
		m := at(l.Date.MonthKey())
		m.LoansGiven = m.LoansGiven.Add(l.Principal)
		m.Interest = m.Interest.Add(l.Interest)
		if l.IsReturned() {
			r := at(l.ReturnedDate.MonthKey())
			r.LoansReturned = r.LoansReturned.Add(l.Principal)
		}
	}
	for _, e := range s.Expenses {
		m := at(e.Date.MonthKey())
		m.Expenses = m.Expenses.Add(e.Amount)
	}

	out := make([]core.MonthlySummary, 0, len(months))
	for _, m := range months {
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b core.MonthlySummary) int { return strings.Compare(a.Month, b.Month) })
	return out
}

// Snapshot copies the current collections in insertion order.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Contributions: slices.Clone(s.contributions),
		Loans:         cloneLoans(s.loans),
		Expenses:      slices.Clone(s.expenses),
	}
}

// cloneLoans also copies returned dates so callers cannot reach into the
// store through the pointer.
func cloneLoans(loans []core.Loan) []core.Loan {
	out := slices.Clone(loans)
	for i := range out {
		if d := out[i].ReturnedDate; d != nil {
			c := *d
			out[i].ReturnedDate = &c
		}
	}
	if out == nil {
		out = []core.Loan{}
	}
	return out
}

// Contributions lists contributions newest first.
func (s *Store) Contributions() []core.Contribution {
	items := s.Snapshot().Contributions
	slices.SortStableFunc(items, func(a, b core.Contribution) int { return b.Date.Compare(a.Date.Time) })
	return items
}

// Loans lists loans newest first.
func (s *Store) Loans() []core.Loan {
	items := s.Snapshot().Loans
	slices.SortStableFunc(items, func(a, b core.Loan) int { return b.Date.Compare(a.Date.Time) })
	return items
}

// Expenses lists expenses newest first.
func (s *Store) Expenses() []core.Expense {
	items := s.Snapshot().Expenses
	slices.SortStableFunc(items, func(a, b core.Expense) int { return b.Date.Compare(a.Date.Time) })
	return items
}

// Loan looks up a single loan by id.
func (s *Store) Loan(id int64) (core.Loan, bool) {
	for _, l := range s.Snapshot().Loans {
		if l.ID == id {
			return l, true
		}
	}
	return core.Loan{}, false
}

func (s *Store) Totals() core.Totals { return s.Snapshot().Totals() }

func (s *Store) AvailableBalance() core.Amount { return s.Snapshot().AvailableBalance() }

func (s *Store) MonthlySummary() []core.MonthlySummary { return s.Snapshot().MonthlySummary() }

func (s *Store) TopBorrowers(limit int) []core.Borrower { return s.Snapshot().TopBorrowers(limit) }
