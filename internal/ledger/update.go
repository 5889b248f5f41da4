package ledger

import (
	"context"
	"maps"
	"slices"
	"strings"

	"velam/internal/core"
)

// Patches carry the fields to replace; nil fields are left unchanged. Derived
// fields (month) and loan status are not patchable: month follows the date,
// status only moves through MarkLoanReturned.
type (
	ContributionPatch struct {
		Date       *core.Date
		PersonName *string
		Amount     *core.Amount
	}

	LoanPatch struct {
		Date       *core.Date
		PersonName *string
		Principal  *core.Amount
		Interest   *core.Amount
	}

	ExpensePatch struct {
		Date        *core.Date
		Type        *core.ExpenseType
		Description *string
		Amount      *core.Amount
	}
)

func (p ContributionPatch) empty() bool {
	return p.Date == nil && p.PersonName == nil && p.Amount == nil
}

func (p LoanPatch) empty() bool {
	return p.Date == nil && p.PersonName == nil && p.Principal == nil && p.Interest == nil
}

func (p ExpensePatch) empty() bool {
	return p.Date == nil && p.Type == nil && p.Description == nil && p.Amount == nil
}

// UpdateContribution merges p into contribution id and re-derives its month.
// It reports false when id is unknown or p is empty. An update that would
// leave the entry invalid is rejected and changes nothing.
func (s *Store) UpdateContribution(ctx context.Context, id int64, p ContributionPatch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.contributions, func(c core.Contribution) bool { return c.ID == id })
	if i < 0 || p.empty() {
		return false, nil
	}
	c := s.contributions[i]
	if p.Date != nil {
		c.Date = *p.Date
	}
	if p.PersonName != nil {
		c.PersonName = strings.TrimSpace(*p.PersonName)
	}
	if p.Amount != nil {
		c.Amount = *p.Amount
	}
	c.Month = c.Date.MonthKey()
	if err := c.Validate(); err != nil {
		return false, err
	}
	s.contributions[i] = c
	return true, s.persistLocked(ctx)
}

// UpdateLoan merges p into loan id. Moving the date of a returned loan past
// its return date is rejected.
func (s *Store) UpdateLoan(ctx context.Context, id int64, p LoanPatch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.loans, func(l core.Loan) bool { return l.ID == id })
	if i < 0 || p.empty() {
		return false, nil
	}
	l := s.loans[i]
	if p.Date != nil {
		l.Date = *p.Date
	}
	if p.PersonName != nil {
		l.PersonName = strings.TrimSpace(*p.PersonName)
	}
	if p.Principal != nil {
		l.Principal = *p.Principal
	}
	if p.Interest != nil {
		l.Interest = *p.Interest
	}
	if err := l.Validate(); err != nil {
		return false, err
	}
	s.loans[i] = l
	return true, s.persistLocked(ctx)
}

// UpdateExpense merges p into expense id and re-derives its month.
func (s *Store) UpdateExpense(ctx context.Context, id int64, p ExpensePatch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.expenses, func(e core.Expense) bool { return e.ID == id })
	if i < 0 || p.empty() {
		return false, nil
	}
	e := s.expenses[i]
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Type != nil {
		e.Type = *p.Type
	}
	if p.Description != nil {
		e.Description = strings.TrimSpace(*p.Description)
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	e.Month = e.Date.MonthKey()
	if err := e.Validate(); err != nil {
		return false, err
	}
	s.expenses[i] = e
	return true, s.persistLocked(ctx)
}

// UpdateEntry applies string field updates, keyed by the stored JSON field
// names, to entry id of the kind collection. Every value is parsed before
// anything is touched; fields are checked in name order, so the first
// invalid name reported is stable.
func (s *Store) UpdateEntry(ctx context.Context, kind core.Kind, id int64, fields map[string]string) (bool, error) {
	switch kind {
	case core.KindContribution:
		p, err := ParseContributionPatch(fields)
		if err != nil {
			return false, err
		}
		return s.UpdateContribution(ctx, id, p)
	case core.KindLoan:
		p, err := ParseLoanPatch(fields)
		if err != nil {
			return false, err
		}
		return s.UpdateLoan(ctx, id, p)
	case core.KindExpense:
		p, err := ParseExpensePatch(fields)
		if err != nil {
			return false, err
		}
		return s.UpdateExpense(ctx, id, p)
	}
	return false, core.Invalid("kind", string(kind), core.ErrUnknownKind)
}

// ParseContributionPatch accepts date, personName and amount.
func ParseContributionPatch(fields map[string]string) (ContributionPatch, error) {
	var p ContributionPatch
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		value := fields[name]
		var err error
		switch name {
		case "date":
			p.Date, err = parsePtr(value, core.ParseDate)
		case "personName":
			p.PersonName = &value
		case "amount":
			p.Amount, err = parsePtr(value, core.ParseAmount)
		default:
			err = core.Invalid(name, value, core.ErrUnknownField)
		}
		if err != nil {
			return ContributionPatch{}, err
		}
	}
	return p, nil
}

// ParseLoanPatch accepts date, personName, principal and interest.
func ParseLoanPatch(fields map[string]string) (LoanPatch, error) {
	var p LoanPatch
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		value := fields[name]
		var err error
		switch name {
		case "date":
			p.Date, err = parsePtr(value, core.ParseDate)
		case "personName":
			p.PersonName = &value
		case "principal":
			p.Principal, err = parsePtr(value, core.ParseAmount)
			err = relabel(err, name)
		case "interest":
			p.Interest, err = parsePtr(value, core.ParseAmount)
			err = relabel(err, name)
		default:
			err = core.Invalid(name, value, core.ErrUnknownField)
		}
		if err != nil {
			return LoanPatch{}, err
		}
	}
	return p, nil
}

// ParseExpensePatch accepts date, type, description and amount.
func ParseExpensePatch(fields map[string]string) (ExpensePatch, error) {
	var p ExpensePatch
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		value := fields[name]
		var err error
		switch name {
		case "date":
			p.Date, err = parsePtr(value, core.ParseDate)
		case "type":
			p.Type, err = parsePtr(value, core.ParseExpenseType)
		case "description":
			p.Description = &value
		case "amount":
			p.Amount, err = parsePtr(value, core.ParseAmount)
		default:
			err = core.Invalid(name, value, core.ErrUnknownField)
		}
		if err != nil {
			return ExpensePatch{}, err
		}
	}
	return p, nil
}

func parsePtr[T any](s string, parse func(string) (T, error)) (*T, error) {
	v, err := parse(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
