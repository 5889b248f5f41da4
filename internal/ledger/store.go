// Package ledger owns the fund's three collections (contributions, loans,
// expenses) and computes every derived figure from them.
//
// A Store is the only mutation surface. Each change is applied in memory and
// then the full state of all three collections is written to the persistence
// port. A failed write is returned as a *storage.StorageError while the
// in-memory change stays in place: memory is the source of truth for the
// running process. On ports that count revisions a save only succeeds while
// nobody else saved since this store loaded; otherwise it fails with
// storage.ErrConflict.
//
// Aggregates are never cached; every query recomputes from a Snapshot.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"velam/internal/core"
	"velam/internal/log"
	"velam/internal/storage"
)

// Clock supplies the current time; returned loans are stamped with its date.
type Clock func() time.Time

type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(c Clock) Option {
	return func(s *Store) { s.now = c }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l.WithComponent(log.ComponentLedger) }
}

type Store struct {
	mu     sync.Mutex
	port   storage.Port
	logger *log.Logger
	now    Clock
	nextID int64

	// revisions seen at load, nil when the port does not count them
	revisions map[string]int64

	contributions []core.Contribution
	loans         []core.Loan
	expenses      []core.Expense
}

// Open loads the three collections from port. Keys that were never written
// start empty.
func Open(ctx context.Context, port storage.Port, opts ...Option) (*Store, error) {
	s := &Store{
		port:   port,
		now:    time.Now,
		logger: log.New(log.Config{Handler: slog.Default().Handler(), Component: log.ComponentLedger}),
	}
	for _, opt := range opts {
		opt(s)
	}

	// read before the values: a save slipping in between then shows up as a
	// conflict instead of being overwritten
	if cs, ok := port.(storage.ConditionalSaver); ok {
		revs, err := cs.Revisions(ctx)
		if err != nil {
			return nil, fmt.Errorf("load revisions: %w", err)
		}
		s.revisions = revs
	}

	if err := load(ctx, port, storage.KeyContributions, &s.contributions); err != nil {
		return nil, err
	}
	if err := load(ctx, port, storage.KeyLoans, &s.loans); err != nil {
		return nil, err
	}
	if err := load(ctx, port, storage.KeyExpenses, &s.expenses); err != nil {
		return nil, err
	}

	s.repairMonths(ctx)
	s.nextID = s.maxID() + 1

	s.logger.DebugContext(ctx, "Ledger loaded",
		"contributions", len(s.contributions),
		"loans", len(s.loans),
		"expenses", len(s.expenses),
		"next_id", s.nextID)
	return s, nil
}

func load[T any](ctx context.Context, port storage.Port, key string, into *[]T) error {
	data, ok, err := port.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if !ok || len(strings.TrimSpace(string(data))) == 0 {
		*into = []T{}
		return nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	if items == nil {
		items = []T{}
	}
	*into = items
	return nil
}

// repairMonths re-derives month keys that are missing or disagree with the
// entry date, as left behind by older date edits.
func (s *Store) repairMonths(ctx context.Context) {
	repaired := 0
	for i := range s.contributions {
		if m := s.contributions[i].Date.MonthKey(); s.contributions[i].Month != m {
			s.contributions[i].Month = m
			repaired++
		}
	}
	for i := range s.expenses {
		if m := s.expenses[i].Date.MonthKey(); s.expenses[i].Month != m {
			s.expenses[i].Month = m
			repaired++
		}
	}
	if repaired > 0 {
		s.logger.WarnContext(ctx, "Re-derived stale month keys", "entries", repaired)
	}
}

func (s *Store) maxID() int64 {
	var top int64
	for _, c := range s.contributions {
		top = max(top, c.ID)
	}
	for _, l := range s.loans {
		top = max(top, l.ID)
	}
	for _, e := range s.expenses {
		top = max(top, e.ID)
	}
	return top
}

func (s *Store) newID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Store) today() core.Date {
	return core.DateOf(s.now())
}

// persistLocked writes all three collections. Callers hold s.mu.
func (s *Store) persistLocked(ctx context.Context) error {
	values, err := s.encodeLocked()
	if err == nil {
		if cs, ok := s.port.(storage.ConditionalSaver); ok && s.revisions != nil {
			var revs map[string]int64
			if revs, err = cs.SaveAllIf(ctx, values, s.revisions); err == nil {
				s.revisions = revs
			}
		} else {
			err = save(ctx, s.port, values)
		}
	}
	if err == nil {
		return nil
	}
	if !storage.IsStorageError(err) {
		err = &storage.StorageError{Op: "save", Err: err}
	}
	if errors.Is(err, storage.ErrConflict) {
		s.logger.ErrorContext(ctx, "Ledger changed by another writer since it was loaded, change not saved",
			log.NewFields().WithError(err).WithErrorType(log.ErrorTypeStorage).WithOperation(log.OpSave).ToSlice()...)
		return err
	}
	s.logger.ErrorContext(ctx, "Failed to persist ledger, keeping in-memory state",
		log.NewFields().WithError(err).WithErrorType(log.ErrorTypeStorage).WithOperation(log.OpSave).ToSlice()...)
	return err
}

// CopyTo writes the current collections to dst in the persisted layout.
func (s *Store) CopyTo(ctx context.Context, dst storage.Port) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.encodeLocked()
	if err != nil {
		return err
	}
	if err := save(ctx, dst, values); err != nil {
		if !storage.IsStorageError(err) {
			err = &storage.StorageError{Op: "save", Err: err}
		}
		return err
	}
	return nil
}

func (s *Store) encodeLocked() (map[string][]byte, error) {
	values := make(map[string][]byte, 3)
	for key, v := range map[string]any{
		storage.KeyContributions: s.contributions,
		storage.KeyLoans:         s.loans,
		storage.KeyExpenses:      s.expenses,
	} {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, &storage.StorageError{Op: "encode", Key: key, Err: err}
		}
		values[key] = data
	}
	return values, nil
}

// save writes values in one batch when port supports it, else key by key.
func save(ctx context.Context, port storage.Port, values map[string][]byte) error {
	if batch, ok := port.(storage.BatchSaver); ok {
		return batch.SaveAll(ctx, values)
	}
	for _, key := range storage.Keys() {
		if err := port.Save(ctx, key, values[key]); err != nil {
			return err
		}
	}
	return nil
}

// AddContribution records a member payment. date is YYYY-MM-DD and amount a
// non-negative decimal.
func (s *Store) AddContribution(ctx context.Context, date, personName, amount string) (core.Contribution, error) {
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Contribution{}, err
	}
	a, err := core.ParseAmount(amount)
	if err != nil {
		return core.Contribution{}, err
	}
	c := core.Contribution{
		Date:       d,
		PersonName: strings.TrimSpace(personName),
		Amount:     a,
		Month:      d.MonthKey(),
	}
	if err := c.Validate(); err != nil {
		return core.Contribution{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.newID()
	s.contributions = append(s.contributions, c)
	return c, s.persistLocked(ctx)
}

// AddLoan disburses principal to a member. The loan starts ACTIVE.
func (s *Store) AddLoan(ctx context.Context, date, personName, principal, interest string) (core.Loan, error) {
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Loan{}, err
	}
	p, err := core.ParseAmount(principal)
	if err != nil {
		return core.Loan{}, relabel(err, "principal")
	}
	i, err := core.ParseAmount(interest)
	if err != nil {
		return core.Loan{}, relabel(err, "interest")
	}
	l := core.Loan{
		Date:       d,
		PersonName: strings.TrimSpace(personName),
		Principal:  p,
		Interest:   i,
		Status:     core.StatusActive,
	}
	if err := l.Validate(); err != nil {
		return core.Loan{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = s.newID()
	s.loans = append(s.loans, l)
	return l, s.persistLocked(ctx)
}

// MarkLoanReturned stamps an active loan as returned today. Unknown ids and
// already returned loans are left alone and reported with false. A loan
// dated in the future is returned on its own date.
func (s *Store) MarkLoanReturned(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.loans, func(l core.Loan) bool { return l.ID == id })
	if i < 0 || s.loans[i].Status != core.StatusActive {
		return false, nil
	}

	returned := s.today()
	if returned.Before(s.loans[i].Date.Time) {
		returned = s.loans[i].Date
	}
	s.loans[i].Status = core.StatusReturned
	s.loans[i].ReturnedDate = &returned
	return true, s.persistLocked(ctx)
}

// AddExpense records money spent by the fund. typ must be one of
// core.ExpenseTypes, matched case-insensitively.
func (s *Store) AddExpense(ctx context.Context, date, typ, description, amount string) (core.Expense, error) {
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, err
	}
	t, err := core.ParseExpenseType(typ)
	if err != nil {
		return core.Expense{}, err
	}
	a, err := core.ParseAmount(amount)
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		Date:        d,
		Type:        t,
		Description: strings.TrimSpace(description),
		Amount:      a,
		Month:       d.MonthKey(),
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.newID()
	s.expenses = append(s.expenses, e)
	return e, s.persistLocked(ctx)
}

// DeleteEntry removes the entry id from the kind collection. Deleting an
// unknown id is a no-op reported with false; nothing is written.
func (s *Store) DeleteEntry(ctx context.Context, kind core.Kind, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed bool
	switch kind {
	case core.KindContribution:
		s.contributions, removed = deleteByID(s.contributions, id, func(c core.Contribution) int64 { return c.ID })
	case core.KindLoan:
		s.loans, removed = deleteByID(s.loans, id, func(l core.Loan) int64 { return l.ID })
	case core.KindExpense:
		s.expenses, removed = deleteByID(s.expenses, id, func(e core.Expense) int64 { return e.ID })
	default:
		return false, core.Invalid("kind", string(kind), core.ErrUnknownKind)
	}
	if !removed {
		return false, nil
	}
	return true, s.persistLocked(ctx)
}

func deleteByID[T any](items []T, id int64, idOf func(T) int64) ([]T, bool) {
	n := len(items)
	items = slices.DeleteFunc(items, func(it T) bool { return idOf(it) == id })
	return items, len(items) != n
}

// relabel points a ValidationError at the named input field.
func relabel(err error, field string) error {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		return core.Invalid(field, ve.Value, ve.Err)
	}
	return err
}
