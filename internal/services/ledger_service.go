package services

import (
	"context"
	"fmt"
	"io"

	"velam/internal/amqp"
	"velam/internal/core"
	"velam/internal/ledger"
	"velam/internal/log"
)

// ChangePublisher announces ledger changes to other processes.
type ChangePublisher interface {
	PublishLedgerChange(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// LedgerService runs ledger mutations for outer callers, logs them and
// publishes a change notification for each one that changed state.
type LedgerService struct {
	store     *ledger.Store
	publisher ChangePublisher
	logger    *log.Logger
	closers   []io.Closer
}

type ServiceOption func(*LedgerService)

// WithPublisher enables change notifications.
func WithPublisher(p ChangePublisher) ServiceOption {
	return func(s *LedgerService) { s.publisher = p }
}

// WithCloser registers a resource released by Close, in registration order.
func WithCloser(c io.Closer) ServiceOption {
	return func(s *LedgerService) { s.closers = append(s.closers, c) }
}

func NewLedgerService(store *ledger.Store, logger *log.Logger, opts ...ServiceOption) *LedgerService {
	if logger == nil {
		logger = log.Discard()
	}
	s := &LedgerService{store: store, logger: logger.WithComponent(log.ComponentLedger)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ledger gives read access to the underlying store.
func (s *LedgerService) Ledger() *ledger.Store {
	return s.store
}

func (s *LedgerService) AddContribution(ctx context.Context, date, personName, amount string) (core.Contribution, error) {
	c, err := s.store.AddContribution(ctx, date, personName, amount)
	if err != nil {
		return c, s.failed(ctx, log.OpCreate, core.KindContribution, err)
	}
	s.logger.InfoContext(ctx, "Contribution recorded",
		log.NewFields().WithOperation(log.OpCreate).WithEntry(core.KindContribution, c.ID).
			WithAmount(c.PersonName, c.Amount).ToSlice()...)
	s.publish(ctx, core.KindContribution, c.ID, amqp.OperationCreate)
	return c, nil
}

func (s *LedgerService) AddLoan(ctx context.Context, date, personName, principal, interest string) (core.Loan, error) {
	l, err := s.store.AddLoan(ctx, date, personName, principal, interest)
	if err != nil {
		return l, s.failed(ctx, log.OpCreate, core.KindLoan, err)
	}
	s.logger.InfoContext(ctx, "Loan recorded",
		log.NewFields().WithOperation(log.OpCreate).WithEntry(core.KindLoan, l.ID).
			WithAmount(l.PersonName, l.Principal).ToSlice()...)
	s.publish(ctx, core.KindLoan, l.ID, amqp.OperationCreate)
	return l, nil
}

func (s *LedgerService) AddExpense(ctx context.Context, date, typ, description, amount string) (core.Expense, error) {
	e, err := s.store.AddExpense(ctx, date, typ, description, amount)
	if err != nil {
		return e, s.failed(ctx, log.OpCreate, core.KindExpense, err)
	}
	s.logger.InfoContext(ctx, "Expense recorded",
		log.NewFields().WithOperation(log.OpCreate).WithEntry(core.KindExpense, e.ID).
			WithAmount("", e.Amount).ToSlice()...)
	s.publish(ctx, core.KindExpense, e.ID, amqp.OperationCreate)
	return e, nil
}

func (s *LedgerService) MarkLoanReturned(ctx context.Context, id int64) (bool, error) {
	return s.mutated(ctx, log.OpReturn, amqp.OperationReturn, core.KindLoan, id,
		func() (bool, error) { return s.store.MarkLoanReturned(ctx, id) })
}

func (s *LedgerService) UpdateEntry(ctx context.Context, kind core.Kind, id int64, fields map[string]string) (bool, error) {
	return s.mutated(ctx, log.OpUpdate, amqp.OperationUpdate, kind, id,
		func() (bool, error) { return s.store.UpdateEntry(ctx, kind, id, fields) })
}

func (s *LedgerService) DeleteEntry(ctx context.Context, kind core.Kind, id int64) (bool, error) {
	return s.mutated(ctx, log.OpDelete, amqp.OperationDelete, kind, id,
		func() (bool, error) { return s.store.DeleteEntry(ctx, kind, id) })
}

func (s *LedgerService) mutated(ctx context.Context, op, operation string, kind core.Kind, id int64, run func() (bool, error)) (bool, error) {
	changed, err := run()
	if err != nil {
		return changed, s.failed(ctx, op, kind, err)
	}
	fields := log.NewFields().WithOperation(op).WithEntry(kind, id)
	if !changed {
		s.logger.InfoContext(ctx, "Nothing to change", fields.ToSlice()...)
		return false, nil
	}
	s.logger.InfoContext(ctx, "Entry changed", fields.ToSlice()...)
	s.publish(ctx, kind, id, operation)
	return true, nil
}

// failed logs err by category. Validation errors are the caller's input and
// are logged at warn; the store already logged storage failures.
func (s *LedgerService) failed(ctx context.Context, op string, kind core.Kind, err error) error {
	fields := log.NewFields().WithOperation(op).WithError(err)
	fields[log.FieldKind] = string(kind)
	if core.IsValidation(err) {
		s.logger.WarnContext(ctx, "Rejected ledger input", fields.WithErrorType(log.ErrorTypeValidation).ToSlice()...)
	}
	return err
}

func (s *LedgerService) publish(ctx context.Context, kind core.Kind, id int64, operation string) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewLedgerChangedMessage(kind, id, operation)
	if err := s.publisher.PublishLedgerChange(ctx, msg); err != nil {
		// the change is stored; only the notification is lost
		s.logger.ErrorContext(ctx, "Failed to publish ledger change",
			log.NewFields().WithOperation(log.OpPublish).WithEntry(kind, id).
				WithError(err).WithErrorType(log.ErrorTypeNetwork).ToSlice()...)
	}
}

// Close releases the registered resources.
func (s *LedgerService) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}
	return nil
}
