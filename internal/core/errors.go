package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrNegativeAmount       = errors.New("amount must not be negative")
	ErrInvalidDate          = errors.New("invalid date, want YYYY-MM-DD")
	ErrEmptyName            = errors.New("empty person name")
	ErrEmptyDescription     = errors.New("empty description")
	ErrDescriptionTooLong   = errors.New("description too long (max 200 characters)")
	ErrInvalidExpenseType   = errors.New("unknown expense type")
	ErrInvalidStatus        = errors.New("unknown loan status")
	ErrUnknownKind          = errors.New("unknown entry kind")
	ErrUnknownField         = errors.New("field cannot be updated")
	ErrReturnBeforeLoan     = errors.New("returned date precedes loan date")
	ErrMissingReturnedDate  = errors.New("returned loan without returned date")
	ErrReturnedDateOnActive = errors.New("active loan with returned date")
)

// ValidationError reports a malformed or out-of-range input. It wraps one of
// the sentinel errors above so callers can match with errors.Is.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field, value string, err error) error {
	return &ValidationError{Field: field, Value: value, Err: err}
}

// Invalid builds a ValidationError for callers outside this package.
func Invalid(field, value string, err error) error {
	return invalid(field, value, err)
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
