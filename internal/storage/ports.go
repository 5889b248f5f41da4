// Package storage holds the persistence port of the ledger and its SQLite
// adapter. A port maps a fixed key to the full JSON encoding of one
// collection; there is no incremental persistence.
package storage

import (
	"context"
	"errors"
	"fmt"

	"velam/internal/core"
)

// Keys under which the three collections are stored.
const (
	KeyContributions = "velam_contributions"
	KeyLoans         = "velam_loans"
	KeyExpenses      = "velam_expenses"
)

type (
	// Port loads and saves whole collections.
	Port interface {
		// Load returns the stored value and true, or nil and false when the
		// key was never written.
		Load(ctx context.Context, key string) ([]byte, bool, error)
		Save(ctx context.Context, key string, value []byte) error
	}

	// BatchSaver is implemented by ports that can write several keys as one
	// unit. The ledger prefers it when available.
	BatchSaver interface {
		SaveAll(ctx context.Context, values map[string][]byte) error
	}

	// ConditionalSaver is implemented by ports that count saves per key.
	// SaveAllIf writes values only when every key is still at the revision
	// in expected (absent keys count as 0) and returns the new revisions.
	// Otherwise nothing is written and the error wraps ErrConflict.
	ConditionalSaver interface {
		Revisions(ctx context.Context) (map[string]int64, error)
		SaveAllIf(ctx context.Context, values map[string][]byte, expected map[string]int64) (map[string]int64, error)
	}
)

var (
	ErrClosed   = errors.New("storage closed")
	ErrConflict = errors.New("collection changed by another writer")
)

// StorageError reports a failed persistence operation.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err is, or wraps, a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// Keys returns the collection keys in persistence order.
func Keys() []string {
	return []string{KeyContributions, KeyLoans, KeyExpenses}
}

// KeyFor maps a collection kind to its storage key.
func KeyFor(kind core.Kind) (string, error) {
	switch kind {
	case core.KindContribution:
		return KeyContributions, nil
	case core.KindLoan:
		return KeyLoans, nil
	case core.KindExpense:
		return KeyExpenses, nil
	}
	return "", core.Invalid("kind", string(kind), core.ErrUnknownKind)
}
