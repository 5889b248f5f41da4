package backend

import (
	"context"

	"velam/internal/storage"
)

// CleanupFunc releases the resources behind a backend
type CleanupFunc func() error

// BackendResult contains the persistence port and an optional cleanup function
type BackendResult struct {
	Port    storage.Port
	Cleanup CleanupFunc
}

// Factory creates persistence ports based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory backend specific: optional directory of <key>.json seed files
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
