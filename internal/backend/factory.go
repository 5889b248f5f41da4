package backend

import (
	"context"
	"fmt"

	"velam/internal/log"
	"velam/internal/storage"
	"velam/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		log.FieldBackend, SQLiteBackend.String(),
		"db_path", config.SQLiteDBPath)

	return &BackendResult{Port: repo, Cleanup: repo.Close}, nil
}

// createMemoryBackend keeps the collections as <key>.json files in the data
// directory, written on every save. Without a directory the store lives and
// dies with the process.
func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store := memory.New()
	if config.DataDirectory != "" {
		var err error
		if store, err = memory.OpenDir(config.DataDirectory); err != nil {
			return nil, fmt.Errorf("failed to open memory backend directory: %w", err)
		}
	} else {
		f.logger.WarnContext(ctx, "Memory backend without DATA_DIR, changes are lost on exit")
	}

	f.logger.InfoContext(ctx, "Initialized memory backend",
		log.FieldBackend, MemoryBackend.String(),
		"data_directory", config.DataDirectory)

	return &BackendResult{Port: store}, nil
}
