package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores each collection as one row of the collections
// table. Every save bumps the row's revision.
type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ Port             = (*SQLiteRepository)(nil)
	_ BatchSaver       = (*SQLiteRepository)(nil)
	_ ConditionalSaver = (*SQLiteRepository)(nil)
)

const upsertCollection = `
INSERT INTO collections (key, value, updated_at, revision)
VALUES (?, ?, CURRENT_TIMESTAMP, 1)
ON CONFLICT(key) DO UPDATE SET
    value      = excluded.value,
    updated_at = CURRENT_TIMESTAMP,
    revision   = collections.revision + 1`

const (
	updateCollectionAt = `
UPDATE collections
SET value = ?, updated_at = CURRENT_TIMESTAMP, revision = revision + 1
WHERE key = ? AND revision = ?`

	insertCollection = `
INSERT INTO collections (key, value, updated_at, revision)
VALUES (?, ?, CURRENT_TIMESTAMP, 1)
ON CONFLICT(key) DO NOTHING`
)

// DSN returns the data source name used for dbPath: WAL journaling so a
// reader process does not block the writer, and a busy timeout for the
// moments where it would.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection serializes writers inside this process.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		err := r.db.Close()
		r.db = nil
		return err
	}
	return nil
}

// Load implements Port.
func (r *SQLiteRepository) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if r.db == nil {
		return nil, false, &StorageError{Op: "load", Key: key, Err: ErrClosed}
	}
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM collections WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &StorageError{Op: "load", Key: key, Err: err}
	}
	return []byte(value), true, nil
}

// Save implements Port.
func (r *SQLiteRepository) Save(ctx context.Context, key string, value []byte) error {
	if r.db == nil {
		return &StorageError{Op: "save", Key: key, Err: ErrClosed}
	}
	if _, err := r.db.ExecContext(ctx, upsertCollection, key, string(value)); err != nil {
		return &StorageError{Op: "save", Key: key, Err: err}
	}
	return nil
}

// SaveAll implements BatchSaver: either every key is written or none is.
func (r *SQLiteRepository) SaveAll(ctx context.Context, values map[string][]byte) error {
	if r.db == nil {
		return &StorageError{Op: "save", Err: ErrClosed}
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "begin", Err: err}
	}
	defer tx.Rollback()

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, upsertCollection, key, string(values[key])); err != nil {
			return &StorageError{Op: "save", Key: key, Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "commit", Err: err}
	}

	slog.DebugContext(ctx, "Collections saved to SQLite", "keys", keys)
	return nil
}

// SaveAllIf implements ConditionalSaver. Each row is updated only at its
// expected revision; one stale key rolls the whole batch back.
func (r *SQLiteRepository) SaveAllIf(ctx context.Context, values map[string][]byte, expected map[string]int64) (map[string]int64, error) {
	if r.db == nil {
		return nil, &StorageError{Op: "save", Err: ErrClosed}
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &StorageError{Op: "begin", Err: err}
	}
	defer tx.Rollback()

	revisions := make(map[string]int64, len(expected)+len(values))
	for k, v := range expected {
		revisions[k] = v
	}
	for _, key := range slices.Sorted(maps.Keys(values)) {
		want := expected[key]
		n, err := execAffected(ctx, tx, updateCollectionAt, string(values[key]), key, want)
		if err == nil && n == 0 && want == 0 {
			n, err = execAffected(ctx, tx, insertCollection, key, string(values[key]))
		}
		if err != nil {
			return nil, &StorageError{Op: "save", Key: key, Err: err}
		}
		if n == 0 {
			return nil, &StorageError{Op: "save", Key: key, Err: fmt.Errorf("%w: expected revision %d", ErrConflict, want)}
		}
		revisions[key] = want + 1
	}
	if err := tx.Commit(); err != nil {
		return nil, &StorageError{Op: "commit", Err: err}
	}
	return revisions, nil
}

func execAffected(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error) {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Revisions returns the save counter of every stored key. Readers compare
// two calls to learn whether anything changed in between.
func (r *SQLiteRepository) Revisions(ctx context.Context) (map[string]int64, error) {
	if r.db == nil {
		return nil, &StorageError{Op: "revisions", Err: ErrClosed}
	}
	rows, err := r.db.QueryContext(ctx, `SELECT key, revision FROM collections`)
	if err != nil {
		return nil, &StorageError{Op: "revisions", Err: err}
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			key string
			rev int64
		)
		if err := rows.Scan(&key, &rev); err != nil {
			return nil, &StorageError{Op: "revisions", Err: err}
		}
		out[key] = rev
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "revisions", Err: err}
	}
	return out, nil
}
