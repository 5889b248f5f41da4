package memory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"velam/internal/storage"
)

// Store is a process-local Port. Values are copied on the way in and out so
// callers cannot alias stored bytes. A store opened with OpenDir also writes
// every save through to <dir>/<key>.json and reads keys back from there.
type Store struct {
	mu     sync.Mutex
	values map[string][]byte
	dir    string
}

var (
	_ storage.Port       = (*Store)(nil)
	_ storage.BatchSaver = (*Store)(nil)
)

func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

// NewFromFiles seeds a store from <dir>/<key>.json for every collection key.
// Missing files leave the key absent; unreadable ones are reported. Saves
// stay in memory.
func NewFromFiles(dir string) (*Store, error) {
	s := New()
	for _, key := range storage.Keys() {
		data, ok, err := readFile(dir, key)
		if err != nil {
			return nil, err
		}
		if ok {
			s.values[key] = data
		}
	}
	return s, nil
}

// OpenDir returns a store kept in <dir>/<key>.json files. Each Load reads the
// file, so other processes sharing dir see each other's saves.
func OpenDir(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	s := New()
	s.dir = dir
	return s, nil
}

// Load implements storage.Port.
func (s *Store) Load(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir != "" {
		data, ok, err := readFile(s.dir, key)
		if err != nil {
			return nil, false, &storage.StorageError{Op: "load", Key: key, Err: err}
		}
		return data, ok, nil
	}
	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Save implements storage.Port.
func (s *Store) Save(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLocked(key, value)
}

// SaveAll implements storage.BatchSaver. File-backed stores write the keys
// in sorted order and stop at the first failure.
func (s *Store) SaveAll(_ context.Context, values map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range slices.Sorted(maps.Keys(values)) {
		if err := s.putLocked(k, values[k]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) putLocked(key string, value []byte) error {
	if s.dir != "" {
		if err := writeFile(s.dir, key, value); err != nil {
			return &storage.StorageError{Op: "save", Key: key, Err: err}
		}
	}
	s.values[key] = append([]byte(nil), value...)
	return nil
}

func readFile(dir, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(fileName(dir, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return data, true, nil
}

// writeFile replaces the key file through a rename so readers never see a
// partial write.
func writeFile(dir, key string, value []byte) error {
	tmp, err := os.CreateTemp(dir, key+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), fileName(dir, key))
}

// WriteFiles copies every stored collection of src into <dir>/<key>.json,
// the layout NewFromFiles reads back.
func WriteFiles(ctx context.Context, src storage.Port, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	var written []string
	for _, key := range storage.Keys() {
		data, ok, err := src.Load(ctx, key)
		if err != nil {
			return written, err
		}
		if !ok {
			data = []byte("[]")
		}
		name := fileName(dir, key)
		if err := os.WriteFile(name, data, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", name, err)
		}
		written = append(written, name)
	}
	return written, nil
}

func fileName(dir, key string) string {
	return filepath.Join(dir, key+".json")
}
