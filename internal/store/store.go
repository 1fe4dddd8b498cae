// Package store implements the single-slot persistent snapshot store: one
// file per node, written atomically via write-temp-then-rename under a
// process-wide mutex, so a reader never observes a partially written file.
package store

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// ErrEmpty is returned by Load when the node has never saved a snapshot.
var ErrEmpty = errors.New("store: empty")

// Store is a single-slot, file-backed byte store. There is exactly one slot
// per node; every Save overwrites it.
type Store struct {
	mu   sync.Mutex
	path string
}

// New returns a Store backed by the file at path. The file need not exist yet.
func New(path string) *Store {
	return &Store{path: path}
}

// Save durably writes data as the store's sole slot. It writes to a sibling
// temp file, fsyncs, then renames over path, so a crash mid-write never
// corrupts the previously committed contents.
func (s *Store) Save(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}

// Load returns the most recently committed contents, or ErrEmpty if Save has
// never succeeded on this node.
func (s *Store) Load() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrEmpty
		}
		return nil, err
	}
	return data, nil
}
