package store

import (
	"path/filepath"

	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
	bolt "go.etcd.io/bbolt"
)

// DB wraps the BoltDB handle backing snapshot storage.
type DB struct {
	handle *bolt.DB
}

// OpenDB opens the snapshot BoltDB file under cacheDir.
func OpenDB(cacheDir string) (*DB, error) {
	handle, err := bolt.Open(filepath.Join(cacheDir, helpers.StoreDBLocal), helpers.FileMod, nil)
	if err != nil {
		return nil, err
	}
	return &DB{handle: handle}, nil
}

// Close closes the BoltDB handle.
func (s *DB) Close() error {
	if s == nil || s.handle == nil {
		return nil
	}
	return s.handle.Close()
}
