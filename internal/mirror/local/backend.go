package local

import (
	"context"
	"os"

	mirrorManager "github.com/greeddj/go-roslyn/internal/roslyn/mirror"
	"github.com/greeddj/go-roslyn/internal/roslyn/store"
)

// Backend provides a filesystem-backed mirror backend.
type Backend struct {
	stateDir  string
	db        *store.DB
	artifacts *Artifacts
}

// New creates a Backend rooted at stateDir.
func New(stateDir string) *Backend {
	return &Backend{
		stateDir:  stateDir,
		artifacts: NewArtifacts(stateDir),
	}
}

// Open initializes local backend storage.
func (b *Backend) Open(_ context.Context) error {
	return b.ensureOpen()
}

// Close releases any open resources.
func (b *Backend) Close(_ context.Context) error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// Lock obtains an exclusive lock for the state directory.
func (b *Backend) Lock(_ context.Context) (func() error, error) {
	if b.stateDir == "" {
		return nil, errStateDirEmpty
	}
	return store.AcquireLock(b.stateDir)
}

// LoadStore loads the persistent snapshot store.
func (b *Backend) LoadStore(_ context.Context) (*store.Store, error) {
	if err := b.ensureOpen(); err != nil {
		return nil, err
	}
	return store.Load(b.db)
}

// SaveStore persists the snapshot store.
func (b *Backend) SaveStore(_ context.Context, st *store.Store) error {
	if err := b.ensureOpen(); err != nil {
		return err
	}
	return store.Save(b.db, st)
}

// ClearFiles removes mirror bookkeeping files from disk.
func (b *Backend) ClearFiles(_ context.Context) error {
	if b.stateDir == "" {
		return errStateDirEmpty
	}
	if err := b.Close(context.Background()); err != nil {
		return err
	}
	return store.ClearStateFiles(b.stateDir)
}

// Artifacts returns the artifact store for the backend.
func (b *Backend) Artifacts() mirrorManager.ArtifactStore {
	return b.artifacts
}

// ensureOpen initializes storage if it is not yet opened.
func (b *Backend) ensureOpen() error {
	if b.db != nil {
		return nil
	}
	if b.stateDir == "" {
		return errStateDirEmpty
	}
	if err := os.MkdirAll(b.stateDir, dirMod); err != nil {
		return err
	}
	db, err := store.OpenDB(b.stateDir)
	if err != nil {
		return err
	}
	b.db = db
	return nil
}
