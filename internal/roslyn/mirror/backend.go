package mirror

import (
	"context"
	"os"

	"github.com/greeddj/go-roslyn/internal/roslyn/store"
)

// ArtifactFile describes a cached release archive on disk.
type ArtifactFile struct {
	Path    string
	Cleanup func()
	Meta    map[string]string
}

// ArtifactStore provides access to cached release archives.
type ArtifactStore interface {
	Has(ctx context.Context, key string) (bool, error)
	Fetch(ctx context.Context, key string) (ArtifactFile, error)
	TempFile(ctx context.Context, prefix string) (*os.File, func(), error)
	Commit(ctx context.Context, key, tmpPath string, meta map[string]string) (ArtifactFile, error)
	Delete(ctx context.Context, key string) error
}

// Backend defines a mirror backend for state and release archives.
type Backend interface {
	Open(ctx context.Context) error
	Close(ctx context.Context) error
	Lock(ctx context.Context) (func() error, error)
	LoadStore(ctx context.Context) (*store.Store, error)
	SaveStore(ctx context.Context, st *store.Store) error
	ClearFiles(ctx context.Context) error
	Artifacts() ArtifactStore
}
