package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	mirrorManager "github.com/greeddj/go-roslyn/internal/roslyn/mirror"
)

// Artifacts implements ArtifactStore for filesystem-backed archives.
type Artifacts struct {
	stateDir string
}

// NewArtifacts returns a local artifact store rooted at stateDir.
func NewArtifacts(stateDir string) *Artifacts {
	return &Artifacts{stateDir: stateDir}
}

// Has reports whether the archive exists in the local mirror.
func (s *Artifacts) Has(_ context.Context, key string) (bool, error) {
	path, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Fetch returns a mirrored archive file by key.
func (s *Artifacts) Fetch(_ context.Context, key string) (mirrorManager.ArtifactFile, error) {
	path, err := s.path(key)
	if err != nil {
		return mirrorManager.ArtifactFile{}, err
	}
	if _, err := os.Stat(path); err != nil {
		return mirrorManager.ArtifactFile{}, err
	}
	return mirrorManager.ArtifactFile{Path: path}, nil
}

// TempFile creates a temporary file for staging an archive.
func (s *Artifacts) TempFile(_ context.Context, prefix string) (*os.File, func(), error) {
	dir, err := s.dir()
	if err != nil {
		return nil, nil, err
	}
	file, err := os.CreateTemp(dir, prefix)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = os.Remove(file.Name())
	}
	return file, cleanup, nil
}

// Commit moves a temporary archive into its final mirror location.
func (s *Artifacts) Commit(_ context.Context, key, tmpPath string, _ map[string]string) (mirrorManager.ArtifactFile, error) {
	path, err := s.path(key)
	if err != nil {
		return mirrorManager.ArtifactFile{}, err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return mirrorManager.ArtifactFile{}, err
	}
	return mirrorManager.ArtifactFile{Path: path}, nil
}

// Delete removes an archive from the local mirror.
func (s *Artifacts) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// dir returns the base state directory for archives.
func (s *Artifacts) dir() (string, error) {
	trimmed := strings.TrimSpace(s.stateDir)
	if trimmed == "" {
		return "", errStateDirEmpty
	}
	return trimmed, nil
}

// path builds the full archive path for a key.
func (s *Artifacts) path(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errArtifactKeyEmpty
	}
	dir, err := s.dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, key), nil
}
