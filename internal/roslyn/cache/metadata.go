// Package cache manages the on-disk layout of acquired server versions: one
// directory per version inside a container directory, each holding the binary
// and a sidecar metadata file written once per successful acquisition.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
)

// Metadata is the sidecar file written next to a cached binary.
type Metadata struct {
	MetadataVersion int    `json:"metadata_version"`
	Digest          string `json:"digest,omitempty"`
}

// ReadMetadata reads the sidecar metadata from a version directory.
func ReadMetadata(versionDir string) (Metadata, error) {
	path := filepath.Join(versionDir, helpers.MetadataFileName)
	//nolint:gosec // path is derived from the managed container directory.
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

// WriteMetadata writes the sidecar metadata into a version directory.
// Sidecars are never mutated afterwards; a new version dir supersedes them.
func WriteMetadata(versionDir, digest string) error {
	meta := Metadata{
		MetadataVersion: helpers.MetadataVersion,
		Digest:          digest,
	}
	payload, err := json.Marshal(&meta)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(versionDir, helpers.MetadataFileName), payload, helpers.FileMod)
}
