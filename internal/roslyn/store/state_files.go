package store

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
)

// ClearStateFiles removes bookkeeping files that are safe to delete.
func ClearStateFiles(cacheDir string) error {
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !shouldDeleteStateFile(name) {
			continue
		}
		if err := removeStateFile(cacheDir, name); err != nil {
			return err
		}
	}
	return nil
}

func shouldDeleteStateFile(name string) bool {
	deleteList := []string{
		helpers.StoreDBLock,
		helpers.StoreDBLocal,
	}
	if slices.Contains(deleteList, name) {
		return true
	}
	return strings.HasPrefix(name, ".download-") || strings.HasSuffix(name, ".tmp")
}

func removeStateFile(cacheDir, name string) error {
	if err := os.Remove(filepath.Join(cacheDir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
