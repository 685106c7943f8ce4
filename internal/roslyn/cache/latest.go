package cache

import (
	"os"
	"path/filepath"
)

// Latest returns the binary path of the last directory entry, in listing
// order, that actually contains binName on disk. This is a listing-order
// heuristic rather than a semantic version comparison; it backs the offline
// locate path where any working cached server beats none.
func Latest(containerDir, binName string) (string, bool) {
	entries, err := os.ReadDir(containerDir)
	if err != nil {
		return "", false
	}
	var found string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(containerDir, entry.Name(), binName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			found = candidate
		}
	}
	if found == "" {
		return "", false
	}
	return found, true
}
