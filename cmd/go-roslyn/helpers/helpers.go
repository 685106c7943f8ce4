package helpers

import (
	"os"
	"path/filepath"
)

// defaultContainerDir returns the default container directory path.
func defaultContainerDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(defaultHomeDir, dirSuffix)
	}
	return filepath.Join(home, dirSuffix)
}
