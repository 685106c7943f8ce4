// Package project discovers the project or solution file governing a source
// file by walking the directory ancestor chain.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
)

// Discovery is what the ancestor walk found for a source path.
type Discovery struct {
	// ProjectPath is the nearest project file, empty when only a solution
	// was found.
	ProjectPath string
	// SolutionPath is the nearest solution file, empty when none exists.
	SolutionPath string
}

// projectExtensions are recognized project file suffixes, nearest wins.
var projectExtensions = []string{".csproj", ".fsproj", ".vbproj"}

// solutionExtensions are recognized solution file suffixes.
var solutionExtensions = []string{".sln", ".slnx"}

// Discover walks from the directory of sourcePath up to rootDir inclusive,
// returning the first project file and the first solution file seen. An
// empty rootDir walks all the way to the filesystem root. The walk stops
// early once both are found.
func Discover(sourcePath, rootDir string) (Discovery, error) {
	abs, err := filepath.Abs(sourcePath)
	if err != nil {
		return Discovery{}, fmt.Errorf("failed to resolve source path: %w", err)
	}
	if rootDir != "" {
		if rootDir, err = filepath.Abs(rootDir); err != nil {
			return Discovery{}, fmt.Errorf("failed to resolve root dir: %w", err)
		}
	}

	dir := filepath.Dir(abs)
	if info, statErr := os.Stat(abs); statErr == nil && info.IsDir() {
		dir = abs
	}

	var found Discovery
	for {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return Discovery{}, fmt.Errorf("failed to scan %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if found.ProjectPath == "" && hasAnySuffix(name, projectExtensions) {
				found.ProjectPath = filepath.Join(dir, name)
			}
			if found.SolutionPath == "" && hasAnySuffix(name, solutionExtensions) {
				found.SolutionPath = filepath.Join(dir, name)
			}
		}
		if found.ProjectPath != "" && found.SolutionPath != "" {
			return found, nil
		}
		if dir == rootDir {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if found.ProjectPath == "" && found.SolutionPath == "" {
		return Discovery{}, fmt.Errorf("%w: starting from %s", helpers.ErrNoProjectFound, sourcePath)
	}
	return found, nil
}

func hasAnySuffix(name string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(strings.ToLower(name), suffix) {
			return true
		}
	}
	return false
}
