// Package restore installs the language server through the build tool's
// package pipeline: a synthesized project file declares an exact-version
// package download, the restore run materializes it, and the result is
// relocated into the version cache.
package restore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
	"github.com/greeddj/go-roslyn/internal/roslyn/infra"
	"github.com/greeddj/go-roslyn/internal/roslyn/notify"
)

// projectTemplate is the minimal project that makes a restore run download
// one package at an exact version into RestorePackagesPath without building
// anything.
const projectTemplate = `<Project Sdk="Microsoft.Build.NoTargets/3.7.0">
  <PropertyGroup>
    <TargetFramework>net8.0</TargetFramework>
    <RestorePackagesPath>%s</RestorePackagesPath>
    <AutomaticallyUseReferenceAssemblyPackages>false</AutomaticallyUseReferenceAssemblyPackages>
  </PropertyGroup>
  <ItemGroup>
    <PackageDownload Include="%s" Version="[%s]" />
  </ItemGroup>
</Project>
`

const outputExcerptLimit = 512

// Install downloads packageID at exactly version via a restore run and moves
// it into containerDir. Returns the populated version directory.
func Install(ctx context.Context, deps *infra.Infra, notifier *notify.Notifier, packageID, version, containerDir string) (string, error) {
	dotnetPath, err := deps.LookPath(helpers.DotnetCommand)
	if err != nil {
		notifier.WarnOnce("%s was not found on PATH; it is required to resolve and install the language server", helpers.DotnetCommand)
		return "", fmt.Errorf("%w: %s", helpers.ErrDotnetNotFound, helpers.DotnetCommand)
	}

	scratch, err := os.MkdirTemp(deps.TempDir(), "go-roslyn-restore-")
	if err != nil {
		return "", fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(scratch)
	}()

	projectPath := filepath.Join(scratch, helpers.RestoreProjectFileName)
	if err := os.WriteFile(projectPath, []byte(projectXML(scratch, packageID, version)), helpers.FileMod); err != nil {
		return "", fmt.Errorf("failed to write restore project: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, helpers.SubprocessDefaultTimeout)
	defer cancel()

	out, err := deps.Exec(runCtx, scratch, dotnetPath, "restore", helpers.RestoreProjectFileName)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %s", helpers.ErrRestoreFailed, err, outputExcerpt(out))
	}

	// Restored packages land under the lowercased package ID.
	restoredDir := filepath.Join(scratch, strings.ToLower(packageID), version)
	if _, err := os.Stat(restoredDir); err != nil {
		return "", fmt.Errorf("failed to locate restored package: %w", err)
	}

	versionDir := filepath.Join(containerDir, helpers.VersionDirName(version))
	if err := os.MkdirAll(containerDir, helpers.DirMod); err != nil {
		return "", fmt.Errorf("failed to create container dir: %w", err)
	}
	if err := os.RemoveAll(versionDir); err != nil {
		return "", fmt.Errorf("failed to clear version dir: %w", err)
	}
	if err := moveDir(restoredDir, versionDir); err != nil {
		return "", fmt.Errorf("failed to relocate restored package: %w", err)
	}
	return versionDir, nil
}

// projectXML renders the synthesized restore project.
func projectXML(packagesPath, packageID, version string) string {
	return fmt.Sprintf(projectTemplate, packagesPath, packageID, version)
}

// moveDir renames src to dst, falling back to a recursive copy when the
// rename crosses filesystems.
func moveDir(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyTree(src, dst); err != nil {
		_ = os.RemoveAll(dst)
		return err
	}
	return os.RemoveAll(src)
}

// copyTree copies the directory tree at src to dst, preserving file modes.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if entry.IsDir() {
			return os.MkdirAll(target, helpers.DirMod)
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	//nolint:gosec // paths come from a scratch dir this process created.
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()
	//nolint:gosec // see above.
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// outputExcerpt trims subprocess output to a reportable size.
func outputExcerpt(out []byte) string {
	excerpt := strings.TrimSpace(string(out))
	if len(excerpt) > outputExcerptLimit {
		excerpt = excerpt[:outputExcerptLimit] + "…"
	}
	if excerpt == "" {
		return "(no output)"
	}
	return excerpt
}
