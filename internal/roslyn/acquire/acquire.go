// Package acquire implements the acquisition pipeline: download a resolved
// server version, verify it, promote it into the version cache, and hand back
// a runnable binary descriptor.
package acquire

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/greeddj/go-roslyn/internal/roslyn/archive"
	"github.com/greeddj/go-roslyn/internal/roslyn/cache"
	"github.com/greeddj/go-roslyn/internal/roslyn/config"
	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
	"github.com/greeddj/go-roslyn/internal/roslyn/infra"
	"github.com/greeddj/go-roslyn/internal/roslyn/mirror"
	"github.com/greeddj/go-roslyn/internal/roslyn/store"
	"github.com/greeddj/go-roslyn/internal/roslyn/toolchain"
)

// Deps carries the collaborators of one acquisition run.
type Deps struct {
	Cfg       *config.Config
	Runtime   *infra.Infra
	St        *store.Store
	Artifacts mirror.ArtifactStore
}

// Result is a finished acquisition. Warmup is observable for tests only;
// callers never wait on it.
type Result struct {
	Binary *toolchain.Binary
	Warmup *sync.WaitGroup
}

// Acquire ensures version is present under containerDir and returns its
// binary descriptor. A validated cache hit short-circuits the download.
func Acquire(ctx context.Context, deps Deps, version toolchain.Version, containerDir string) (*Result, error) {
	if deps.Cfg == nil {
		return nil, helpers.ErrConfigIsNil
	}
	if containerDir == "" {
		return nil, helpers.ErrContainerDirEmpty
	}
	acquireStart := time.Now()
	defer func() {
		deps.Runtime.Output.DebugSincef(acquireStart, "acquire %s", version.Tag)
	}()

	versionDir := filepath.Join(containerDir, helpers.VersionDirName(version.Tag))
	binPath := filepath.Join(versionDir, helpers.BinaryFileName())

	if cache.Validate(ctx, deps.Runtime.Output, binPath, version.Digest, livenessProbe(deps.Runtime)) == cache.Reuse {
		deps.Runtime.Output.Printf("⏭️ Using cached %s", helpers.VersionDirName(version.Tag))
		recordAcquisition(deps, version, binPath, containerDir)
		return &Result{Binary: &toolchain.Binary{Path: binPath}, Warmup: &sync.WaitGroup{}}, nil
	}

	tmpDir := versionDir + "-tmp"
	if err := resetDir(tmpDir); err != nil {
		return nil, fmt.Errorf("failed to prepare staging dir: %w", err)
	}

	archivePath, cleanup, err := fetchArchive(ctx, deps, version, tmpDir)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	extractStart := time.Now()
	if err := archive.Extract(archivePath, tmpDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("failed to extract %s: %w", filepath.Base(archivePath), err)
	}
	deps.Runtime.Output.DebugSincef(extractStart, "extract %s", version.Tag)

	extractedBin, err := FindBinary(tmpDir, helpers.BinaryFileName())
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return nil, err
	}

	if err := promote(extractedBin, versionDir, binPath, version.Digest); err != nil {
		_ = os.RemoveAll(tmpDir)
		return nil, err
	}
	evictSiblings(deps.Runtime, containerDir, filepath.Base(versionDir))

	recordAcquisition(deps, version, binPath, containerDir)
	deps.Runtime.Output.Printf("✨ Installed %s", helpers.VersionDirName(version.Tag))

	return &Result{
		Binary: &toolchain.Binary{Path: binPath},
		Warmup: startWarmup(ctx, deps.Runtime, binPath),
	}, nil
}

// livenessProbe builds the cache liveness check: the binary must still run.
func livenessProbe(deps *infra.Infra) cache.Liveness {
	return func(ctx context.Context, binPath string) error {
		probeCtx, cancel := context.WithTimeout(ctx, helpers.SubprocessDefaultTimeout)
		defer cancel()
		_, err := deps.Exec(probeCtx, "", binPath, helpers.LivenessArg)
		return err
	}
}

// fetchArchive obtains the release archive, preferring the mirror when it
// already holds the asset. Fresh downloads are digest-verified while
// streaming and committed back to the mirror.
func fetchArchive(ctx context.Context, deps Deps, version toolchain.Version, tmpDir string) (string, func(), error) {
	if version.URL == "" {
		return "", nil, fmt.Errorf("%w: no download URL for %s", helpers.ErrDownloadFailed, version.Tag)
	}
	key := archiveKey(version)
	useMirror := deps.Artifacts != nil && !deps.Cfg.IsNoCache()

	if useMirror {
		if ok, err := deps.Artifacts.Has(ctx, key); err == nil && ok {
			cached, err := deps.Artifacts.Fetch(ctx, key)
			if err == nil {
				if mirroredDigestOK(deps.Runtime, cached.Path, version.Digest) {
					deps.Runtime.Output.Printf("📦 Using mirrored %s", key)
					return cached.Path, cached.Cleanup, nil
				}
				if cached.Cleanup != nil {
					cached.Cleanup()
				}
			} else {
				deps.Runtime.Output.Debugf("mirror fetch failed, downloading instead: %v", err)
			}
		}
	}

	downloadStart := time.Now()
	archivePath, sha, err := downloadToTemp(ctx, deps.Runtime, version.URL, tmpDir, filepath.Base(version.URL))
	if err != nil {
		return "", nil, err
	}
	deps.Runtime.Output.DebugSincef(downloadStart, "download %s", version.Tag)

	if version.Digest != "" && !strings.EqualFold(version.Digest, sha) {
		_ = os.Remove(archivePath)
		return "", nil, fmt.Errorf("%w: %s != %s", helpers.ErrDigestMismatch, version.Digest, sha)
	}

	if useMirror {
		stored, err := deps.Artifacts.Commit(ctx, key, archivePath, map[string]string{"sha256": sha})
		if err == nil {
			return stored.Path, stored.Cleanup, nil
		}
		deps.Runtime.Output.Debugf("mirror commit failed: %v", err)
	}
	return archivePath, nil, nil
}

// mirroredDigestOK reports whether a mirrored archive matches the release
// digest. Archives without a published digest are trusted as-is.
func mirroredDigestOK(deps *infra.Infra, path, expected string) bool {
	if expected == "" {
		return true
	}
	sha, err := archive.FileHashSHA256(path)
	if err != nil {
		deps.Output.Debugf("mirrored archive unreadable, downloading instead: %v", err)
		return false
	}
	if !strings.EqualFold(expected, sha) {
		deps.Output.Debugf("mirrored archive digest %s does not match expected %s", sha, expected)
		return false
	}
	return true
}

// downloadToTemp streams url into a temp file inside dir, hashing as it goes.
func downloadToTemp(ctx context.Context, deps *infra.Infra, downloadURL, dir, name string) (string, string, error) {
	deps.Output.Printf("🌐 Downloading %s", downloadURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, http.NoBody)
	if err != nil {
		return "", "", err
	}
	resp, err := deps.HTTP.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %s", helpers.ErrDownloadFailed, downloadURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("%w: %s (%s)", helpers.ErrDownloadFailed, downloadURL, resp.Status)
	}

	target := filepath.Join(dir, name)
	//nolint:gosec // target lives inside the staging dir this process created.
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, helpers.FileMod)
	if err != nil {
		return "", "", err
	}
	hasher := sha256.New()
	writer := io.MultiWriter(out, hasher)
	if _, err := io.Copy(writer, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(target)
		return "", "", fmt.Errorf("%w: %s: %s", helpers.ErrDownloadFailed, downloadURL, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(target)
		return "", "", err
	}
	return target, hex.EncodeToString(hasher.Sum(nil)), nil
}

// FindBinary locates binName under root by iterative depth-first walk.
func FindBinary(root, binName string) (string, error) {
	stack := []string{root}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		entries, err := os.ReadDir(dir)
		if err != nil {
			return "", fmt.Errorf("failed to scan extracted archive: %w", err)
		}
		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				stack = append(stack, path)
				continue
			}
			if entry.Name() == binName {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s under %s", helpers.ErrBinaryNotFound, binName, root)
}

// promote moves the extracted binary into its final version directory and
// writes the sidecar metadata.
func promote(extractedBin, versionDir, binPath, digest string) error {
	if err := os.MkdirAll(versionDir, helpers.DirMod); err != nil {
		return fmt.Errorf("failed to create version dir: %w", err)
	}
	if err := helpers.MoveFile(extractedBin, binPath); err != nil {
		return fmt.Errorf("failed to place binary: %w", err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(binPath, helpers.BinMod); err != nil {
			return fmt.Errorf("failed to mark binary executable: %w", err)
		}
	}
	if err := cache.WriteMetadata(versionDir, digest); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// evictSiblings removes every version directory except keep. The staging dir
// shares the version prefix, so eviction also cleans it up. Snapshot and lock
// files in the container dir are left alone. Failures are non-fatal; the next
// acquisition retries.
func evictSiblings(deps *infra.Infra, containerDir, keep string) {
	entries, err := os.ReadDir(containerDir)
	if err != nil {
		deps.Output.Warnf("failed to scan container dir for eviction: %v", err)
		return
	}
	for _, entry := range entries {
		if entry.Name() == keep || !strings.HasPrefix(entry.Name(), helpers.VersionDirPrefix+"-") {
			continue
		}
		if err := os.RemoveAll(filepath.Join(containerDir, entry.Name())); err != nil {
			deps.Output.Warnf("failed to evict %s: %v", entry.Name(), err)
		}
	}
}

// startWarmup launches the detached cache-prefetch run of the new binary.
// Its outcome is deliberately discarded; the server re-fetches on demand.
func startWarmup(ctx context.Context, deps *infra.Infra, binPath string) *sync.WaitGroup {
	wg := &sync.WaitGroup{}
	wg.Add(1)
	warmupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), helpers.SubprocessDefaultTimeout)
	go func() {
		defer wg.Done()
		defer cancel()
		_, _ = deps.Exec(warmupCtx, "", binPath, helpers.WarmupArg)
	}()
	return wg
}

// recordAcquisition updates the snapshot store with the install and the
// container directory registry.
func recordAcquisition(deps Deps, version toolchain.Version, binPath, containerDir string) {
	if deps.St == nil {
		return
	}
	now := time.Now().UTC()
	if deps.Runtime != nil && deps.Runtime.Now != nil {
		now = deps.Runtime.Now().UTC()
	}
	deps.St.SetInstalled(version.Tag, store.InstalledEntry{
		Tag:         version.Tag,
		BinaryPath:  binPath,
		Digest:      version.Digest,
		Source:      version.URL,
		InstalledAt: now,
	})
	deps.St.SetContainer(containerDir, store.ContainerRecord{
		ContainerDir: containerDir,
		LastTag:      version.Tag,
		LastUsed:     now,
	})
}

// archiveKey builds the mirror key for a release asset. Every release
// publishes the same asset filename, so the tag must be part of the key or
// all versions would collide on one mirror entry.
func archiveKey(version toolchain.Version) string {
	return url.QueryEscape(version.Tag + "-" + filepath.Base(version.URL))
}

// resetDir recreates dir empty.
func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.MkdirAll(dir, helpers.DirMod)
}
