// Package install orchestrates the full acquisition pipeline behind the
// install command: resolve a version, obtain its binary, and persist the
// snapshot store.
package install

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	backendSelect "github.com/greeddj/go-roslyn/internal/mirror"
	"github.com/greeddj/go-roslyn/internal/roslyn/acquire"
	"github.com/greeddj/go-roslyn/internal/roslyn/cache"
	"github.com/greeddj/go-roslyn/internal/roslyn/config"
	"github.com/greeddj/go-roslyn/internal/roslyn/feed"
	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
	"github.com/greeddj/go-roslyn/internal/roslyn/infra"
	mirrorManager "github.com/greeddj/go-roslyn/internal/roslyn/mirror"
	"github.com/greeddj/go-roslyn/internal/roslyn/notify"
	"github.com/greeddj/go-roslyn/internal/roslyn/release"
	"github.com/greeddj/go-roslyn/internal/roslyn/restore"
	"github.com/greeddj/go-roslyn/internal/roslyn/store"
	"github.com/greeddj/go-roslyn/internal/roslyn/toolchain"
)

type installState struct {
	backend mirrorManager.Backend
	store   *store.Store
	release func() error
}

// Start runs the acquisition pipeline and prints the resulting binary
// descriptor.
func Start(ctx context.Context, cfg *config.Config, deps *infra.Infra) error {
	err := run(ctx, cfg, deps)
	if err != nil {
		deps.Output.Errorf("Error: %s", err.Error())
	}
	return err
}

func run(ctx context.Context, cfg *config.Config, deps *infra.Infra) error {
	deps.Output.Printf("🚀 Starting acquisition")
	start := time.Now()

	state, err := initState(ctx, cfg, deps)
	if err != nil {
		return err
	}
	defer func() {
		if state.release != nil {
			_ = state.release()
		}
	}()
	defer func() {
		_ = state.backend.Close(ctx)
	}()

	notifier := notify.New(deps.Output)
	version, err := resolveVersion(ctx, cfg, deps, state.store, notifier)
	if err != nil {
		return err
	}
	deps.Output.Printf("🔍 Resolved %s", version.Tag)

	if cfg.DryRun {
		deps.Output.PersistentPrintf("⏭️ Dry-run: would install %s", version.Tag)
		return nil
	}

	binary, err := obtainBinary(ctx, cfg, deps, state, notifier, version)
	if err != nil {
		return err
	}

	return finalize(ctx, cfg, deps, state, binary, start)
}

func initState(ctx context.Context, cfg *config.Config, deps *infra.Infra) (*installState, error) {
	deps.Output.Printf("🚀 init mirror backend")
	backend, err := backendSelect.New(cfg, deps)
	if err != nil {
		return nil, err
	}
	if err := backend.Open(ctx); err != nil {
		return nil, err
	}
	releaseLock, err := backend.Lock(ctx)
	if err != nil {
		_ = backend.Close(ctx)
		return nil, err
	}

	snapshotStart := time.Now()
	deps.Output.Printf("🚀 load storage")
	st, err := backend.LoadStore(ctx)
	if err != nil {
		_ = releaseLock()
		_ = backend.Close(ctx)
		return nil, err
	}
	deps.Output.DebugSincef(snapshotStart, "%s", "load snapshot")

	if cfg.ClearCache {
		st.ClearCaches()
	}

	return &installState{
		backend: backend,
		store:   st,
		release: releaseLock,
	}, nil
}

// resolveVersion picks the version source: the package feed when requested,
// the release index otherwise.
func resolveVersion(
	ctx context.Context,
	cfg *config.Config,
	deps *infra.Infra,
	st *store.Store,
	notifier *notify.Notifier,
) (toolchain.Version, error) {
	if cfg.UseFeed {
		return feed.Resolve(ctx, deps, notifier, cfg.FeedPackageID, cfg.FeedSource)
	}
	pinned := cfg.Constraint != "" && cfg.Constraint != "*"
	policy := mirrorManager.PolicyForRequest(cfg, pinned)
	return release.Resolve(ctx, deps, st, cfg.Repo, cfg.Constraint, cfg.Prerelease, policy)
}

// obtainBinary materializes the resolved version: feed versions go through
// the restore path, release versions through the download engine.
func obtainBinary(
	ctx context.Context,
	cfg *config.Config,
	deps *infra.Infra,
	state *installState,
	notifier *notify.Notifier,
	version toolchain.Version,
) (*toolchain.Binary, error) {
	if cfg.UseFeed {
		return restoreBinary(ctx, cfg, deps, state.store, notifier, version)
	}
	result, err := acquire.Acquire(ctx, acquire.Deps{
		Cfg:       cfg,
		Runtime:   deps,
		St:        state.store,
		Artifacts: state.backend.Artifacts(),
	}, version, cfg.ContainerDir)
	if err != nil {
		return nil, err
	}
	return result.Binary, nil
}

// restoreBinary installs a feed-resolved version via the build tool and
// locates its server binary.
func restoreBinary(
	ctx context.Context,
	cfg *config.Config,
	deps *infra.Infra,
	st *store.Store,
	notifier *notify.Notifier,
	version toolchain.Version,
) (*toolchain.Binary, error) {
	versionDir, err := restore.Install(ctx, deps, notifier, cfg.FeedPackageID, version.Tag, cfg.ContainerDir)
	if err != nil {
		return nil, err
	}
	binPath, err := acquire.FindBinary(versionDir, helpers.BinaryFileName())
	if err != nil {
		return nil, err
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(binPath, helpers.BinMod); err != nil {
			return nil, fmt.Errorf("failed to mark binary executable: %w", err)
		}
	}
	if err := cache.WriteMetadata(versionDir, ""); err != nil {
		return nil, fmt.Errorf("failed to write metadata: %w", err)
	}

	now := deps.Now().UTC()
	st.SetInstalled(version.Tag, store.InstalledEntry{
		Tag:         version.Tag,
		BinaryPath:  binPath,
		Source:      cfg.FeedSource,
		InstalledAt: now,
	})
	st.SetContainer(cfg.ContainerDir, store.ContainerRecord{
		ContainerDir: cfg.ContainerDir,
		LastTag:      version.Tag,
		LastUsed:     now,
	})
	deps.Output.Printf("✨ Installed %s", helpers.VersionDirName(version.Tag))
	return &toolchain.Binary{Path: binPath}, nil
}

func finalize(
	ctx context.Context,
	cfg *config.Config,
	deps *infra.Infra,
	state *installState,
	binary *toolchain.Binary,
	start time.Time,
) error {
	saveStart := time.Now()
	if err := state.backend.SaveStore(ctx, state.store); err != nil {
		return err
	}
	deps.Output.DebugSincef(saveStart, "%s", "save snapshot")

	rendered, err := toolchain.Render(binary, cfg.Format)
	if err != nil {
		return err
	}
	deps.Output.PersistentPrintf("%s", rendered)
	deps.Output.PersistentPrintf("🤩 All done. Took %s", time.Since(start).Round(time.Second))
	return nil
}
