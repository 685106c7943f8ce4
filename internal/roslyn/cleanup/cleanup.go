// Package cleanup removes stale version directories across every recorded
// container directory and prunes the snapshot store to match.
package cleanup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	backendSelect "github.com/greeddj/go-roslyn/internal/mirror"
	"github.com/greeddj/go-roslyn/internal/roslyn/config"
	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
	"github.com/greeddj/go-roslyn/internal/roslyn/infra"
	mirrorManager "github.com/greeddj/go-roslyn/internal/roslyn/mirror"
	"github.com/greeddj/go-roslyn/internal/roslyn/store"
)

type cleanupState struct {
	backend mirrorManager.Backend
	store   *store.Store
	release func() error
}

// Start runs the cleanup pass.
func Start(ctx context.Context, cfg *config.Config, deps *infra.Infra) error {
	err := run(ctx, cfg, deps)
	if err != nil {
		deps.Output.Errorf("Error: %s", err.Error())
	}
	return err
}

func run(ctx context.Context, cfg *config.Config, deps *infra.Infra) error {
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

	containers := state.store.ContainersSnapshot()
	if len(containers) == 0 {
		deps.Output.PersistentPrintf("ℹ️ No container directories recorded.")
	}

	removed := 0
	for key, record := range containers {
		removed += pruneContainer(deps, state.store, key, record)
	}

	if cfg.ClearCache {
		state.store.ClearCaches()
	}
	if err := state.backend.SaveStore(ctx, state.store); err != nil {
		return err
	}
	if cfg.ClearCache {
		deps.Output.Printf("🧹 clearing mirror state files")
		if err := state.backend.ClearFiles(ctx); err != nil {
			return err
		}
	}

	deps.Output.PersistentPrintf("🤩 Removed %d stale entries. Took %s", removed, time.Since(start).Round(time.Second))
	return nil
}

func initState(ctx context.Context, cfg *config.Config, deps *infra.Infra) (*cleanupState, error) {
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
	deps.Output.Printf("🚀 load storage")
	st, err := backend.LoadStore(ctx)
	if err != nil {
		_ = releaseLock()
		_ = backend.Close(ctx)
		return nil, err
	}
	return &cleanupState{
		backend: backend,
		store:   st,
		release: releaseLock,
	}, nil
}

// pruneContainer removes every version directory of one container except the
// one matching its last recorded tag. A container gone from disk is dropped
// from the registry entirely.
func pruneContainer(deps *infra.Infra, st *store.Store, key string, record store.ContainerRecord) int {
	entries, err := os.ReadDir(record.ContainerDir)
	if errors.Is(err, os.ErrNotExist) {
		deps.Output.Printf("🧹 dropping vanished container %s", record.ContainerDir)
		st.DeleteContainer(key)
		return 0
	}
	if err != nil {
		deps.Output.Warnf("failed to scan container %s: %v", record.ContainerDir, err)
		return 0
	}

	keep := helpers.VersionDirName(record.LastTag)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, helpers.VersionDirPrefix+"-") || name == keep {
			continue
		}
		if err := os.RemoveAll(filepath.Join(record.ContainerDir, name)); err != nil {
			deps.Output.Warnf("failed to remove %s: %v", name, err)
			continue
		}
		deps.Output.Printf("🧹 removed %s", name)
		st.DeleteInstalled(strings.TrimPrefix(name, helpers.VersionDirPrefix+"-"))
		removed++
	}
	return removed
}
