// Package locate serves the offline lookup path: find a usable server
// binary without ever touching the network.
package locate

import (
	"context"
	"fmt"

	"github.com/greeddj/go-roslyn/internal/roslyn/cache"
	"github.com/greeddj/go-roslyn/internal/roslyn/config"
	"github.com/greeddj/go-roslyn/internal/roslyn/detect"
	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
	"github.com/greeddj/go-roslyn/internal/roslyn/infra"
	"github.com/greeddj/go-roslyn/internal/roslyn/toolchain"
)

// Start prints the descriptor of the best locally available binary: a system
// install on PATH first unless disabled, then the newest cached version.
func Start(_ context.Context, cfg *config.Config, deps *infra.Infra) error {
	binary, err := Find(cfg, deps)
	if err != nil {
		deps.Output.Errorf("Error: %s", err.Error())
		return err
	}

	rendered, renderErr := toolchain.Render(binary, cfg.Format)
	if renderErr != nil {
		return renderErr
	}
	deps.Output.PersistentPrintf("%s", rendered)
	return nil
}

// Find resolves the binary without printing.
func Find(cfg *config.Config, deps *infra.Infra) (*toolchain.Binary, error) {
	if !cfg.NoSystem {
		if binary, ok := detect.Find(deps, helpers.BinaryFileName()); ok {
			deps.Output.Printf("🔍 Found system install %s", binary.Path)
			return binary, nil
		}
	}

	binPath, ok := cache.Latest(cfg.ContainerDir, helpers.BinaryFileName())
	if !ok {
		return nil, fmt.Errorf("%w: %s", helpers.ErrNoCachedBinary, cfg.ContainerDir)
	}
	deps.Output.Printf("📦 Found cached install %s", binPath)
	return &toolchain.Binary{Path: binPath}, nil
}
