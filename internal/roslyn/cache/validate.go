package cache

import (
	"context"
	"os"
	"path/filepath"

	"github.com/greeddj/go-roslyn/internal/roslyn/output"
)

// Decision is the outcome of validating a cached binary.
type Decision int

const (
	// Redownload means the cached binary cannot be trusted and must be replaced.
	Redownload Decision = iota
	// Reuse means the cached binary is valid and should be served as-is.
	Reuse
)

// Liveness probes whether a cached binary still executes.
type Liveness func(ctx context.Context, binPath string) error

// Validate decides whether a cached binary can be reused. Digest comparison
// runs first: a mismatch always forces a redownload regardless of liveness.
// When either digest is absent the liveness probe alone decides. Liveness
// failures are cache misses, never surfaced errors.
func Validate(ctx context.Context, out output.Printer, binPath, expectedDigest string, live Liveness) Decision {
	if _, err := os.Stat(binPath); err != nil {
		return Redownload
	}
	meta, err := ReadMetadata(filepath.Dir(binPath))
	if err != nil {
		return Redownload
	}
	if meta.Digest != "" && expectedDigest != "" {
		if meta.Digest != expectedDigest {
			if out != nil {
				out.Debugf("cached digest %s does not match expected %s", meta.Digest, expectedDigest)
			}
			return Redownload
		}
		return livenessDecision(ctx, binPath, live)
	}
	return livenessDecision(ctx, binPath, live)
}

func livenessDecision(ctx context.Context, binPath string, live Liveness) Decision {
	if live == nil {
		return Reuse
	}
	if err := live(ctx, binPath); err != nil {
		return Redownload
	}
	return Reuse
}
