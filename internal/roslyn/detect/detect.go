// Package detect finds a system-wide language-server install on PATH.
package detect

import (
	"github.com/greeddj/go-roslyn/internal/roslyn/infra"
	"github.com/greeddj/go-roslyn/internal/roslyn/toolchain"
)

// Find looks binName up on the search path. Absence is not an error: a
// system install is an optimization, and the pipeline falls through to the
// cache and the network when there is none.
func Find(deps *infra.Infra, binName string) (*toolchain.Binary, bool) {
	path, err := deps.LookPath(binName)
	if err != nil || path == "" {
		return nil, false
	}
	return &toolchain.Binary{Path: path}, true
}
