package mirror

import (
	"time"

	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
)

// Policy controls cache read/write behavior and TTL.
type Policy struct {
	Read  bool
	Write bool
	TTL   time.Duration
}

// Options exposes cache-related flags used to derive a Policy.
type Options interface {
	IsNoCache() bool
	IsRefresh() bool
}

// PolicyForRequest builds a cache policy based on options and version pinning.
// Pinned tags can be cached indefinitely; release listings expire.
func PolicyForRequest(opts Options, pinned bool) Policy {
	if opts == nil {
		return Policy{Read: true, Write: true}
	}
	if opts.IsNoCache() {
		return Policy{}
	}
	if !pinned {
		if opts.IsRefresh() {
			return Policy{Write: true, TTL: helpers.CacheReleaseListTTL}
		}
		return Policy{Read: true, Write: true, TTL: helpers.CacheReleaseListTTL}
	}
	return Policy{Read: true, Write: true}
}
