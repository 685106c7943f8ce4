// Package notify deduplicates user-facing precondition warnings. A single
// Notifier is constructed per process and shared by every resolution attempt
// so a missing prerequisite is reported exactly once no matter how many
// acquisitions race.
package notify

import (
	"sync/atomic"

	"github.com/greeddj/go-roslyn/internal/roslyn/output"
)

// Notifier emits each warning at most once per process lifetime.
type Notifier struct {
	out    output.Printer
	warned atomic.Bool
}

// New creates a Notifier writing through the given printer.
func New(out output.Printer) *Notifier {
	return &Notifier{out: out}
}

// WarnOnce prints the warning on the first call and drops every later one.
// Returns whether this call actually printed.
func (n *Notifier) WarnOnce(format string, args ...any) bool {
	if n == nil || n.out == nil {
		return false
	}
	if !n.warned.CompareAndSwap(false, true) {
		return false
	}
	n.out.Warnf(format, args...)
	return true
}
