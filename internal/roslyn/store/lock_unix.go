//go:build !windows

package store

import (
	"errors"
	"syscall"
)

// pidAlive reports whether the process owning a lock claim is still running.
// EPERM means the process exists but belongs to another user.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
