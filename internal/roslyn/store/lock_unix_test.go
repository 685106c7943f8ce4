//go:build !windows

package store

import (
	"os"
	"testing"
)

func TestPidAlive(t *testing.T) {
	t.Parallel()
	if !pidAlive(os.Getpid()) {
		t.Fatalf("expected own pid to be alive")
	}
	if pidAlive(0) || pidAlive(-1) {
		t.Fatalf("expected non-positive pids to be dead")
	}
}
