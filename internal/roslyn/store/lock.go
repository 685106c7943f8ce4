package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
)

// lockClaim is the JSON payload written into the lock file. The PID decides
// staleness; the rest is there for humans inspecting a wedged container dir.
type lockClaim struct {
	PID       int       `json:"pid"`
	Tool      string    `json:"tool"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// AcquireLock claims an exclusive lock file inside containerDir so only one
// process mutates the snapshot database and version directories at a time.
// A lock left behind by a dead process is stolen; a live owner is an error.
func AcquireLock(containerDir string) (func() error, error) {
	if containerDir == "" {
		return nil, helpers.ErrCacheDirEmpty
	}

	lockPath := filepath.Join(containerDir, helpers.StoreDBLock)
	claim, err := json.Marshal(&lockClaim{
		PID:       os.Getpid(),
		Tool:      helpers.VersionDirPrefix,
		ClaimedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	for {
		release, err := claimLock(lockPath, claim)
		if err == nil {
			return release, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}
		if err := evictStaleLock(lockPath); err != nil {
			return nil, err
		}
	}
}

// claimLock creates the lock file exclusively and writes the claim into it.
func claimLock(lockPath string, claim []byte) (func() error, error) {
	//nolint:gosec // lockPath lives inside the container directory by construction.
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, helpers.FileMod)
	if err != nil {
		return nil, err
	}
	_, werr := f.Write(claim)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(lockPath)
		if werr != nil {
			return nil, werr
		}
		return nil, cerr
	}
	return func() error { return dropLock(lockPath, claim) }, nil
}

// evictStaleLock removes a lock whose owning process is gone. It returns
// ErrAnotherInstanceIsRunning when the owner is still alive.
func evictStaleLock(lockPath string) error {
	//nolint:gosec // lockPath lives inside the container directory by construction.
	raw, err := os.ReadFile(lockPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil // owner released between our attempts
	}
	if err != nil {
		return err
	}

	var owner lockClaim
	if err := json.Unmarshal(raw, &owner); err != nil {
		return fmt.Errorf("lock file exists but is invalid: %w", err)
	}
	if pidAlive(owner.PID) {
		return fmt.Errorf("%w (pid %d)", helpers.ErrAnotherInstanceIsRunning, owner.PID)
	}
	if err := os.Remove(lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// dropLock releases the lock only when it still carries our claim, so a
// stolen-and-reclaimed lock is never removed from under the new owner.
func dropLock(lockPath string, claim []byte) error {
	//nolint:gosec // lockPath lives inside the container directory by construction.
	current, err := os.ReadFile(lockPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if !bytes.Equal(current, claim) {
		return nil
	}
	return os.Remove(lockPath)
}
