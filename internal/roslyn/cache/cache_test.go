package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
)

func writeCachedBinary(t *testing.T, containerDir, tag, digest string) string {
	t.Helper()
	versionDir := filepath.Join(containerDir, helpers.VersionDirName(tag))
	if err := os.MkdirAll(versionDir, helpers.DirMod); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}
	binPath := filepath.Join(versionDir, helpers.ServerBinaryName)
	if err := os.WriteFile(binPath, []byte("#!/bin/sh\n"), helpers.BinMod); err != nil {
		t.Fatalf("write binary error: %v", err)
	}
	if err := WriteMetadata(versionDir, digest); err != nil {
		t.Fatalf("WriteMetadata error: %v", err)
	}
	return binPath
}

func alwaysAlive(context.Context, string) error { return nil }

func neverAlive(context.Context, string) error { return errors.New("exec failed") }

func TestValidateReuseOnMatchingDigest(t *testing.T) {
	t.Parallel()
	binPath := writeCachedBinary(t, t.TempDir(), "5.0.0", "abc123")
	if got := Validate(context.Background(), nil, binPath, "abc123", alwaysAlive); got != Reuse {
		t.Fatalf("expected Reuse, got %v", got)
	}
}

func TestValidateRedownloadOnDigestMismatch(t *testing.T) {
	t.Parallel()
	binPath := writeCachedBinary(t, t.TempDir(), "5.0.0", "abc123")
	// Liveness must not rescue a digest mismatch.
	if got := Validate(context.Background(), nil, binPath, "other", alwaysAlive); got != Redownload {
		t.Fatalf("expected Redownload, got %v", got)
	}
}

func TestValidateLivenessDecidesWhenDigestAbsent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		sidecar  string
		expected string
		live     Liveness
		want     Decision
	}{
		{name: "no sidecar digest alive", sidecar: "", expected: "abc", live: alwaysAlive, want: Reuse},
		{name: "no expected digest alive", sidecar: "abc", expected: "", live: alwaysAlive, want: Reuse},
		{name: "no sidecar digest dead", sidecar: "", expected: "abc", live: neverAlive, want: Redownload},
		{name: "matching digest dead", sidecar: "abc", expected: "abc", live: neverAlive, want: Redownload},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			binPath := writeCachedBinary(t, t.TempDir(), "5.0.0", tc.sidecar)
			if got := Validate(context.Background(), nil, binPath, tc.expected, tc.live); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestValidateRedownloadOnMissingBinary(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	missing := filepath.Join(dir, helpers.VersionDirName("5.0.0"), helpers.ServerBinaryName)
	if got := Validate(context.Background(), nil, missing, "abc", alwaysAlive); got != Redownload {
		t.Fatalf("expected Redownload, got %v", got)
	}
}

func TestValidateRedownloadOnMissingSidecar(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	versionDir := filepath.Join(dir, helpers.VersionDirName("5.0.0"))
	if err := os.MkdirAll(versionDir, helpers.DirMod); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}
	binPath := filepath.Join(versionDir, helpers.ServerBinaryName)
	if err := os.WriteFile(binPath, []byte("x"), helpers.BinMod); err != nil {
		t.Fatalf("write binary error: %v", err)
	}
	if got := Validate(context.Background(), nil, binPath, "abc", alwaysAlive); got != Redownload {
		t.Fatalf("expected Redownload, got %v", got)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := WriteMetadata(dir, "deadbeef"); err != nil {
		t.Fatalf("WriteMetadata error: %v", err)
	}
	meta, err := ReadMetadata(dir)
	if err != nil {
		t.Fatalf("ReadMetadata error: %v", err)
	}
	if meta.MetadataVersion != helpers.MetadataVersion {
		t.Fatalf("unexpected metadata version: %d", meta.MetadataVersion)
	}
	if meta.Digest != "deadbeef" {
		t.Fatalf("unexpected digest: %q", meta.Digest)
	}
}

func TestLatestPicksLastListedVersion(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeCachedBinary(t, dir, "1.0.0", "a")
	want := writeCachedBinary(t, dir, "2.0.0", "b")
	// A version dir without the binary must be skipped.
	empty := filepath.Join(dir, helpers.VersionDirName("3.0.0"))
	if err := os.MkdirAll(empty, helpers.DirMod); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}
	got, ok := Latest(dir, helpers.ServerBinaryName)
	if !ok {
		t.Fatalf("expected a cached binary")
	}
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestLatestEmptyContainer(t *testing.T) {
	t.Parallel()
	if _, ok := Latest(t.TempDir(), helpers.ServerBinaryName); ok {
		t.Fatalf("expected no cached binary")
	}
	if _, ok := Latest(filepath.Join(t.TempDir(), "missing"), helpers.ServerBinaryName); ok {
		t.Fatalf("expected no cached binary for missing dir")
	}
}
