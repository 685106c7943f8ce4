package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
	"github.com/klauspost/pgzip"
)

func TestSanitizeArchivePath(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "empty", input: "", wantErr: helpers.ErrArchiveEntryHasEmptyName},
		{name: "abs", input: "/etc/passwd", wantErr: helpers.ErrArchiveEntryIsAbsolutePath},
		{name: "escape", input: "../evil", wantErr: helpers.ErrArchiveEntryEscapesDestination},
		{name: "dot", input: ".", want: ""},
		{name: "ok", input: "dir/file", want: filepath.FromSlash("dir/file")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := sanitizeArchivePath(tt.input)
			if tt.wantErr != nil {
				if err == nil {
					t.Fatalf("expected error")
				}
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

// writeTarGz builds a tar.gz fixture with the given path->content entries.
func writeTarGz(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	zw := pgzip.NewWriter(&buf)
	tw := tar.NewWriter(zw)
	for name, content := range entries {
		hdr := &tar.Header{
			Name: name,
			Mode: 0o755,
			Size: int64(len(content)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("write body: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

// writeZip builds a zip fixture with the given path->content entries.
func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func TestExtractTarGz(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := filepath.Join(dir, "asset.tar.gz")
	writeTarGz(t, src, map[string]string{
		"bin/server":  "payload",
		"docs/readme": "hello",
	})

	dst := filepath.Join(dir, "out")
	if err := ExtractTarGz(src, dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dst, "bin", "server"))
	if err != nil {
		t.Fatalf("missing extracted file: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("expected %q, got %q", "payload", string(data))
	}
}

func TestExtractTarGzEmptyFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := filepath.Join(dir, "empty.tar.gz")
	if err := os.WriteFile(src, nil, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	err := ExtractTarGz(src, filepath.Join(dir, "out"))
	if !errors.Is(err, helpers.ErrFileIsEmpty) {
		t.Fatalf("expected ErrFileIsEmpty, got %v", err)
	}
}

func TestExtractZip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := filepath.Join(dir, "asset.zip")
	writeZip(t, src, map[string]string{
		"nested/deep/server.exe": "payload",
	})

	dst := filepath.Join(dir, "out")
	if err := ExtractZip(src, dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dst, "nested", "deep", "server.exe"))
	if err != nil {
		t.Fatalf("missing extracted file: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("expected %q, got %q", "payload", string(data))
	}
}

func TestExtractZipRejectsEscape(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := filepath.Join(dir, "evil.zip")
	writeZip(t, src, map[string]string{
		"../outside": "nope",
	})

	err := ExtractZip(src, filepath.Join(dir, "out"))
	if !errors.Is(err, helpers.ErrArchiveEntryEscapesDestination) {
		t.Fatalf("expected escape error, got %v", err)
	}
}

func TestExtractPicksFormatByExtension(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := filepath.Join(dir, "asset.zip")
	writeZip(t, src, map[string]string{"file": "zip-data"})

	dst := filepath.Join(dir, "out")
	if err := Extract(src, dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "file")); err != nil {
		t.Fatalf("zip content not extracted: %v", err)
	}
}

func TestFileHashSHA256(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "blob")
	content := []byte("digest me")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	sum := sha256.Sum256(content)
	want := hex.EncodeToString(sum[:])
	got, err := FileHashSHA256(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
