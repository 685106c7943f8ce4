package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	st := buildTestStore(fixed)
	if err := Save(db, st); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	loaded, err := Load(db)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	assertMeta(t, loaded)
	assertAPICache(t, loaded)
	assertInstalled(t, loaded)
	assertContainers(t, loaded)
}

func TestSaveNilArguments(t *testing.T) {
	t.Parallel()
	if err := Save(nil, New()); !errors.Is(err, helpers.ErrDbNil) {
		t.Fatalf("expected ErrDbNil, got %v", err)
	}
	db := openTestDB(t)
	if err := Save(db, nil); !errors.Is(err, helpers.ErrStoreNil) {
		t.Fatalf("expected ErrStoreNil, got %v", err)
	}
}

func TestLoadRejectsNewerSchema(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	st := New()
	st.Meta.SchemaVersion = helpers.StoreSnapshotSchemaVersion
	if err := Save(db, st); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := validateSnapshotSchema(helpers.StoreSnapshotSchemaVersion + 1); !errors.Is(err, helpers.ErrUnsupportedSchemaVersion) {
		t.Fatalf("expected ErrUnsupportedSchemaVersion, got %v", err)
	}
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := OpenDB(dir)
	if err != nil {
		t.Fatalf("OpenDB error: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func buildTestStore(fixed time.Time) *Store {
	st := New()
	st.SetAPICache("releases", APICacheEntry{
		URL:       "https://example.com/releases",
		ETag:      "etag",
		FetchedAt: fixed,
		TTL:       time.Minute,
		Body:      []byte(`[{"tag_name":"5.0.0"}]`),
	})
	st.SetInstalled("5.0.0", InstalledEntry{
		Tag:         "5.0.0",
		BinaryPath:  "/tmp/container/roslyn-5.0.0/csharp-language-server",
		Digest:      "abc",
		Source:      "https://example.com/releases/5.0.0",
		InstalledAt: fixed,
	})
	st.SetContainer("/tmp/container", ContainerRecord{
		ContainerDir: "/tmp/container",
		LastTag:      "5.0.0",
		LastUsed:     fixed,
	})
	return st
}

func assertMeta(t *testing.T, loaded *Store) {
	t.Helper()
	if loaded.Meta.SchemaVersion != helpers.StoreSnapshotSchemaVersion {
		t.Fatalf("unexpected schema version: %d", loaded.Meta.SchemaVersion)
	}
	if loaded.Meta.LastRun.IsZero() {
		t.Fatalf("expected LastRun to be set")
	}
}

func assertAPICache(t *testing.T, loaded *Store) {
	t.Helper()
	entry, ok := loaded.GetAPICache("releases")
	if !ok {
		t.Fatalf("expected release cache entry")
	}
	if entry.URL != "https://example.com/releases" {
		t.Fatalf("unexpected release cache url: %q", entry.URL)
	}
	if string(entry.Body) != `[{"tag_name":"5.0.0"}]` {
		t.Fatalf("unexpected release cache body: %s", string(entry.Body))
	}
	if entry.TTL != time.Minute {
		t.Fatalf("unexpected ttl: %v", entry.TTL)
	}
}

func assertInstalled(t *testing.T, loaded *Store) {
	t.Helper()
	entry, ok := loaded.GetInstalled("5.0.0")
	if !ok {
		t.Fatalf("expected installed entry")
	}
	if entry.Tag != "5.0.0" || entry.Digest != "abc" {
		t.Fatalf("unexpected installed entry: %+v", entry)
	}
}

func assertContainers(t *testing.T, loaded *Store) {
	t.Helper()
	record, ok := loaded.GetContainer("/tmp/container")
	if !ok {
		t.Fatalf("expected container record")
	}
	if record.LastTag != "5.0.0" {
		t.Fatalf("unexpected container record: %+v", record)
	}
}

func TestAcquireLockBlocksSecondHolder(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	release, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("AcquireLock error: %v", err)
	}
	if _, err := AcquireLock(dir); !errors.Is(err, helpers.ErrAnotherInstanceIsRunning) {
		t.Fatalf("expected ErrAnotherInstanceIsRunning, got %v", err)
	}
	if err := release(); err != nil {
		t.Fatalf("release error: %v", err)
	}
	release2, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("AcquireLock after release error: %v", err)
	}
	if err := release2(); err != nil {
		t.Fatalf("second release error: %v", err)
	}
}

func TestAcquireLockReclaimsStaleLock(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	stale := []byte(`{"pid":-1}`)
	if err := os.WriteFile(filepath.Join(dir, helpers.StoreDBLock), stale, helpers.FileMod); err != nil {
		t.Fatalf("seed lock error: %v", err)
	}
	release, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("AcquireLock error: %v", err)
	}
	if err := release(); err != nil {
		t.Fatalf("release error: %v", err)
	}
}

func TestClearStateFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	keep := filepath.Join(dir, "roslyn-5.0.0")
	if err := os.MkdirAll(keep, helpers.DirMod); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}
	files := []string{helpers.StoreDBLocal, helpers.StoreDBLock, ".download-123", "partial.tmp"}
	for _, name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), helpers.FileMod); err != nil {
			t.Fatalf("seed %s error: %v", name, err)
		}
	}
	if err := ClearStateFiles(dir); err != nil {
		t.Fatalf("ClearStateFiles error: %v", err)
	}
	for _, name := range files {
		if _, err := os.Stat(filepath.Join(dir, name)); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected %s to be removed", name)
		}
	}
	if _, err := os.Stat(keep); err != nil {
		t.Fatalf("expected version dir to survive: %v", err)
	}
}
