package store

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"sync"
	"time"

	"github.com/greeddj/go-roslyn/internal/roslyn/helpers"
	bolt "go.etcd.io/bbolt"
)

// SnapshotMeta holds metadata about the persisted snapshot.
type SnapshotMeta struct {
	SchemaVersion int       `json:"schema_version"`
	LastRun       time.Time `json:"last_run"`
}

// APICacheEntry stores a cached release index response and validation data.
type APICacheEntry struct {
	URL          string        `json:"url"`
	ETag         string        `json:"etag"`
	LastModified string        `json:"last_modified"`
	FetchedAt    time.Time     `json:"fetched_at"`
	TTL          time.Duration `json:"ttl"`
	Body         []byte        `json:"body"`
}

// InstalledEntry records an acquired server version.
type InstalledEntry struct {
	Tag         string    `json:"tag"`
	BinaryPath  string    `json:"binary_path"`
	Digest      string    `json:"digest"`
	Source      string    `json:"source"`
	InstalledAt time.Time `json:"installed_at"`
}

// ContainerRecord describes a container directory and its last use.
type ContainerRecord struct {
	ContainerDir string    `json:"container_dir"`
	LastTag      string    `json:"last_tag"`
	LastUsed     time.Time `json:"last_used"`
}

// Store holds cached state for acquired server versions and metadata.
type Store struct {
	mu         sync.RWMutex               `json:"-"`
	Meta       SnapshotMeta               `json:"meta"`
	APICache   map[string]APICacheEntry   `json:"api_cache"`
	Installed  map[string]InstalledEntry  `json:"installed"`
	Containers map[string]ContainerRecord `json:"containers"`
}

// New creates an initialized Store with empty maps.
func New() *Store {
	return &Store{
		Meta: SnapshotMeta{
			SchemaVersion: helpers.StoreSnapshotSchemaVersion,
		},
		APICache:   make(map[string]APICacheEntry),
		Installed:  make(map[string]InstalledEntry),
		Containers: make(map[string]ContainerRecord),
	}
}

// GetAPICache returns a cached release index entry by key.
func (m *Store) GetAPICache(key string) (APICacheEntry, bool) {
	if m == nil {
		return APICacheEntry{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.APICache[key]
	return entry, ok
}

// SetAPICache stores a cached release index entry.
func (m *Store) SetAPICache(key string, entry APICacheEntry) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.APICache[key] = entry
}

// SetInstalled records an acquired server version entry.
func (m *Store) SetInstalled(key string, entry InstalledEntry) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Installed[key] = entry
}

// DeleteInstalled removes an installed entry by key.
func (m *Store) DeleteInstalled(key string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Installed, key)
}

// GetInstalled returns an installed entry by key.
func (m *Store) GetInstalled(key string) (InstalledEntry, bool) {
	if m == nil {
		return InstalledEntry{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.Installed[key]
	return entry, ok
}

// InstalledSnapshot returns a copy of installed entries.
func (m *Store) InstalledSnapshot() map[string]InstalledEntry {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	clone := make(map[string]InstalledEntry, len(m.Installed))
	maps.Copy(clone, m.Installed)
	return clone
}

// SetContainer records or updates a container directory entry.
func (m *Store) SetContainer(key string, record ContainerRecord) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Containers[key] = record
}

// GetContainer returns a container record by key.
func (m *Store) GetContainer(key string) (ContainerRecord, bool) {
	if m == nil {
		return ContainerRecord{}, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.Containers[key]
	return record, ok
}

// ContainersSnapshot returns a copy of the container-directory registry.
func (m *Store) ContainersSnapshot() map[string]ContainerRecord {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	clone := make(map[string]ContainerRecord, len(m.Containers))
	maps.Copy(clone, m.Containers)
	return clone
}

// DeleteContainer removes a container record by key.
func (m *Store) DeleteContainer(key string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Containers, key)
}

// ClearCaches clears the release index response cache.
func (m *Store) ClearCaches() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.APICache = make(map[string]APICacheEntry)
}

// MetaSnapshot returns the current snapshot metadata.
func (m *Store) MetaSnapshot() SnapshotMeta {
	if m == nil {
		return SnapshotMeta{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Meta
}

// snapshotData is a serialized view of Store contents.
type snapshotData struct {
	Meta       SnapshotMeta
	APICache   map[string]APICacheEntry
	Installed  map[string]InstalledEntry
	Containers map[string]ContainerRecord
}

// snapshotData builds a snapshot payload from the store.
func (m *Store) snapshotData() snapshotData {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data := snapshotData{
		Meta:       m.Meta,
		APICache:   make(map[string]APICacheEntry, len(m.APICache)),
		Installed:  make(map[string]InstalledEntry, len(m.Installed)),
		Containers: make(map[string]ContainerRecord, len(m.Containers)),
	}
	maps.Copy(data.APICache, m.APICache)
	maps.Copy(data.Installed, m.Installed)
	maps.Copy(data.Containers, m.Containers)
	return data
}

// Load reads cached state from the Bolt database.
func Load(db *DB) (*Store, error) {
	store := New()
	if db == nil {
		return store, nil
	}

	if err := loadMeta(db, store); err != nil {
		return nil, err
	}
	if err := validateSnapshotSchema(store.Meta.SchemaVersion); err != nil {
		return nil, err
	}
	if err := runLoadSteps(db, store); err != nil {
		return nil, err
	}
	return store, nil
}

// Save writes cached state to the Bolt database.
func Save(db *DB, store *Store) error {
	if db == nil {
		return helpers.ErrDbNil
	}
	if store == nil {
		return helpers.ErrStoreNil
	}

	data := store.snapshotData()
	data.Meta.SchemaVersion = helpers.StoreSnapshotSchemaVersion
	data.Meta.LastRun = time.Now().UTC()

	if err := saveMeta(db, data.Meta); err != nil {
		return err
	}
	return runSaveSteps(db, data)
}

func validateSnapshotSchema(version int) error {
	if version > helpers.StoreSnapshotSchemaVersion {
		return fmt.Errorf("%w: %d", helpers.ErrUnsupportedSchemaVersion, version)
	}
	return nil
}

func runLoadSteps(db *DB, store *Store) error {
	steps := []func() error{
		func() error { return loadAPICache(db, store) },
		func() error { return loadInstalled(db, store) },
		func() error { return loadContainers(db, store) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func runSaveSteps(db *DB, data snapshotData) error {
	steps := []func() error{
		func() error { return saveAPICache(db, data) },
		func() error { return saveInstalled(db, data) },
		func() error { return saveContainers(db, data) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func loadMeta(db *DB, store *Store) error {
	if db.handle == nil {
		return nil
	}
	return db.handle.View(func(tx *bolt.Tx) error {
		metaBucket := tx.Bucket([]byte(helpers.StoreBucketMeta))
		if metaBucket == nil {
			return nil
		}
		if v := metaBucket.Get([]byte(helpers.StoreMetaSchemaVersion)); v != nil {
			version, err := strconv.Atoi(string(v))
			if err != nil {
				return fmt.Errorf("invalid schema version: %w", err)
			}
			store.Meta.SchemaVersion = version
		}
		if v := metaBucket.Get([]byte(helpers.StoreMetaLastRun)); v != nil {
			t, err := time.Parse(time.RFC3339Nano, string(v))
			if err != nil {
				return fmt.Errorf("invalid last run time: %w", err)
			}
			store.Meta.LastRun = t
		}
		return nil
	})
}

func loadAPICache(db *DB, store *Store) error {
	return loadBucket(db, helpers.StoreBucketAPICache, func(k, v []byte) error {
		var entry APICacheEntry
		if err := json.Unmarshal(v, &entry); err != nil {
			return err
		}
		store.APICache[string(k)] = entry
		return nil
	})
}

func loadInstalled(db *DB, store *Store) error {
	return loadBucket(db, helpers.StoreBucketInstalled, func(k, v []byte) error {
		var entry InstalledEntry
		if err := json.Unmarshal(v, &entry); err != nil {
			return err
		}
		store.Installed[string(k)] = entry
		return nil
	})
}

func loadContainers(db *DB, store *Store) error {
	return loadBucket(db, helpers.StoreBucketContainers, func(k, v []byte) error {
		var record ContainerRecord
		if err := json.Unmarshal(v, &record); err != nil {
			return err
		}
		store.Containers[string(k)] = record
		return nil
	})
}

func saveMeta(db *DB, meta SnapshotMeta) error {
	if db.handle == nil {
		return nil
	}
	return db.handle.Update(func(tx *bolt.Tx) error {
		metaBucket, err := ensureEmptyBucket(tx, helpers.StoreBucketMeta)
		if err != nil {
			return err
		}
		if err := metaBucket.Put([]byte(helpers.StoreMetaSchemaVersion), []byte(strconv.Itoa(meta.SchemaVersion))); err != nil {
			return err
		}
		return metaBucket.Put([]byte(helpers.StoreMetaLastRun), []byte(meta.LastRun.Format(time.RFC3339Nano)))
	})
}

func saveAPICache(db *DB, data snapshotData) error {
	return saveBucket(db, helpers.StoreBucketAPICache, data.APICache, func(entry APICacheEntry) ([]byte, error) {
		return json.Marshal(&entry)
	})
}

func saveInstalled(db *DB, data snapshotData) error {
	return saveBucket(db, helpers.StoreBucketInstalled, data.Installed, func(entry InstalledEntry) ([]byte, error) {
		return json.Marshal(&entry)
	})
}

func saveContainers(db *DB, data snapshotData) error {
	return saveBucket(db, helpers.StoreBucketContainers, data.Containers, func(record ContainerRecord) ([]byte, error) {
		return json.Marshal(&record)
	})
}

// ensureEmptyBucket recreates a bucket to ensure it is empty.
func ensureEmptyBucket(tx *bolt.Tx, name string) (*bolt.Bucket, error) {
	bucket := tx.Bucket([]byte(name))
	if bucket != nil {
		if err := tx.DeleteBucket([]byte(name)); err != nil {
			return nil, err
		}
	}
	return tx.CreateBucket([]byte(name))
}

// loadBucket iterates over a bucket and calls fn for each entry.
func loadBucket(db *DB, name string, fn func(k, v []byte) error) error {
	if db == nil || db.handle == nil {
		return nil
	}
	return db.handle.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(name))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(fn)
	})
}

// saveBucket writes data to a bucket using the encode callback.
func saveBucket[T any](db *DB, name string, data map[string]T, encode func(T) ([]byte, error)) error {
	if db == nil || db.handle == nil {
		return nil
	}
	return db.handle.Update(func(tx *bolt.Tx) error {
		bucket, err := ensureEmptyBucket(tx, name)
		if err != nil {
			return err
		}
		for key, entry := range data {
			encoded, err := encode(entry)
			if err != nil {
				return err
			}
			if err := bucket.Put([]byte(key), encoded); err != nil {
				return err
			}
		}
		return nil
	})
}
