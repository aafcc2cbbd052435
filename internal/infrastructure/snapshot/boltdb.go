package snapshot

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/gavinmorrow/hunter-extension-sub000/domain"
)

var (
	snapshotBucket = []byte("snapshot")
	settingsBucket = []byte("settings")

	entitiesKey  = []byte("assignments")
	overridesKey = []byte("overrides")
)

// Store keeps the last known collection and the settings overrides in a BoltDB file.
// Every save overwrites the previous value wholesale.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open initializes the BoltDB file and ensures the buckets exist.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{snapshotBucket, settingsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

// LoadSnapshot returns the stored collection, or nil when nothing was saved yet.
func (s *Store) LoadSnapshot(ctx context.Context) ([]domain.Assignment, error) {
	var doc Document
	found, err := s.get(snapshotBucket, entitiesKey, &doc)
	if err != nil || !found {
		return nil, err
	}
	return doc.Entities, nil
}

// SaveSnapshot overwrites the stored collection.
func (s *Store) SaveSnapshot(ctx context.Context, entities []domain.Assignment) error {
	return s.put(snapshotBucket, entitiesKey, Document{SavedAt: s.now(), Entities: entities})
}

// LoadSettings returns the stored overrides, or nil when none were saved.
func (s *Store) LoadSettings(ctx context.Context) (map[string]any, error) {
	var overrides map[string]any
	if _, err := s.get(settingsBucket, overridesKey, &overrides); err != nil {
		return nil, err
	}
	return overrides, nil
}

// SaveSettings overwrites the stored overrides.
func (s *Store) SaveSettings(ctx context.Context, overrides map[string]any) error {
	return s.put(settingsBucket, overridesKey, overrides)
}

// SavedAt reports when the snapshot was last written.
func (s *Store) SavedAt() (time.Time, error) {
	var doc Document
	if _, err := s.get(snapshotBucket, entitiesKey, &doc); err != nil {
		return time.Time{}, err
	}
	return doc.SavedAt, nil
}

// Ping checks that the database is open and readable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(snapshotBucket) == nil {
			return bolt.ErrBucketNotFound
		}
		return nil
	})
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Stats exposes Bolt statistics for monitoring endpoints.
func (s *Store) Stats() bolt.Stats {
	if s == nil || s.db == nil {
		return bolt.Stats{}
	}
	return s.db.Stats()
}

func (s *Store) get(bucket, key []byte, dst any) (bool, error) {
	if s == nil || s.db == nil {
		return false, bolt.ErrDatabaseNotOpen
	}
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucket).Get(key); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || raw == nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, domain.WrapError(domain.ErrCodeInternal, "decode "+string(key), err)
	}
	return true, nil
}

func (s *Store) put(bucket, key []byte, value any) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(key, payload)
	})
}
