// Package bbolt implements ports.SnapshotStore using bbolt (embedded B+ tree).
// Snapshots live in a single "snapshots" bucket keyed by name, so several
// caches can share one database file. Writes are transactional: a crash
// mid-write cannot corrupt the previously committed snapshot.
package bbolt

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/corey/dropcache/internal/ports"
)

// DefaultKey is the snapshot name used when none is configured.
const DefaultKey = "cache"

var (
	bucketSnapshots = []byte("snapshots")
	bucketSavedAt   = []byte("saved_at")
)

// Store implements ports.SnapshotStore backed by bbolt.
type Store struct {
	db  *bolt.DB
	key []byte
}

var _ ports.SnapshotStore = (*Store)(nil)

// NewStore opens (or creates) a bbolt database at the given path. The
// snapshot is stored under key, or DefaultKey when key is empty.
func NewStore(path, key string) (*Store, error) {
	if key == "" {
		key = DefaultKey
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db, key: []byte(key)}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.db.Path()
}

// SaveSnapshot replaces the stored snapshot and records when it was written.
func (s *Store) SaveSnapshot(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("nil snapshot")
	}

	var stamp [8]byte
	binary.BigEndian.PutUint64(stamp[:], uint64(time.Now().UnixNano()))

	return s.db.Update(func(tx *bolt.Tx) error {
		sb, err := tx.CreateBucketIfNotExists(bucketSnapshots)
		if err != nil {
			return err
		}
		if err := sb.Put(s.key, data); err != nil {
			return err
		}
		tb, err := tx.CreateBucketIfNotExists(bucketSavedAt)
		if err != nil {
			return err
		}
		return tb.Put(s.key, stamp[:])
	})
}

// LoadSnapshot returns the stored snapshot.
// Returns nil, nil if nothing has been saved yet.
func (s *Store) LoadSnapshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		sb := tx.Bucket(bucketSnapshots)
		if sb == nil {
			return nil
		}
		// Copy bytes out of the transaction (bbolt slices are only valid within tx)
		if v := sb.Get(s.key); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// SavedAt returns when the snapshot was last written, or the zero time.
func (s *Store) SavedAt() (time.Time, error) {
	var ts time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		tb := tx.Bucket(bucketSavedAt)
		if tb == nil {
			return nil
		}
		if v := tb.Get(s.key); len(v) == 8 {
			ts = time.Unix(0, int64(binary.BigEndian.Uint64(v)))
		}
		return nil
	})
	return ts, err
}

// DeleteSnapshot removes the stored snapshot.
// Idempotent: deleting a missing snapshot is not an error.
func (s *Store) DeleteSnapshot(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketSnapshots, bucketSavedAt} {
			b := tx.Bucket(name)
			if b == nil {
				continue
			}
			if err := b.Delete(s.key); err != nil {
				return err
			}
		}
		return nil
	})
}
