// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces, never on concrete implementations.
package ports

import "context"

// SnapshotStore persists the serialized cache snapshot to an external byte store.
// The cache owns the document format (versioned JSON); the store only moves bytes.
// Backends are interchangeable: bbolt (embedded, default) or Redis.
//
// Crash safety: SaveSnapshot must replace the previous snapshot atomically.
// A crash mid-write must not leave a half-written document behind.
type SnapshotStore interface {
	// SaveSnapshot overwrites the stored snapshot with data.
	SaveSnapshot(ctx context.Context, data []byte) error

	// LoadSnapshot returns the stored snapshot.
	// Returns nil, nil if nothing has been saved yet (fresh store).
	LoadSnapshot(ctx context.Context) ([]byte, error)

	// DeleteSnapshot removes the stored snapshot.
	// Idempotent: deleting a missing snapshot is not an error.
	DeleteSnapshot(ctx context.Context) error

	// Close releases the underlying connection or file handle.
	Close() error
}
