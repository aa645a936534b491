// Package redis implements ports.SnapshotStore on a Redis server, for
// deployments where several daemons share one warm cache.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/corey/dropcache/internal/ports"
)

// DefaultKey is the Redis key used when none is configured.
const DefaultKey = "dropcache:snapshot"

// Store keeps the snapshot document in a single Redis string key.
type Store struct {
	client *goredis.Client
	key    string
}

var _ ports.SnapshotStore = (*Store)(nil)

// NewStore connects to the server at url (redis://[user:pass@]host:port/db)
// and pings it so a bad address fails at startup rather than on first save.
func NewStore(ctx context.Context, url, key string) (*Store, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return NewStoreWithClient(client, key), nil
}

// NewStoreWithClient wraps an existing client.
func NewStoreWithClient(client *goredis.Client, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key}
}

// Key returns the Redis key holding the snapshot.
func (s *Store) Key() string { return s.key }

// SaveSnapshot overwrites the key. Snapshots carry their own per-entry
// expiry, so the key itself never expires.
func (s *Store) SaveSnapshot(ctx context.Context, data []byte) error {
	if data == nil {
		return fmt.Errorf("nil snapshot")
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

// LoadSnapshot returns the stored document, or nil, nil when the key is absent.
func (s *Store) LoadSnapshot(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return data, nil
}

// DeleteSnapshot removes the key. Deleting a missing key is not an error.
func (s *Store) DeleteSnapshot(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", s.key, err)
	}
	return nil
}

// Close closes the client connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}
