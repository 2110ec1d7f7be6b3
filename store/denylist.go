package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const denylistPrefix = "taskassign:revoked:"

type RedisDenylist struct {
	client *redis.Client
}

func NewRedisDenylist(ctx context.Context, url string) (*RedisDenylist, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisDenylist{client: client}, nil
}

func (d *RedisDenylist) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, denylistPrefix+jti, 1, ttl).Err()
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := d.client.Get(ctx, denylistPrefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (d *RedisDenylist) Close() error {
	return d.client.Close()
}

// MemoryDenylist is used when no Redis is configured. Entries are pruned
// lazily on lookup.
type MemoryDenylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{entries: map[string]time.Time{}, now: time.Now}
}

func (d *MemoryDenylist) Revoke(_ context.Context, jti string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if until.After(d.now()) {
		d.entries[jti] = until
	}
	return nil
}

func (d *MemoryDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	until, ok := d.entries[jti]
	if !ok {
		return false, nil
	}
	if !until.After(d.now()) {
		delete(d.entries, jti)
		return false, nil
	}
	return true, nil
}
