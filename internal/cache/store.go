package cache

import (
	"context"
	"time"
)

// Store represents a shared cache interface used across the application.
// Counters use fixed windows: the expiry is set by the first increment.
type Store interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// TTL returns the remaining lifetime of key; ok is false when the key is missing.
	TTL(ctx context.Context, key string) (time.Duration, bool, error)
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}
