package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig captures the connection parameters for the Redis backed store.
type RedisConfig struct {
	Address  string
	Username string
	Password string
	DB       int
	TLS      bool
	Timeout  time.Duration
	Prefix   string
}

const (
	defaultRedisTimeout = 5 * time.Second
	defaultRedisPrefix  = "ajarra:"
)

// RedisStore implements Store on top of go-redis.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection so that
// misconfiguration is surfaced during application startup.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	cfg.Address = strings.TrimSpace(cfg.Address)
	if cfg.Address == "" {
		return nil, errors.New("redis: address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRedisTimeout
	}

	opts := &redis.Options{
		Addr:         cfg.Address,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}
	if cfg.TLS {
		host := cfg.Address
		if idx := strings.LastIndex(host, ":"); idx > 0 {
			host = host[:idx]
		}
		opts.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	}

	store := NewRedisStoreFromClient(redis.NewClient(opts), cfg.Prefix)
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Address, err)
	}
	return store, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

// IncrementWithTTL increments a counter and starts its window on first use.
func (s *RedisStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	k := s.key(key)

	count, err := s.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := s.client.PExpire(ctx, k, window).Err(); err != nil {
			return 0, 0, err
		}
	}

	ttl, err := s.client.PTTL(ctx, k).Result()
	if err != nil || ttl < 0 {
		// A counter without expiry would never reset.
		_ = s.client.PExpire(ctx, k, window).Err()
		return count, window, nil
	}
	return count, ttl, nil
}

// Set stores a value with PX expiry semantics. A non-positive ttl keeps the key forever.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.key(key), value, ttl).Err()
}

// SetNX stores the value only if the key does not exist.
func (s *RedisStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	return s.client.SetNX(ctx, s.key(key), value, ttl).Result()
}

// Get retrieves the value associated with a key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// TTL reports the remaining lifetime of a key.
func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	ttl, err := s.client.PTTL(ctx, s.key(key)).Result()
	if err != nil {
		return 0, false, err
	}
	// go-redis reports the raw -2 (missing) and -1 (no expiry) replies.
	switch {
	case ttl == -2:
		return 0, false, nil
	case ttl < 0:
		return 0, true, nil
	}
	return ttl, true, nil
}

// Delete removes keys from the store.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = s.key(k)
	}
	return s.client.Del(ctx, prefixed...).Err()
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
