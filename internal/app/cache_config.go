package app

import (
	"strings"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/cache"
)

// RedisStoreConfig maps the cache section onto cache.RedisConfig. An empty
// prefix keeps the store's own default namespace.
func (c CacheConfig) RedisStoreConfig() cache.RedisConfig {
	redis := c.Redis
	return cache.RedisConfig{
		Address:  strings.TrimSpace(redis.Address),
		Username: strings.TrimSpace(redis.Username),
		Password: redis.Password,
		DB:       redis.DB,
		TLS:      redis.TLS,
		Timeout:  redis.Timeout,
		Prefix:   strings.TrimSpace(redis.Prefix),
	}
}
