// internal/cache/cache.go

// Package cache implements the volatile result cache: a Redis backend
// with a process-local fallback, both behind one fail-open contract.
package cache

import (
	"context"
	"time"

	"feedback-pipeline/internal/common/config"
	"feedback-pipeline/internal/common/database"
	"feedback-pipeline/internal/common/logger"
)

const keyPrefix = "feedback_results:"

// Store is the cache contract. Implementations never return errors:
// backend faults are logged and degrade toward the durable store — a
// failed Get is a miss, a failed Set leaves the value uncached, and
// Delete is idempotent. The cache is a performance optimization with no
// authority; its loss changes latency, never correctness.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool
	Delete(ctx context.Context, key string) bool
}

// Key returns the cache key for a feedback id. Keys are not
// timestamp-qualified: the cache always reflects the latest known
// completed result for the id.
func Key(feedbackID string) string {
	return keyPrefix + feedbackID
}

// New selects the cache backend with a one-time startup probe. If the
// Redis backend cannot be reached the process falls back permanently to
// the in-memory store; the choice is never retried per-call.
func New(cfg config.RedisConfig, log logger.Logger) Store {
	if cfg.Address == "" {
		log.Warn("no redis address configured, using in-memory cache", nil)
		return NewMemoryStore(log)
	}

	client := database.NewRedis(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		log.WithError(err).Warn("redis unavailable, using in-memory cache", map[string]interface{}{
			"address": cfg.Address,
		})
		client.Close()
		return NewMemoryStore(log)
	}

	log.Info("cache backend ready", map[string]interface{}{
		"backend": "redis",
		"address": cfg.Address,
	})
	return NewRedisStore(client.Client, log)
}
