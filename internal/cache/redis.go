// internal/cache/redis.go
package cache

import (
	"context"
	"errors"
	"time"

	"feedback-pipeline/internal/common/logger"
	"feedback-pipeline/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

// redisStore is the network-backed cache. Expiry is delegated to Redis
// via SET with TTL.
type redisStore struct {
	client *redis.Client
	logger logger.Logger
}

// NewRedisStore wraps an already-connected Redis client as a Store.
func NewRedisStore(client *redis.Client, log logger.Logger) Store {
	return &redisStore{
		client: client,
		logger: log.With(map[string]interface{}{"cacheBackend": "redis"}),
	}
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			metrics.CacheBackendFaults.WithLabelValues("get").Inc()
			s.logger.WithError(err).Warn("cache get failed, treating as miss", map[string]interface{}{
				"key": key,
			})
		}
		return nil, false
	}
	return val, true
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		metrics.CacheBackendFaults.WithLabelValues("set").Inc()
		s.logger.WithError(err).Warn("cache set failed, value not cached", map[string]interface{}{
			"key": key,
		})
		return false
	}
	return true
}

func (s *redisStore) Delete(ctx context.Context, key string) bool {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		metrics.CacheBackendFaults.WithLabelValues("delete").Inc()
		s.logger.WithError(err).Warn("cache delete failed", map[string]interface{}{
			"key": key,
		})
		return false
	}
	return true
}
