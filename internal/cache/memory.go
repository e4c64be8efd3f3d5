// internal/cache/memory.go
package cache

import (
	"context"
	"sync"
	"time"

	"feedback-pipeline/internal/common/logger"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// memoryStore is the process-local fallback used when the Redis backend
// is unavailable. Entries track their own expiry and are evicted lazily
// on read; there is no background sweep.
type memoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	logger  logger.Logger
	now     func() time.Time
}

// NewMemoryStore creates the in-process fallback cache.
func NewMemoryStore(log logger.Logger) Store {
	return &memoryStore{
		entries: make(map[string]memoryEntry),
		logger:  log.With(map[string]interface{}{"cacheBackend": "memory"}),
		now:     time.Now,
	}
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return nil, false
	}

	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, true
}

func (s *memoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) bool {
	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{
		value:     stored,
		expiresAt: s.now().Add(ttl),
	}
	return true
}

func (s *memoryStore) Delete(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return true
}
