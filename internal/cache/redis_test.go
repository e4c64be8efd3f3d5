// internal/cache/redis_test.go
package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"feedback-pipeline/internal/common/config"
	"feedback-pipeline/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisStore(t *testing.T) (Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, logger.NewTestLogger(t)), mr
}

func TestRedisStore_SetGetDelete(t *testing.T) {
	store, _ := newMiniredisStore(t)
	ctx := context.Background()

	require.True(t, store.Set(ctx, Key("fb-1"), []byte(`{"cache_hit":false}`), 300*time.Second))

	val, found := store.Get(ctx, Key("fb-1"))
	require.True(t, found)
	assert.Equal(t, []byte(`{"cache_hit":false}`), val)

	assert.True(t, store.Delete(ctx, Key("fb-1")))
	_, found = store.Get(ctx, Key("fb-1"))
	assert.False(t, found)

	// Deleting an absent key is not an error.
	assert.True(t, store.Delete(ctx, Key("fb-1")))
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	store, mr := newMiniredisStore(t)
	ctx := context.Background()

	store.Set(ctx, Key("fb-2"), []byte("cached"), 300*time.Second)
	require.True(t, mr.Exists(Key("fb-2")))

	mr.FastForward(301 * time.Second)

	_, found := store.Get(ctx, Key("fb-2"))
	assert.False(t, found)
}

func TestRedisStore_BackendFaultsFailOpen(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client, logger.NewNoOpLogger())
	ctx := context.Background()

	mock.ExpectGet(Key("fb-3")).SetErr(errors.New("connection refused"))
	val, found := store.Get(ctx, Key("fb-3"))
	assert.False(t, found, "backend fault must read as a miss")
	assert.Nil(t, val)

	mock.ExpectSet(Key("fb-3"), []byte("v"), time.Minute).SetErr(errors.New("connection refused"))
	assert.False(t, store.Set(ctx, Key("fb-3"), []byte("v"), time.Minute))

	mock.ExpectDel(Key("fb-3")).SetErr(errors.New("connection refused"))
	assert.False(t, store.Delete(ctx, Key("fb-3")))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNew_FallsBackToMemoryWhenRedisUnreachable(t *testing.T) {
	// Port 1 refuses connections; the probe must fail fast and select the
	// in-memory store for the process lifetime.
	store := New(config.RedisConfig{Address: "127.0.0.1:1"}, logger.NewTestLogger(t))

	_, isMemory := store.(*memoryStore)
	assert.True(t, isMemory, "expected fallback to the in-memory store")

	ctx := context.Background()
	store.Set(ctx, Key("fb-4"), []byte("still works"), time.Minute)
	val, found := store.Get(ctx, Key("fb-4"))
	require.True(t, found)
	assert.Equal(t, []byte("still works"), val)
}

func TestNew_UsesRedisWhenReachable(t *testing.T) {
	mr := miniredis.RunT(t)

	store := New(config.RedisConfig{Address: mr.Addr()}, logger.NewTestLogger(t))

	_, isRedis := store.(*redisStore)
	assert.True(t, isRedis, "expected the redis-backed store")
}

func TestNew_EmptyAddressUsesMemory(t *testing.T) {
	store := New(config.RedisConfig{}, logger.NewTestLogger(t))
	_, isMemory := store.(*memoryStore)
	assert.True(t, isMemory)
}
