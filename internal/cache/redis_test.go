package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, "engagement:")
	t.Cleanup(func() { _ = store.Close() })

	return store, mr
}

func TestRedisStore_GetMissing(t *testing.T) {
	store, _ := setupRedis(t)

	value, ok, err := store.Get(context.Background(), "user_progress:v1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestRedisStore_SetGetDelete(t *testing.T) {
	store, mr := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "consent:v1", "granted"))

	// Keys are namespaced by the prefix
	raw, err := mr.Get("engagement:consent:v1")
	require.NoError(t, err)
	assert.Equal(t, "granted", raw)
	assert.Zero(t, mr.TTL("engagement:consent:v1"))

	value, ok, err := store.Get(ctx, "consent:v1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "granted", value)

	require.NoError(t, store.Delete(ctx, "consent:v1"))
	_, ok, err = store.Get(ctx, "consent:v1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_ErrorWhenServerDown(t *testing.T) {
	store, mr := setupRedis(t)
	mr.Close()

	err := store.Set(context.Background(), "consent:v1", "granted")
	assert.Error(t, err)

	_, _, err = store.Get(context.Background(), "consent:v1")
	assert.Error(t, err)
}

func TestRedisStore_Health(t *testing.T) {
	store, _ := setupRedis(t)
	assert.NoError(t, store.Health(context.Background()))
}
