package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisSecretStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisSecretStore(client), mr
}

func TestSecretStoreSetGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))

	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", value)
}

func TestSecretStoreGetMissingIsNotAnError(t *testing.T) {
	store, _ := newTestStore(t)

	value, ok, err := store.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestSecretStoreExpiredKeyIsAbsent(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))
	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSecretStoreDeleteIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, store.Delete(ctx, "k"))
	require.NoError(t, store.Delete(ctx, "k"))

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSecretStoreIncrementCreatesAtOne(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	count, err := store.Increment(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = store.Increment(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSecretStoreExpire(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, err := store.Increment(ctx, "counter")
	require.NoError(t, err)
	require.NoError(t, store.Expire(ctx, "counter", time.Minute))

	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Get(ctx, "counter")
	require.NoError(t, err)
	assert.False(t, ok)
}
