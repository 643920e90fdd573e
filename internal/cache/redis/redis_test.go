package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aniladanir/file-relay-service/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestRedisCache_SetGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "drive_folder:root:acme", "folder-1", time.Minute))

	val, err := c.Get(ctx, "drive_folder:root:acme")
	require.NoError(t, err)
	assert.Equal(t, "folder-1", val)
}

func TestRedisCache_Miss(t *testing.T) {
	c, _ := newTestCache(t)

	_, err := c.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestRedisCache_Expiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Second))
	mr.FastForward(2 * time.Second)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestRedisCache_Delete(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	require.NoError(t, c.Delete(ctx, "k"))

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := NewRedisCache(ctx, "127.0.0.1:1")
	assert.Error(t, err)
}
