package cache

import (
	"context"
	"testing"
	"time"

	"multishop-server/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, "test:"), mr
}

func TestRedisCacheSetGet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{Name: "a", Count: 2}, time.Minute))
	assert.True(t, mr.Exists("test:k"))

	var got payload
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, payload{Name: "a", Count: 2}, got)
}

func TestRedisCacheMissAndExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	var got payload
	assert.ErrorIs(t, c.Get(ctx, "missing", &got), ErrMiss)

	require.NoError(t, c.Set(ctx, "k", payload{Name: "a"}, time.Second))
	mr.FastForward(2 * time.Second)
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrMiss)
}

func TestRedisCacheDelete(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, c.Set(ctx, "b", 2, time.Minute))
	require.NoError(t, c.Delete(ctx, "a", "b"))
	require.NoError(t, c.Delete(ctx))
	assert.False(t, mr.Exists("test:a"))
	assert.False(t, mr.Exists("test:b"))
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", 1, time.Minute))
	var v int
	assert.ErrorIs(t, c.Get(ctx, "k", &v), ErrMiss)
	assert.NoError(t, c.Delete(ctx, "k"))
}

func TestConnect(t *testing.T) {
	client, err := Connect(context.Background(), config.Redis{})
	require.NoError(t, err)
	assert.Nil(t, client)

	mr := miniredis.RunT(t)
	client, err = Connect(context.Background(), config.Redis{Addr: mr.Addr()})
	require.NoError(t, err)
	require.NotNil(t, client)
	_ = client.Close()

	addr := mr.Addr()
	mr.Close()
	_, err = Connect(context.Background(), config.Redis{Addr: addr})
	assert.Error(t, err)
}
