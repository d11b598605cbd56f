package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisCache(rdb, ttl), mr
}

type payload struct {
	Total int      `json:"total"`
	Names []string `json:"names"`
}

func TestRedisCacheGetSet(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	var got payload
	hit, err := c.Get(ctx, "p1", "competitors:s1", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "p1", "competitors:s1", payload{Total: 3, Names: []string{"Acme"}}))
	hit, err = c.Get(ctx, "p1", "competitors:s1", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, payload{Total: 3, Names: []string{"Acme"}}, got)

	mr.FastForward(2 * time.Minute)
	hit, err = c.Get(ctx, "p1", "competitors:s1", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisCacheInvalidateProject(t *testing.T) {
	c, mr := newTestCache(t, 0)
	ctx := context.Background()

	for i := 0; i < 450; i++ {
		require.NoError(t, c.Set(ctx, "p1", "k"+strconv.Itoa(i), i))
	}
	require.NoError(t, c.Set(ctx, "p2", "k", 1))

	require.NoError(t, c.InvalidateProject(ctx, "p1"))

	var v int
	hit, err := c.Get(ctx, "p2", "k", &v)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Len(t, mr.Keys(), 1)
}

func TestRedisCacheLock(t *testing.T) {
	c, mr := newTestCache(t, 0)
	other := NewRedisCache(c.rdb, 0)
	ctx := context.Background()

	ok, err := c.TryLock(ctx, "schedule:p1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = other.TryLock(ctx, "schedule:p1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, other.Unlock(ctx, "schedule:p1"))
	assert.True(t, mr.Exists(lockPrefix+"schedule:p1"))

	require.NoError(t, c.Unlock(ctx, "schedule:p1"))
	assert.False(t, mr.Exists(lockPrefix+"schedule:p1"))

	ok, err = other.TryLock(ctx, "schedule:p1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var n Noop
	hit, err := n.Get(ctx, "p", "k", new(int))
	assert.NoError(t, err)
	assert.False(t, hit)
	ok, err := n.TryLock(ctx, "x", time.Second)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisCachePing(t *testing.T) {
	c, mr := newTestCache(t, 0)
	require.NoError(t, c.Ping(context.Background()))

	mr.Close()
	assert.Error(t, c.Ping(context.Background()))
}

func TestConnect(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb, err := Connect(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	rdb.Close()

	_, err = Connect(context.Background(), "not a url")
	assert.Error(t, err)
}
