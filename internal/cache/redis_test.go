package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todo-summary/internal/config"
	"todo-summary/internal/models"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, time.Minute), mr
}

func TestTodosRoundTripPerUser(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, ok := c.GetTodos(ctx, 1)
	assert.False(t, ok)

	require.True(t, c.SetTodos(ctx, 1, 0, []byte(`[{"id":1}]`)))
	b, ok := c.GetTodos(ctx, 1)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":1}]`, string(b))

	_, ok = c.GetTodos(ctx, 2)
	assert.False(t, ok, "lists are keyed per user")

	mr.FastForward(2 * time.Minute)
	_, ok = c.GetTodos(ctx, 1)
	assert.False(t, ok, "entries expire")
}

func TestSummaryAndInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	want := models.TodoSummary{Total: 3, Completed: 1, Pending: 2}

	c.SetSummary(ctx, 5, 0, want)
	c.SetTodos(ctx, 5, 0, []byte(`[]`))
	got, ok := c.GetSummary(ctx, 5)
	require.True(t, ok)
	assert.Equal(t, want, got)

	c.Invalidate(ctx, 5)
	_, ok = c.GetSummary(ctx, 5)
	assert.False(t, ok)
	_, ok = c.GetTodos(ctx, 5)
	assert.False(t, ok)
}

func TestFillAfterWriteIsDropped(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	gen, ok := c.Generation(ctx, 3)
	require.True(t, ok)
	assert.Zero(t, gen)

	c.Invalidate(ctx, 3)
	assert.False(t, c.SetTodos(ctx, 3, gen, []byte(`[]`)), "list read before the write")
	assert.False(t, c.SetSummary(ctx, 3, gen, models.TodoSummary{}), "summary read before the write")
	assert.False(t, mr.Exists(TodosKey(3)))
	assert.False(t, mr.Exists(SummaryKey(3)))

	gen, ok = c.Generation(ctx, 3)
	require.True(t, ok)
	assert.Equal(t, int64(1), gen)
	assert.True(t, c.SetTodos(ctx, 3, gen, []byte(`[{"id":9}]`)))
	b, ok := c.GetTodos(ctx, 3)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":9}]`, string(b))
	assert.Equal(t, time.Minute, mr.TTL(TodosKey(3)))
}

func TestFillWithoutTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := New(client, 0)

	require.True(t, c.SetTodos(context.Background(), 1, 0, []byte(`[]`)))
	assert.Zero(t, mr.TTL(TodosKey(1)))
}

func TestNilCacheIsNoop(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	assert.Nil(t, New(nil, time.Minute))
	assert.False(t, c.SetTodos(ctx, 1, 0, []byte(`[]`)))
	assert.False(t, c.SetSummary(ctx, 1, 0, models.TodoSummary{}))
	_, ok := c.Generation(ctx, 1)
	assert.False(t, ok)
	c.Invalidate(ctx, 1)
	_, ok = c.GetTodos(ctx, 1)
	assert.False(t, ok)
	_, ok = c.GetSummary(ctx, 1)
	assert.False(t, ok)
	assert.NoError(t, c.Ping(ctx))
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Defaults()
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"

	client, err := Connect(context.Background(), cfg)
	require.NoError(t, err)
	defer client.Close()

	cfg.RedisURL = "::not a url::"
	_, err = Connect(context.Background(), cfg)
	assert.Error(t, err)
}
