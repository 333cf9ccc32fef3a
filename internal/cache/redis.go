package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"todo-summary/internal/config"
	"todo-summary/internal/models"
	"todo-summary/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Connect builds a Redis client from cfg and pings it.
func Connect(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	opts.PoolSize = cfg.RedisPoolSize
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info(ctx, "Redis client initialized", "pool_size", cfg.RedisPoolSize)
	return client, nil
}

// Cache holds per-user todo lists and summaries. A nil *Cache is a valid,
// always-missing cache, so callers need not check whether Redis is configured.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New wraps client. Entries expire after ttl.
func New(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, ttl: ttl}
}

// TodosKey is the key of a user's encoded todo list.
func TodosKey(userID int64) string {
	return fmt.Sprintf("todos:user:%d", userID)
}

// SummaryKey is the key of a user's todo summary.
func SummaryKey(userID int64) string {
	return fmt.Sprintf("todos:summary:%d", userID)
}

// GenerationKey counts the writes to a user's todos. Loaders only store what
// they read if it has not moved since.
func GenerationKey(userID int64) string {
	return fmt.Sprintf("todos:gen:%d", userID)
}

// setIfGeneration writes KEYS[2] only while KEYS[1] still holds ARGV[1].
// A missing generation counts as 0; ARGV[3] is the TTL in ms, 0 for none.
var setIfGeneration = redis.NewScript(`
local gen = redis.call('GET', KEYS[1]) or '0'
if gen ~= ARGV[1] then
	return 0
end
if ARGV[3] == '0' then
	redis.call('SET', KEYS[2], ARGV[2])
else
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
end
return 1
`)

// Ping checks that Redis answers.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// GetTodos returns the user's encoded todo list. Returns (nil, false) on miss or error.
func (c *Cache) GetTodos(ctx context.Context, userID int64) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	b, err := c.client.Get(ctx, TodosKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		logger.Debug(ctx, "Redis get todos failed", "error", err)
		return nil, false
	}
	return b, true
}

// Generation returns the user's write generation, to be read before loading
// from the store and passed back to SetTodos or SetSummary. ok is false when
// the cache is off or unreachable, in which case the load must not be stored.
func (c *Cache) Generation(ctx context.Context, userID int64) (gen int64, ok bool) {
	if c == nil {
		return 0, false
	}
	gen, err := c.client.Get(ctx, GenerationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		logger.Debug(ctx, "Redis get generation failed", "error", err)
		return 0, false
	}
	return gen, true
}

// SetTodos stores the user's encoded todo list unless a write happened after gen was read.
func (c *Cache) SetTodos(ctx context.Context, userID, gen int64, b []byte) bool {
	return c.setIfCurrent(ctx, userID, gen, TodosKey(userID), b)
}

func (c *Cache) setIfCurrent(ctx context.Context, userID, gen int64, key string, b []byte) bool {
	if c == nil {
		return false
	}
	stored, err := setIfGeneration.Run(ctx, c.client,
		[]string{GenerationKey(userID), key},
		gen, b, c.ttl.Milliseconds()).Int()
	if err != nil {
		logger.Debug(ctx, "Redis conditional set failed", "error", err, "key", key)
		return false
	}
	if stored == 0 {
		logger.Debug(ctx, "Cache fill skipped, written since load", "key", key)
	}
	return stored == 1
}

// GetSummary returns the cached summary. Returns false on miss or error.
func (c *Cache) GetSummary(ctx context.Context, userID int64) (models.TodoSummary, bool) {
	var s models.TodoSummary
	if c == nil {
		return s, false
	}
	b, err := c.client.Get(ctx, SummaryKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return s, false
	}
	if err != nil {
		logger.Debug(ctx, "Redis get summary failed", "error", err)
		return s, false
	}
	if err := json.Unmarshal(b, &s); err != nil {
		logger.Debug(ctx, "Redis unmarshal summary failed", "error", err)
		return s, false
	}
	return s, true
}

// SetSummary stores the user's summary unless a write happened after gen was read.
func (c *Cache) SetSummary(ctx context.Context, userID, gen int64, sum models.TodoSummary) bool {
	if c == nil {
		return false
	}
	b, err := json.Marshal(sum)
	if err != nil {
		logger.Debug(ctx, "Marshal summary for cache failed", "error", err)
		return false
	}
	return c.setIfCurrent(ctx, userID, gen, SummaryKey(userID), b)
}

// Invalidate bumps the user's generation and drops the list and summary, so
// the next read goes to the DB and loads already in flight are not stored.
func (c *Cache) Invalidate(ctx context.Context, userID int64) {
	if c == nil {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, GenerationKey(userID))
		pipe.Del(ctx, TodosKey(userID), SummaryKey(userID))
		return nil
	})
	if err != nil {
		logger.Warn(ctx, "Redis invalidate todos failed", "error", err, "user_id", userID)
	}
}
