// Package views counts job page views.
package views

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Counter interface {
	Incr(ctx context.Context, id uuid.UUID) (int64, error)
	Get(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type RedisCounter struct {
	client *redis.Client
	prefix string
}

func NewRedisCounter(client *redis.Client, prefix string) *RedisCounter {
	return &RedisCounter{client: client, prefix: prefix}
}

func (c *RedisCounter) key(id uuid.UUID) string {
	return c.prefix + id.String()
}

func (c *RedisCounter) Incr(ctx context.Context, id uuid.UUID) (int64, error) {
	return c.client.Incr(ctx, c.key(id)).Result()
}

func (c *RedisCounter) Get(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int64, error) {
	result := make(map[uuid.UUID]int64, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(id)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		result[ids[i]] = n
	}
	return result, nil
}

func (c *RedisCounter) Delete(ctx context.Context, id uuid.UUID) error {
	return c.client.Del(ctx, c.key(id)).Err()
}

// MemoryCounter is a single-process Counter.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[uuid.UUID]int64
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[uuid.UUID]int64)}
}

func (c *MemoryCounter) Incr(_ context.Context, id uuid.UUID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[id]++
	return c.counts[id], nil
}

func (c *MemoryCounter) Get(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make(map[uuid.UUID]int64, len(ids))
	for _, id := range ids {
		if n, ok := c.counts[id]; ok {
			result[id] = n
		}
	}
	return result, nil
}

func (c *MemoryCounter) Delete(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counts, id)
	return nil
}
