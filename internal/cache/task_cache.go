package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"task-manager/internal/model"
)

// TaskCache is a read-through cache for single tasks keyed by id.
type TaskCache interface {
	Get(ctx context.Context, taskID uint) (*model.Task, bool)
	Set(ctx context.Context, task *model.Task)
	Invalidate(ctx context.Context, taskID uint)
}

// Nop disables caching.
type Nop struct{}

func (Nop) Get(context.Context, uint) (*model.Task, bool) { return nil, false }
func (Nop) Set(context.Context, *model.Task)              {}
func (Nop) Invalidate(context.Context, uint)              {}

// RedisTaskCache stores tasks as JSON with a TTL. Cache failures are logged and
// treated as misses; the database stays the source of truth.
type RedisTaskCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr string, ttl time.Duration) (*RedisTaskCache, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &RedisTaskCache{rdb: rdb, ttl: ttl}, nil
}

func (c *RedisTaskCache) Close() error {
	return c.rdb.Close()
}

func taskKey(taskID uint) string {
	return fmt.Sprintf("task:%d", taskID)
}

func (c *RedisTaskCache) Get(ctx context.Context, taskID uint) (*model.Task, bool) {
	val, err := c.rdb.Get(ctx, taskKey(taskID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("[warn] cache get %s: %v", taskKey(taskID), err)
		}
		return nil, false
	}
	var task model.Task
	if err := json.Unmarshal(val, &task); err != nil {
		log.Printf("[warn] cache decode %s: %v", taskKey(taskID), err)
		return nil, false
	}
	return &task, true
}

func (c *RedisTaskCache) Set(ctx context.Context, task *model.Task) {
	data, err := json.Marshal(task)
	if err != nil {
		log.Printf("[warn] cache encode task %d: %v", task.ID, err)
		return
	}
	if err := c.rdb.Set(ctx, taskKey(task.ID), data, c.ttl).Err(); err != nil {
		log.Printf("[warn] cache set %s: %v", taskKey(task.ID), err)
	}
}

func (c *RedisTaskCache) Invalidate(ctx context.Context, taskID uint) {
	if err := c.rdb.Del(ctx, taskKey(taskID)).Err(); err != nil {
		log.Printf("[warn] cache delete %s: %v", taskKey(taskID), err)
	}
}
