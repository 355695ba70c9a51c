package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"taskboard-api/domain"
)

type taskBackend interface {
	InsertTask(ctx context.Context, t domain.Task) error
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	ListTasks(ctx context.Context, ownerID string) ([]domain.Task, error)
	UpdateTask(ctx context.Context, ownerID, id string, patch domain.TaskPatch, updatedAt int64) error
	DeleteTask(ctx context.Context, ownerID, id string) error
}

// Cache wraps a Storage instance with a Redis-backed read-through cache for
// per-owner task lists. Every mutation for an owner evicts that owner's entry,
// and Redis failures degrade to the backing storage without failing requests.
type Cache struct {
	*Storage
	base  taskBackend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base taskBackend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}

	c := &Cache{base: base, redis: client, ttl: ttl}
	if s, ok := base.(*Storage); ok {
		c.Storage = s
	}
	return c
}

func (c *Cache) ListTasks(ctx context.Context, ownerID string) ([]domain.Task, error) {
	if tasks, ok := c.loadTasks(ctx, ownerID); ok {
		return tasks, nil
	}

	tasks, err := c.base.ListTasks(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	c.storeTasks(ctx, ownerID, tasks)
	return tasks, nil
}

func (c *Cache) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	return c.base.GetTask(ctx, id)
}

func (c *Cache) InsertTask(ctx context.Context, t domain.Task) error {
	if err := c.base.InsertTask(ctx, t); err != nil {
		return err
	}
	c.evict(ctx, t.AssigneeID)
	return nil
}

func (c *Cache) UpdateTask(ctx context.Context, ownerID, id string, patch domain.TaskPatch, updatedAt int64) error {
	if err := c.base.UpdateTask(ctx, ownerID, id, patch, updatedAt); err != nil {
		return err
	}
	c.evict(ctx, ownerID)
	return nil
}

func (c *Cache) DeleteTask(ctx context.Context, ownerID, id string) error {
	if err := c.base.DeleteTask(ctx, ownerID, id); err != nil {
		return err
	}
	c.evict(ctx, ownerID)
	return nil
}

func (c *Cache) loadTasks(ctx context.Context, ownerID string) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, tasksCacheKey(ownerID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, tasksCacheKey(ownerID)).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, tasksCacheKey(ownerID)).Err()
		return nil, false
	}
	return tasks, true
}

func (c *Cache) storeTasks(ctx context.Context, ownerID string, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, tasksCacheKey(ownerID), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, ownerID string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, tasksCacheKey(ownerID)).Result()
}

func tasksCacheKey(ownerID string) string {
	return "tasks:" + ownerID
}
