package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/duongdev/nv-internal-sub007/pkg/config"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// TaskEventChannel is the Redis channel task lifecycle events are published
// to, for downstream consumers (dashboards, cache invalidation).
const TaskEventChannel = "tasks:events"

// TaskEvent describes a state change on a work order.
type TaskEvent struct {
	Action    string                 `json:"action"`
	TaskID    uint                   `json:"task_id"`
	UserID    uuid.UUID              `json:"user_id"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// RedisClient wraps the Redis client used for event publishing.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient connects and verifies the connection with a short timeout.
func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// PublishTaskEvent publishes a task event to the shared channel.
func (c *RedisClient) PublishTaskEvent(ctx context.Context, event *TaskEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal task event: %w", err)
	}
	return c.client.Publish(ctx, TaskEventChannel, payload).Err()
}

// Ping verifies the connection is still alive.
func (c *RedisClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (c *RedisClient) Close() error {
	return c.client.Close()
}
