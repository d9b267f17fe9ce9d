package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Checkpoints persist the id of the last fully reconciled document so an
// interrupted run can resume after it.
type Checkpoints interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, documentID string) error
	Clear(ctx context.Context) error
}

// NoopCheckpoints remembers nothing.
type NoopCheckpoints struct{}

func (NoopCheckpoints) Load(context.Context) (string, error) { return "", nil }
func (NoopCheckpoints) Save(context.Context, string) error   { return nil }
func (NoopCheckpoints) Clear(context.Context) error          { return nil }

const checkpointTTL = 7 * 24 * time.Hour

// RedisCheckpoints keeps the cursor in a single Redis key.
type RedisCheckpoints struct {
	client *redis.Client
	key    string
}

// NewRedisCheckpoints connects to redisURL and verifies the connection.
func NewRedisCheckpoints(ctx context.Context, redisURL string) (*RedisCheckpoints, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisCheckpointsWithClient(client), nil
}

// NewRedisCheckpointsWithClient wraps an existing client.
func NewRedisCheckpointsWithClient(client *redis.Client) *RedisCheckpoints {
	return &RedisCheckpoints{client: client, key: "docforest:reconcile-content-types:cursor"}
}

func (c *RedisCheckpoints) Load(ctx context.Context) (string, error) {
	v, err := c.client.Get(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load checkpoint: %w", err)
	}
	return v, nil
}

func (c *RedisCheckpoints) Save(ctx context.Context, documentID string) error {
	if err := c.client.Set(ctx, c.key, documentID, checkpointTTL).Err(); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

func (c *RedisCheckpoints) Clear(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (c *RedisCheckpoints) Close() error {
	return c.client.Close()
}
