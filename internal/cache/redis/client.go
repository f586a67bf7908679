package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/impulse-dash/backend/pkg/logger"
)

const datasetPrefix = "dataset:"

type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

// Wrap adopts an existing go-redis client.
func Wrap(client *redis.Client) *Client {
	return &Client{client: client}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Client) SetDataset(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, datasetPrefix+key, body, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set dataset cache: %w", err)
	}

	logger.Debug("Dataset cached", zap.String("key", key), zap.Int("bytes", len(body)), zap.Duration("ttl", ttl))
	return nil
}

func (c *Client) GetDataset(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, datasetPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get dataset cache: %w", err)
	}

	logger.Debug("Dataset cache hit", zap.String("key", key))
	return data, true, nil
}

// InvalidateDatasets drops every cached dataset body and returns how many were removed.
func (c *Client) InvalidateDatasets(ctx context.Context) (int, error) {
	var keys []string
	iter := c.client.Scan(ctx, 0, datasetPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to iterate cache keys: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	n, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to delete cache keys: %w", err)
	}

	logger.Info("Dataset cache invalidated", zap.Int64("removed", n))
	return int(n), nil
}
