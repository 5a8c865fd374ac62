// Package redis wraps go-redis client construction for the optional Redis
// name index backend.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the go-redis client with health checking.
type Client struct {
	*redis.Client
}

// New creates a Redis client from url and verifies connectivity. Returns
// (nil, nil) when url is empty, meaning Redis is not configured.
func New(url string) (*Client, error) {
	if url == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{Client: client}, nil
}

// Healthy reports whether the backend answers a ping.
func (c *Client) Healthy(ctx context.Context) bool {
	if c == nil {
		return false
	}
	return c.Ping(ctx).Err() == nil
}
