// Package cache provides an optional Redis-backed cache for the full board
// listing. Writers invalidate it inside the update path; the rank logic never
// reads from it.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"taskboard/api/internal/store"

	"github.com/redis/go-redis/v9"
)

const boardKey = "board:listing"

// BoardCache holds the serialized board listing with a short TTL.
type BoardCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBoardCache connects to Redis and verifies the connection.
func NewBoardCache(redisURL string, ttl time.Duration) (*BoardCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &BoardCache{client: client, ttl: ttl}, nil
}

// NewBoardCacheWithClient creates a cache from an existing Redis client.
func NewBoardCacheWithClient(client *redis.Client, ttl time.Duration) *BoardCache {
	return &BoardCache{client: client, ttl: ttl}
}

// GetBoard returns the cached listing, or nil on a miss.
func (c *BoardCache) GetBoard(ctx context.Context) ([]store.Record, error) {
	payload, err := c.client.Get(ctx, boardKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read board cache: %w", err)
	}

	var items []store.Record
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, fmt.Errorf("unmarshal board cache: %w", err)
	}
	return items, nil
}

// SetBoard stores the listing with the configured TTL.
func (c *BoardCache) SetBoard(ctx context.Context, items []store.Record) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal board cache: %w", err)
	}
	if err := c.client.Set(ctx, boardKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("write board cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached listing.
func (c *BoardCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, boardKey).Err(); err != nil {
		return fmt.Errorf("invalidate board cache: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *BoardCache) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable
func (c *BoardCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
