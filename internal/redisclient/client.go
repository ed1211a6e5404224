package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// AcquireCheckoutLock takes the per-cart checkout lock. Returns false when
// another checkout for the same cart currently holds it.
func (c *Client) AcquireCheckoutLock(ctx context.Context, cartID int64, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:checkout:%d", cartID), "1", ttl).Result()
}

// ReleaseCheckoutLock releases the per-cart checkout lock
func (c *Client) ReleaseCheckoutLock(ctx context.Context, cartID int64) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:checkout:%d", cartID)).Err()
}

// MarkEventSeen records a gateway event id after it was durably processed,
// as a dedupe fast path in front of the processed_events table.
func (c *Client) MarkEventSeen(ctx context.Context, eventID string, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("event:%s", eventID), "1", ttl).Err()
}

// WasEventSeen reports whether an event id is in the dedupe fast path. The
// processed_events table stays authoritative; a miss here only means the
// durable check still runs.
func (c *Client) WasEventSeen(ctx context.Context, eventID string) (bool, error) {
	n, err := c.rdb.Exists(ctx, fmt.Sprintf("event:%s", eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
