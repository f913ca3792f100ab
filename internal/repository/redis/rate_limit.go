// Package redis holds the Redis-backed infrastructure used by the gate:
// a fixed-window rate limiter keyed by scanning device.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ScanLimiter throttles gate scan attempts per device within a fixed window.
// Redis being unreachable never blocks the gate: errors fail open.
type ScanLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewScanLimiter(client *redis.Client, limit int, window time.Duration) *ScanLimiter {
	return &ScanLimiter{client: client, limit: limit, window: window}
}

func Connect(ctx context.Context, url, password string, db int) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	if db != 0 {
		opts.DB = db
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// Allow reports whether the given device may perform another scan.
// The device identifier is hashed so raw hardware IDs never appear in keys.
func (l *ScanLimiter) Allow(ctx context.Context, deviceID string) (bool, error) {
	if l == nil || l.client == nil {
		return true, nil
	}

	sum := sha256.Sum256([]byte(deviceID))
	key := "gate:scan:" + hex.EncodeToString(sum[:8])

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return true, err
		}
	}
	return count <= int64(l.limit), nil
}
