package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptLimiter tracks failed attempts per key with a rolling TTL window.
// Keys live in Redis so limits hold across instances and restarts.
type AttemptLimiter struct {
	client *redis.Client
	prefix string
	max    int
	window time.Duration
}

// NewAttemptLimiter constructs an AttemptLimiter.
func NewAttemptLimiter(client *redis.Client, prefix string, max int, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{client: client, prefix: prefix, max: max, window: window}
}

// Allowed reports whether the key still has attempt budget left.
func (l *AttemptLimiter) Allowed(ctx context.Context, key string) (bool, error) {
	if l == nil || l.client == nil {
		return true, nil
	}
	count, err := l.client.Get(ctx, l.redisKey(key)).Int()
	if err != nil {
		if err == redis.Nil {
			return true, nil
		}
		return false, err
	}
	return count < l.max, nil
}

// Record registers a failed attempt and refreshes the window.
func (l *AttemptLimiter) Record(ctx context.Context, key string) error {
	if l == nil || l.client == nil {
		return nil
	}
	rk := l.redisKey(key)
	count, err := l.client.Incr(ctx, rk).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		return l.client.Expire(ctx, rk, l.window).Err()
	}
	return nil
}

// Reset clears the counter, typically after a successful attempt.
func (l *AttemptLimiter) Reset(ctx context.Context, key string) error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.Del(ctx, l.redisKey(key)).Err()
}

func (l *AttemptLimiter) redisKey(key string) string {
	return fmt.Sprintf("%s:attempts:%s", l.prefix, key)
}
