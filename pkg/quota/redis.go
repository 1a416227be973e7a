package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCounterTTL keeps spent buckets around long enough to survive the
// day rollover in every timezone before Redis reclaims them.
const redisCounterTTL = 48 * time.Hour

// RedisCounter implements Counter on Redis. INCR is atomic server-side,
// which makes this the right backend when several service processes share
// one quota.
type RedisCounter struct {
	client redis.UniversalClient
}

// NewRedisCounter creates a RedisCounter over an existing client.
func NewRedisCounter(client redis.UniversalClient) *RedisCounter {
	return &RedisCounter{client: client}
}

func redisCounterKey(apiKey, day string) string {
	return fmt.Sprintf("quota:%s:%s", apiKey, day)
}

// Incr bumps the bucket and returns the new count. The expiry is set only
// by the caller that created the bucket, so it is written exactly once.
func (c *RedisCounter) Incr(ctx context.Context, apiKey, day string) (int64, error) {
	key := redisCounterKey(apiKey, day)

	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("quota: redis increment: %w", err)
	}
	if count == 1 {
		if err := c.client.Expire(ctx, key, redisCounterTTL).Err(); err != nil {
			return 0, fmt.Errorf("quota: redis expire: %w", err)
		}
	}
	return count, nil
}

// Current reads the bucket's count without incrementing.
func (c *RedisCounter) Current(ctx context.Context, apiKey, day string) (int64, error) {
	count, err := c.client.Get(ctx, redisCounterKey(apiKey, day)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("quota: redis read: %w", err)
	}
	return count, nil
}

// Ensure RedisCounter implements Counter.
var _ Counter = (*RedisCounter)(nil)
