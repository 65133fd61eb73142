package resilience

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"fitcheck-ingest/internal/logging"
)

// RedisLimiter is a fixed-window counter shared by every replica using the same Redis
type RedisLimiter struct {
	client    *redis.Client
	prefix    string
	perWindow int
	window    time.Duration
	now       func() time.Time
	logger    logging.Logger
}

// NewRedisLimiter allows perMinute calls per key per one-minute window
func NewRedisLimiter(client *redis.Client, prefix string, perMinute int) *RedisLimiter {
	return &RedisLimiter{
		client:    client,
		prefix:    prefix,
		perWindow: perMinute,
		window:    time.Minute,
		now:       time.Now,
		logger:    logging.GetGlobalLogger().WithField("component", "redis_rate_limiter"),
	}
}

// Wait blocks until the current window for key has capacity
func (rl *RedisLimiter) Wait(ctx context.Context, key string) error {
	if rl.perWindow <= 0 {
		return ctx.Err()
	}

	for {
		allowed, retryIn, err := rl.take(ctx, key)
		if err != nil {
			// fail open
			rl.logger.Warn("Rate limit check failed, allowing request", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
			return ctx.Err()
		}
		if allowed {
			return nil
		}

		rl.logger.Debug("Rate limit window exhausted, waiting", map[string]interface{}{
			"key":   key,
			"delay": retryIn.String(),
		})
		if err := sleep(ctx, retryIn); err != nil {
			return err
		}
	}
}

func (rl *RedisLimiter) take(ctx context.Context, key string) (bool, time.Duration, error) {
	now := rl.now()
	windowStart := now.Truncate(rl.window)
	redisKey := fmt.Sprintf("%s:%s:%d", rl.prefix, strings.ToLower(key), windowStart.Unix())

	var incr *redis.IntCmd
	_, err := rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, 2*rl.window)
		return nil
	})
	if err != nil {
		return false, 0, err
	}

	if incr.Val() <= int64(rl.perWindow) {
		return true, 0, nil
	}
	return false, windowStart.Add(rl.window).Sub(now), nil
}

// Close closes the Redis client
func (rl *RedisLimiter) Close() error {
	return rl.client.Close()
}
