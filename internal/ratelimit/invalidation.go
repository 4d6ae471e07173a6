package ratelimit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// InvalidateIP removes all rate limit state for a specific IP address.
// Used for manual limit resets.
func (rl *RateLimiter) InvalidateIP(ctx context.Context, ip string) error {
	if !rl.redisClient.IsEnabled() {
		rl.fallbackMutex.Lock()
		defer rl.fallbackMutex.Unlock()

		delete(rl.fallbackLimiters, fmt.Sprintf("ratelimit:ip:%s", ip))
		delete(rl.fallbackLimiters, fmt.Sprintf("ratelimit:compute:%s", ip))

		slog.Info("Invalidated IP rate limits (in-memory)", "ip", ip)
		return nil
	}

	if err := rl.deleteByPattern(ctx, fmt.Sprintf("ratelimit:ip:%s*", ip)); err != nil {
		return err
	}
	return rl.deleteByPattern(ctx, fmt.Sprintf("ratelimit:compute:%s*", ip))
}

// InvalidateAll removes all rate limit state. Used on manual reset.
func (rl *RateLimiter) InvalidateAll(ctx context.Context) error {
	rl.fallbackMutex.Lock()
	rl.fallbackLimiters = make(map[string]*rate.Limiter)
	rl.fallbackMutex.Unlock()

	if !rl.redisClient.IsEnabled() {
		slog.Info("Invalidated all rate limits (in-memory)")
		return nil
	}

	return rl.deleteByPattern(ctx, "ratelimit:*")
}

// deleteByPattern scans for keys matching the pattern and deletes them
// in batches.
func (rl *RateLimiter) deleteByPattern(ctx context.Context, pattern string) error {
	client := rl.redisClient.GetClient()

	var cursor uint64
	deleted := 0

	for {
		keys, next, err := client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("redis scan failed for pattern %s: %w", pattern, err)
		}

		if len(keys) > 0 {
			if err := client.Del(ctx, keys...).Err(); err != nil && err != redis.Nil {
				return fmt.Errorf("redis delete failed: %w", err)
			}
			deleted += len(keys)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	slog.Info("Invalidated rate limit keys", "pattern", pattern, "deleted", deleted)
	return nil
}
