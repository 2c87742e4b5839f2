package mw

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter 是多实例共享的固定窗口计数器：INCR 计数，窗口内第一次请求设置过期。
type RedisLimiter struct {
	client redis.Cmdable
	prefix string
	limit  int64
	window time.Duration
}

func NewRedisLimiter(client redis.Cmdable, limit int, window time.Duration) *RedisLimiter {
	if window < time.Second {
		window = time.Second
	}
	return &RedisLimiter{client: client, prefix: "videohub:ratelimit:", limit: int64(limit), window: window}
}

// NewRedisRateLimiter 按令牌桶参数换算固定窗口：窗口长度约为装满 burst 所需时间
// （至少一秒，取整到秒），窗口内上限为 rps*窗口，平均速率与本地限速一致。
func NewRedisRateLimiter(client redis.Cmdable, rps float64, burst int) *RedisLimiter {
	limit, window := fixedWindow(rps, burst)
	return NewRedisLimiter(client, limit, window)
}

func fixedWindow(rps float64, burst int) (int, time.Duration) {
	if rps <= 0 {
		return max(burst, 1), time.Second
	}
	secs := math.Max(1, math.Ceil(float64(burst)/rps))
	return int(math.Ceil(rps * secs)), time.Duration(secs) * time.Second
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	key = l.prefix + key
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("incr %s: %w", key, err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("expire %s: %w", key, err)
		}
	}
	if count <= l.limit {
		return true, 0, nil
	}
	ttl, err := l.client.TTL(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("ttl %s: %w", key, err)
	}
	if ttl < 0 {
		// 没有过期时间的 key 不会自行恢复，补设一次。
		_ = l.client.Expire(ctx, key, l.window).Err()
		return false, l.window, nil
	}
	return false, ttl, nil
}
