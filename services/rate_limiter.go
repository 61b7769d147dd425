package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/massage-panel/massage-panel-api/logging"
	"github.com/redis/go-redis/v9"
)

// RateLimiter decides whether another request for key may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryRateLimiter is a per-key token bucket for single-instance deployments.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   int
	now     func() time.Time
}

type bucket struct {
	tokens   float64
	lastTime time.Time
}

// NewMemoryRateLimiter allows perMinute requests per key with an equal burst.
func NewMemoryRateLimiter(perMinute int) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		buckets: make(map[string]*bucket),
		rate:    float64(perMinute) / 60,
		burst:   perMinute,
		now:     time.Now,
	}
}

func (rl *MemoryRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		if len(rl.buckets) > 10000 {
			rl.evict(now)
		}
		b = &bucket{tokens: float64(rl.burst), lastTime: now}
		rl.buckets[key] = b
	}

	b.tokens += now.Sub(b.lastTime).Seconds() * rl.rate
	if b.tokens > float64(rl.burst) {
		b.tokens = float64(rl.burst)
	}
	b.lastTime = now

	if b.tokens < 1 {
		return false, nil
	}
	b.tokens--
	return true, nil
}

func (rl *MemoryRateLimiter) evict(now time.Time) {
	cutoff := now.Add(-10 * time.Minute)
	for key, b := range rl.buckets {
		if b.lastTime.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
}

// RedisRateLimiter is a fixed one-minute window shared by every instance.
type RedisRateLimiter struct {
	client    *redis.Client
	perMinute int
	prefix    string
	now       func() time.Time
}

func NewRedisRateLimiter(client *redis.Client, perMinute int) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, perMinute: perMinute, prefix: "ratelimit", now: time.Now}
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	window := rl.now().Unix() / 60
	redisKey := fmt.Sprintf("%s:%s:%d", rl.prefix, key, window)

	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, 2*time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limiter: %w", err)
	}
	return incr.Val() <= int64(rl.perMinute), nil
}

// NewRedisClient connects to REDIS_URL. It returns nil when the URL is empty
// or the server does not answer, so callers fall back to in-memory limits.
func NewRedisClient(ctx context.Context, redisURL string, log *logging.Logger) *redis.Client {
	if strings.TrimSpace(redisURL) == "" {
		return nil
	}
	if log == nil {
		log = logging.Default()
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn("invalid REDIS_URL", "error", err)
		return nil
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// NewRateLimiter picks the Redis limiter when a client is available.
func NewRateLimiter(client *redis.Client, perMinute int) RateLimiter {
	if client != nil {
		return NewRedisRateLimiter(client, perMinute)
	}
	return NewMemoryRateLimiter(perMinute)
}
