package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRateLimiter(t *testing.T) {
	now := time.Date(2030, 3, 1, 14, 0, 0, 0, time.UTC)
	rl := NewMemoryRateLimiter(3)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "request %d within burst", i)
	}
	ok, _ := rl.Allow(ctx, "1.2.3.4")
	assert.False(t, ok, "burst exhausted")

	ok, _ = rl.Allow(ctx, "5.6.7.8")
	assert.True(t, ok, "keys are independent")

	now = now.Add(20 * time.Second) // one token at 3/min
	ok, _ = rl.Allow(ctx, "1.2.3.4")
	assert.True(t, ok)
	ok, _ = rl.Allow(ctx, "1.2.3.4")
	assert.False(t, ok)
}

func TestRedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	now := time.Date(2030, 3, 1, 14, 0, 10, 0, time.UTC)
	rl := NewRedisRateLimiter(client, 2)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := rl.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := rl.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Len(t, mr.Keys(), 1)
	ttl := mr.TTL(mr.Keys()[0])
	assert.Equal(t, 2*time.Minute, ttl)

	now = now.Add(time.Minute) // next window
	ok, err = rl.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisRateLimiter_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	_, err := NewRedisRateLimiter(client, 2).Allow(context.Background(), "k")
	assert.Error(t, err)
}

func TestNewRedisClient(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, NewRedisClient(ctx, "", nil))
	assert.Nil(t, NewRedisClient(ctx, "not a url", nil))

	mr := miniredis.RunT(t)
	client := NewRedisClient(ctx, "redis://"+mr.Addr(), nil)
	require.NotNil(t, client)
	defer client.Close()

	_, isRedis := NewRateLimiter(client, 5).(*RedisRateLimiter)
	assert.True(t, isRedis)
	_, isMemory := NewRateLimiter(nil, 5).(*MemoryRateLimiter)
	assert.True(t, isMemory)
}
