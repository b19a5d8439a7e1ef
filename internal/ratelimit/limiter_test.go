package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/repairdesk/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLimiter(t *testing.T, rate float64, burst int) (*WriteLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.Config{RateLimit: config.RateLimitConfig{Enabled: true, WriteRate: rate, WriteBurst: burst}}
	limiter := NewWriteLimiter(cfg, client, zap.NewNop())
	require.NotNil(t, limiter)
	return limiter, mr
}

func TestAllowActorExhaustsBurst(t *testing.T) {
	limiter, mr := newLimiter(t, 0.01, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := limiter.AllowActor(ctx, "1001")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "write %d", i)
		assert.Equal(t, 3, d.Limit)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := limiter.AllowActor(ctx, "1001")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, time.Minute)

	other, err := limiter.AllowActor(ctx, "1002")
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	assert.True(t, mr.Exists(writeKeyPrefix+"1001"))
	assert.Positive(t, mr.TTL(writeKeyPrefix+"1001"))
}

func TestAllowActorRejectsEmptyActor(t *testing.T) {
	limiter, _ := newLimiter(t, 1, 1)
	_, err := limiter.AllowActor(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyActor)
}

func TestNewWriteLimiter(t *testing.T) {
	log := zap.NewNop()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.Config{RateLimit: config.RateLimitConfig{Enabled: false, WriteRate: 1, WriteBurst: 1}}
	assert.Nil(t, NewWriteLimiter(cfg, client, log))

	cfg.RateLimit.Enabled = true
	assert.Nil(t, NewWriteLimiter(cfg, nil, log))

	cfg.RateLimit.WriteBurst = 0
	assert.Nil(t, NewWriteLimiter(cfg, client, log))

	cfg.RateLimit.WriteBurst = 1
	limiter := NewWriteLimiter(cfg, client, log)
	require.NotNil(t, limiter)
	assert.True(t, limiter.Enabled())
}

func TestNilWriteLimiterAllows(t *testing.T) {
	var limiter *WriteLimiter
	assert.False(t, limiter.Enabled())
	d, err := limiter.AllowActor(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}
