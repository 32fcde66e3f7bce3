package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stex/backend/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{Enabled: false, Prefix: "stex"},
	}

	client, err := New(cfg)
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.Equal(t, "stex", client.Prefix())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(Disabled())

	allowed, remaining, err := limiter.Allow(context.Background(), BacktestRateLimit)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, BacktestRateLimit.Limit, remaining)
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(Disabled(), "backtest")
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", map[string]int{"a": 1}, TTLBacktest))

	var out map[string]int
	found, err := cache.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Delete(ctx, "k"))
}

func TestCache_KeyNamespace(t *testing.T) {
	client := &Client{prefix: "stex"}
	cache := NewCache(client, "backtest")

	assert.Equal(t, "stex:backtest:cache:x", cache.key("x"))
}

func TestBacktestKey(t *testing.T) {
	assert.Equal(t, "backtest:20:abc:d1:2026-01-05", BacktestKey(20, "abc", "d1", "2026-01-05"))
}
