package cache

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisKey(t *testing.T) {
	k := redisKey(`{"city":"Austin"}`)
	assert.True(t, strings.HasPrefix(k, keyPrefix))
	assert.Len(t, k, len(keyPrefix)+64)
	assert.Equal(t, k, redisKey(`{"city":"Austin"}`))
	assert.NotEqual(t, k, redisKey(`{"city":"Dallas"}`))
}

func TestSearchKeys_FailOpen(t *testing.T) {
	// nothing listens on this port
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	c := NewSearchKeys(client, time.Minute, nil)
	ctx := context.Background()

	c.Remember(ctx, "k", "g1")
	_, ok := c.Lookup(ctx, "k")
	assert.False(t, ok)
}

// Requires a Redis server on localhost:6379; skipped otherwise.
func TestSearchKeys_Redis(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available, skipping integration test")
	}
	defer client.Close()

	c := NewSearchKeys(client, time.Minute, nil)
	key := "test-" + strconv.FormatInt(time.Now().UnixNano(), 10)

	_, ok := c.Lookup(ctx, key)
	assert.False(t, ok)

	c.Remember(ctx, key, "g1")
	id, ok := c.Lookup(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "g1", id)

	c.Forget(ctx, key)
	_, ok = c.Lookup(ctx, key)
	assert.False(t, ok)
}
