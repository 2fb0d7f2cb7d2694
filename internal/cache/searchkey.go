// Package cache remembers which guide answers a search key, in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "foodguide:searchkey:"

// SearchKeys maps search keys to guide ids. It fails open: a Redis error is
// logged and reported as a miss so lookups fall through to the database.
type SearchKeys struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewSearchKeys(client *redis.Client, ttl time.Duration, log *zap.Logger) *SearchKeys {
	if log == nil {
		log = zap.NewNop()
	}
	return &SearchKeys{client: client, ttl: ttl, log: log}
}

// Connect parses a redis:// URL and checks the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// redisKey hashes the canonical key; raw keys can be long and carry user text.
func redisKey(searchKey string) string {
	sum := sha256.Sum256([]byte(searchKey))
	return keyPrefix + hex.EncodeToString(sum[:])
}

func (c *SearchKeys) Lookup(ctx context.Context, searchKey string) (string, bool) {
	id, err := c.client.Get(ctx, redisKey(searchKey)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		c.log.Warn("search key cache lookup failed", zap.Error(err))
		return "", false
	}
	return id, true
}

func (c *SearchKeys) Remember(ctx context.Context, searchKey, guideID string) {
	if err := c.client.Set(ctx, redisKey(searchKey), guideID, c.ttl).Err(); err != nil {
		c.log.Warn("search key cache write failed", zap.String("guide_id", guideID), zap.Error(err))
	}
}

func (c *SearchKeys) Forget(ctx context.Context, searchKey string) {
	if err := c.client.Del(ctx, redisKey(searchKey)).Err(); err != nil {
		c.log.Warn("search key cache delete failed", zap.Error(err))
	}
}
