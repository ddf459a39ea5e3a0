// Package cache provides the key-value cache used by the resolution and
// analytics paths. The durable store is always the source of truth; entries
// here are a performance optimization bounded by their TTL.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// ResolutionTTL bounds resolution cache entries. Targets are immutable
	// after creation, so a long TTL carries no staleness risk.
	ResolutionTTL = 24 * time.Hour

	// AnalyticsTTL bounds analytics rollup entries. Rollups over fresh
	// clicks go stale within this window unless explicitly invalidated.
	AnalyticsTTL = 10 * time.Minute
)

// ErrMiss is returned by Get when a key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Client is the narrow cache interface the domain packages depend on.
// Implementations must be safe for concurrent use.
type Client interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// ResolutionKey is the cache key holding the target URL for an alias.
func ResolutionKey(alias string) string {
	return "shorturl:" + alias
}

// AliasAnalyticsKey is the cache key for a single-alias rollup.
func AliasAnalyticsKey(alias string) string {
	return "analytics:url:" + alias
}

// TopicAnalyticsKey is the cache key for a topic-scoped rollup.
func TopicAnalyticsKey(topic string) string {
	return "analytics:topic:" + topic
}

// OwnerAnalyticsKey is the cache key for an owner-scoped rollup.
func OwnerAnalyticsKey(ownerID string) string {
	return "analytics:user:" + ownerID
}

// redisClient implements Client on top of go-redis.
type redisClient struct {
	rdb *redis.Client
}

// NewRedis wraps a go-redis client in the Client interface.
func NewRedis(rdb *redis.Client) Client {
	return &redisClient{rdb: rdb}
}

func (c *redisClient) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (c *redisClient) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *redisClient) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}
