package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tinylink-io/tinylink/pkg/core/domain"
	"github.com/tinylink-io/tinylink/pkg/ports"
)

const redisKeyPrefix = "tinylink:link:"

// RedisCache is a shared redirect cache for replicated deployments.
// Entries carry a TTL so evictions missed by a crashed replica age out.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(addr string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, code string) (*domain.Link, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+code).Bytes()
	if err != nil {
		return nil, false
	}
	var link domain.Link
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, false
	}
	return &link, true
}

func (c *RedisCache) Add(ctx context.Context, code string, link *domain.Link) {
	data, err := json.Marshal(link)
	if err != nil {
		return
	}
	c.client.Set(ctx, redisKeyPrefix+code, data, c.ttl)
}

func (c *RedisCache) Remove(ctx context.Context, code string) {
	c.client.Del(ctx, redisKeyPrefix+code)
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ensure interface compliance
var _ ports.RedirectCache = (*RedisCache)(nil)
