package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"hostel-admissions/internal/identity"
	"hostel-admissions/internal/lifecycle"
)

const cacheKeyPrefix = "guardian:"

func cacheKey(contactKey string) string {
	return cacheKeyPrefix + contactKey
}

// RedisCache is a read-through cache of complete guardian views.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*GuardianView, bool, error) {
	raw, err := c.client.Get(ctx, cacheKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var view GuardianView
	if err := json.Unmarshal([]byte(raw), &view); err != nil {
		return nil, false, fmt.Errorf("decode cached view: %w", err)
	}
	return &view, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, view *GuardianView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("encode view: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate drops the cached views for the given raw contacts.
func (c *RedisCache) Invalidate(ctx context.Context, contacts ...string) error {
	var keys []string
	dup := make(map[string]bool)
	for _, contact := range contacts {
		key := identity.Normalize(contact)
		if key == "" || dup[key] {
			continue
		}
		dup[key] = true
		keys = append(keys, cacheKey(key))
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// CacheInvalidator evicts guardian views touched by a committed transition.
type CacheInvalidator struct {
	cache *RedisCache
}

func NewCacheInvalidator(cache *RedisCache) *CacheInvalidator {
	return &CacheInvalidator{cache: cache}
}

var _ lifecycle.Hook = (*CacheInvalidator)(nil)

func (h *CacheInvalidator) Name() string { return "cache" }

func (h *CacheInvalidator) AfterCommit(ctx context.Context, evt lifecycle.Event) error {
	if evt.Application == nil {
		return nil
	}
	return h.cache.Invalidate(ctx, evt.Application.GuardianMobiles()...)
}
