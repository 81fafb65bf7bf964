package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/daszybak/fastbet/internal/polymarket/gamma"
)

// Cache holds the last ranked event list for a short time.
type Cache interface {
	// Get reports false when nothing fresh is cached.
	Get(ctx context.Context) ([]*gamma.Event, bool, error)
	Set(ctx context.Context, events []*gamma.Event, ttl time.Duration) error
}

type MemoryCache struct {
	mu      sync.Mutex
	events  []*gamma.Event
	expires time.Time
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{now: time.Now}
}

func (c *MemoryCache) Get(context.Context) ([]*gamma.Event, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.events == nil || !c.now().Before(c.expires) {
		return nil, false, nil
	}
	return c.events, true, nil
}

func (c *MemoryCache) Set(_ context.Context, events []*gamma.Event, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if events == nil {
		events = []*gamma.Event{}
	}
	c.events = events
	c.expires = c.now().Add(ttl)
	return nil
}

// DefaultRedisKey is where RedisCache keeps the event list.
const DefaultRedisKey = "fastbet:polymarket:events"

// RedisCache shares the event list between instances through Redis.
type RedisCache struct {
	client redis.UniversalClient
	key    string
}

func NewRedisCache(client redis.UniversalClient, key string) *RedisCache {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisCache{client: client, key: key}
}

func (c *RedisCache) Get(ctx context.Context) ([]*gamma.Event, bool, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("couldn't get %s: %w", c.key, err)
	}

	var events []*gamma.Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, false, fmt.Errorf("couldn't decode cached events: %w", err)
	}
	return events, true, nil
}

func (c *RedisCache) Set(ctx context.Context, events []*gamma.Event, ttl time.Duration) error {
	if events == nil {
		events = []*gamma.Event{}
	}
	raw, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("couldn't encode events: %w", err)
	}
	if err := c.client.Set(ctx, c.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("couldn't set %s: %w", c.key, err)
	}
	return nil
}
