package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheVersionKey = "reports:version"

// Cache wraps Redis based report caching with a global version so a
// billing write can invalidate every cached summary at once. A nil
// client degrades to pass-through.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Key composes a versioned cache key.
func (c *Cache) Key(ctx context.Context, userID int64, from, to time.Time) (string, error) {
	base := fmt.Sprintf("reports:revenue:%d:%s:%s", userID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if c == nil || c.client == nil {
		return base, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		ver = 1
		if err := c.client.Set(ctx, cacheVersionKey, ver, 0).Err(); err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", base, ver), nil
}

// Fetch loads a cached summary or populates it using the loader.
func (c *Cache) Fetch(ctx context.Context, key string, loader func(context.Context) (*RevenueSummary, error)) (*RevenueSummary, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var summary RevenueSummary
		if err := json.Unmarshal(payload, &summary); err == nil {
			return &summary, nil
		}
		// Unreadable payload: fall through and regenerate.
	} else if err != redis.Nil {
		return nil, fmt.Errorf("reports: cache get: %w", err)
	}

	summary, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("reports: cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return nil, fmt.Errorf("reports: cache set: %w", err)
	}
	return summary, nil
}

// Bump invalidates every cached summary by incrementing the version.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}
