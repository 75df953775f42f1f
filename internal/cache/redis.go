package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProjectionCache fronts the derived read views (net exposure, matching
// view). The orchestrator deletes the affected keys after every accepted
// operation; readers treat any cache failure as a miss.
type ProjectionCache struct {
	Client *redis.Client
	TTL    time.Duration
}

const (
	KeyExposurePrefix = "proj:exposure:"
	KeyMatching       = "proj:matching"
)

func New(client *redis.Client, ttl time.Duration) *ProjectionCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &ProjectionCache{Client: client, TTL: ttl}
}

func (c *ProjectionCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.Client == nil {
		return nil, false
	}
	b, err := c.Client.Get(ctx, key).Bytes()
	if err == redis.Nil || err != nil {
		return nil, false
	}
	return b, true
}

func (c *ProjectionCache) Set(ctx context.Context, key string, value []byte) {
	if c == nil || c.Client == nil {
		return
	}
	_ = c.Client.Set(ctx, key, value, c.TTL).Err()
}

// InvalidateHedgeViews drops every projection key derived from hedge
// records. Keys are few and fixed, so explicit deletes beat SCAN.
func (c *ProjectionCache) InvalidateHedgeViews(ctx context.Context, metals ...string) {
	if c == nil || c.Client == nil {
		return
	}
	keys := []string{KeyMatching, KeyExposurePrefix + "all"}
	for _, m := range metals {
		if m != "" {
			keys = append(keys, KeyExposurePrefix+m)
		}
	}
	_ = c.Client.Del(ctx, keys...).Err()
}
