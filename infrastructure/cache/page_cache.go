package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// PageMeta is the cached slice of page metadata the Facebook adapter fetches
// per publish. Cached to keep the Graph metadata call off the hot path.
type PageMeta struct {
	PageID   string `json:"page_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type IPageCache interface {
	Get(ctx context.Context, platform, pageID string) (*PageMeta, error)
	Set(ctx context.Context, platform string, meta *PageMeta, ttl time.Duration) error
}

// PageCache stores page metadata in Redis. All methods tolerate a nil client.
type PageCache struct {
	client *redis.Client
}

func NewPageCache(client *redis.Client) *PageCache {
	return &PageCache{client: client}
}

func pageKey(platform, pageID string) string {
	return "page:" + platform + ":" + pageID
}

func (c *PageCache) Get(ctx context.Context, platform, pageID string) (*PageMeta, error) {
	if c.client == nil {
		return nil, nil
	}
	raw, err := c.client.Get(ctx, pageKey(platform, pageID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var meta PageMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (c *PageCache) Set(ctx context.Context, platform string, meta *PageMeta, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, pageKey(platform, meta.PageID), raw, ttl).Err()
}
