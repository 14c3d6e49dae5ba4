package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sifan077/shortlink/internal/app/model"
)

// ErrCacheMiss is returned by Get when the slug is not cached.
var ErrCacheMiss = errors.New("cache miss")

const keyPrefix = "link:"

// LinkCache stores slug lookups for the redirect path. Cached click counts may lag.
type LinkCache interface {
	Get(ctx context.Context, slug string) (*model.Link, error)
	Set(ctx context.Context, link *model.Link) error
	Delete(ctx context.Context, slug string) error
}

type cachedLink struct {
	ID          uint      `json:"id"`
	Slug        string    `json:"slug"`
	OriginalURL string    `json:"original_url"`
	ClickCount  int64     `json:"click_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type redisLinkCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLinkCache returns a LinkCache backed by client. A zero ttl means one hour.
func NewRedisLinkCache(client *redis.Client, ttl time.Duration) LinkCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &redisLinkCache{client: client, ttl: ttl}
}

func (c *redisLinkCache) Get(ctx context.Context, slug string) (*model.Link, error) {
	data, err := c.client.Get(ctx, keyPrefix+slug).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", slug, err)
	}

	var entry cachedLink
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("cache decode %s: %w", slug, err)
	}
	return &model.Link{
		ID:          entry.ID,
		Slug:        entry.Slug,
		OriginalURL: entry.OriginalURL,
		ClickCount:  entry.ClickCount,
		CreatedAt:   entry.CreatedAt,
	}, nil
}

func (c *redisLinkCache) Set(ctx context.Context, link *model.Link) error {
	data, err := json.Marshal(cachedLink{
		ID:          link.ID,
		Slug:        link.Slug,
		OriginalURL: link.OriginalURL,
		ClickCount:  link.ClickCount,
		CreatedAt:   link.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", link.Slug, err)
	}
	return c.client.Set(ctx, keyPrefix+link.Slug, data, c.ttl).Err()
}

func (c *redisLinkCache) Delete(ctx context.Context, slug string) error {
	return c.client.Del(ctx, keyPrefix+slug).Err()
}
