package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/repository"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultTagCacheTTL = time.Minute

var _ repository.TagCatalog = (*CachedTagCatalog)(nil)

// CachedTagCatalog is a cache-aside decorator over a TagCatalog. Redis failures
// fall through to the wrapped catalog.
type CachedTagCatalog struct {
	client *goredis.Client
	next   repository.TagCatalog
	ttl    time.Duration
	logger *zap.Logger
	record func(result string)
}

func NewCachedTagCatalog(client *goredis.Client, next repository.TagCatalog, ttl time.Duration, logger *zap.Logger) (*CachedTagCatalog, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if next == nil {
		return nil, fmt.Errorf("tag catalog is required")
	}
	if ttl <= 0 {
		ttl = defaultTagCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CachedTagCatalog{
		client: client,
		next:   next,
		ttl:    ttl,
		logger: logger,
		record: func(string) {},
	}, nil
}

// OnLookup registers a hook receiving hit, miss or error for every cache read.
func (c *CachedTagCatalog) OnLookup(fn func(result string)) *CachedTagCatalog {
	if fn != nil {
		c.record = fn
	}
	return c
}

func (c *CachedTagCatalog) InvalidSystemTagIDs(ctx context.Context, companyID string) ([]string, error) {
	var ids []string
	err := c.cached(ctx, invalidTagsKey(companyID), &ids, func() (any, error) {
		return c.next.InvalidSystemTagIDs(ctx, companyID)
	})
	return ids, err
}

func (c *CachedTagCatalog) TagNames(ctx context.Context, companyID string) (map[string]string, error) {
	var names map[string]string
	err := c.cached(ctx, tagNamesKey(companyID), &names, func() (any, error) {
		return c.next.TagNames(ctx, companyID)
	})
	return names, err
}

// Invalidate drops both cached views of the company.
func (c *CachedTagCatalog) Invalidate(ctx context.Context, companyID string) error {
	return c.client.Del(ctx, invalidTagsKey(companyID), tagNamesKey(companyID)).Err()
}

func (c *CachedTagCatalog) cached(ctx context.Context, key string, dst any, load func() (any, error)) error {
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(raw, dst); jsonErr == nil {
			c.record("hit")
			return nil
		}
		c.record("error")
	case errors.Is(err, goredis.Nil):
		c.record("miss")
	default:
		c.record("error")
		c.logger.Warn("tag cache read failed", zap.String("key", key), zap.Error(err))
	}

	value, err := load()
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode tag cache value: %w", err)
	}
	if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
		c.logger.Warn("tag cache write failed", zap.String("key", key), zap.Error(err))
	}

	return json.Unmarshal(encoded, dst)
}

func invalidTagsKey(companyID string) string {
	return fmt.Sprintf("tagcatalog:%s:invalid", companyID)
}

func tagNamesKey(companyID string) string {
	return fmt.Sprintf("tagcatalog:%s:names", companyID)
}
