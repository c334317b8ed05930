// Package redis provides a read-through cache in front of the catalog
// store. Postgres stays the system of record; every cached value has a TTL
// and every write path explicitly invalidates.
package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/price-intel/internal/entity"
	"github.com/user/price-intel/internal/repository"
)

const (
	activeCatalogKey = "catalog:active"
	firmKeyPrefix    = "catalog:firm:"
)

// CatalogCache decorates a CatalogRepository with redis caching. Cache
// errors degrade to the inner store with a warning; they never fail a read.
type CatalogCache struct {
	inner  repository.CatalogRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCatalogCache(inner repository.CatalogRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CatalogCache {
	return &CatalogCache{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (c *CatalogCache) GetAllActive(ctx context.Context) ([]entity.SourceCatalogEntry, error) {
	if cached, err := c.client.Get(ctx, activeCatalogKey).Bytes(); err == nil {
		var entries []entity.SourceCatalogEntry
		if err := json.Unmarshal(cached, &entries); err == nil {
			return entries, nil
		}
		c.logger.Warn("discarding undecodable catalog cache entry", zap.String("key", activeCatalogKey))
	} else if err != redis.Nil {
		c.logger.Warn("catalog cache read failed", zap.Error(err))
	}

	entries, err := c.inner.GetAllActive(ctx)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(entries); err == nil {
		if err := c.client.Set(ctx, activeCatalogKey, encoded, c.ttl).Err(); err != nil {
			c.logger.Warn("catalog cache write failed", zap.Error(err))
		}
	}
	return entries, nil
}

func (c *CatalogCache) GetByFirmID(ctx context.Context, propFirmID string) (*entity.SourceCatalogEntry, error) {
	key := firmKeyPrefix + propFirmID

	if cached, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var entry entity.SourceCatalogEntry
		if err := json.Unmarshal(cached, &entry); err == nil {
			return &entry, nil
		}
		c.logger.Warn("discarding undecodable catalog cache entry", zap.String("key", key))
	} else if err != redis.Nil {
		c.logger.Warn("catalog cache read failed", zap.Error(err))
	}

	entry, err := c.inner.GetByFirmID(ctx, propFirmID)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(entry); err == nil {
		if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			c.logger.Warn("catalog cache write failed", zap.Error(err))
		}
	}
	return entry, nil
}

func (c *CatalogCache) Save(ctx context.Context, entry *entity.SourceCatalogEntry) error {
	if err := c.inner.Save(ctx, entry); err != nil {
		return err
	}
	c.invalidate(ctx, entry.PropFirmID)
	return nil
}

func (c *CatalogCache) RecordFailure(ctx context.Context, propFirmID string) error {
	if err := c.inner.RecordFailure(ctx, propFirmID); err != nil {
		return err
	}
	// Failure bookkeeping can deactivate the entry, so the active set is
	// stale too.
	c.invalidate(ctx, propFirmID)
	return nil
}

func (c *CatalogCache) RecordSuccess(ctx context.Context, propFirmID string) error {
	if err := c.inner.RecordSuccess(ctx, propFirmID); err != nil {
		return err
	}
	c.invalidate(ctx, propFirmID)
	return nil
}

func (c *CatalogCache) invalidate(ctx context.Context, propFirmID string) {
	if err := c.client.Del(ctx, activeCatalogKey, firmKeyPrefix+propFirmID).Err(); err != nil {
		c.logger.Warn("catalog cache invalidation failed",
			zap.String("prop_firm_id", propFirmID), zap.Error(err))
	}
}
