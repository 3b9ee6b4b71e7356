// internal/common/catalog/cache.go
package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"listing-matcher/internal/common/logger"
	"listing-matcher/internal/common/metrics"
	"listing-matcher/internal/models"
)

const SnapshotKey = "templates:snapshot"

// CachedStore is a cache-aside layer over another store. Redis failures fall
// through to the backing store rather than failing the request.
type CachedStore struct {
	next   ReadWriter
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(next ReadWriter, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedStore {
	return &CachedStore{
		next:   next,
		redis:  rdb,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "template-cache"}),
	}
}

func (c *CachedStore) ListTemplates(ctx context.Context) ([]models.Template, error) {
	raw, err := c.redis.Get(ctx, SnapshotKey).Bytes()
	switch {
	case err == nil:
		var snapshot []models.Template
		if jsonErr := json.Unmarshal(raw, &snapshot); jsonErr == nil {
			metrics.TemplateCacheLookups.WithLabelValues("hit").Inc()
			return snapshot, nil
		}
		c.logger.Warn("discarding undecodable template snapshot", nil)
		metrics.TemplateCacheLookups.WithLabelValues("error").Inc()
	case err == redis.Nil:
		metrics.TemplateCacheLookups.WithLabelValues("miss").Inc()
	default:
		c.logger.Warn("template cache read failed", map[string]interface{}{"error": err})
		metrics.TemplateCacheLookups.WithLabelValues("error").Inc()
	}

	snapshot, err := c.next.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(snapshot); err == nil {
		if err := c.redis.Set(ctx, SnapshotKey, data, c.ttl).Err(); err != nil {
			c.logger.Warn("template cache write failed", map[string]interface{}{"error": err})
		}
	}
	return snapshot, nil
}

// UpsertTemplates writes through and drops the cached snapshot.
func (c *CachedStore) UpsertTemplates(ctx context.Context, templates []models.Template) error {
	if err := c.next.UpsertTemplates(ctx, templates); err != nil {
		return err
	}
	if err := c.redis.Del(ctx, SnapshotKey).Err(); err != nil {
		c.logger.Warn("template cache invalidation failed", map[string]interface{}{"error": err})
	}
	return nil
}
