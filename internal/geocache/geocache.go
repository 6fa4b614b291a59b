// Package geocache remembers geocoder answers keyed by a normalized query so
// that each distinct query reaches the external service at most once.
package geocache

import (
	"context"
	"io"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/DeafMist/geonews/backend/internal/metrics"
	"github.com/DeafMist/geonews/backend/internal/models"
)

// Entry is a cached answer. A nil Point is a definitive non-match and is
// never retried.
type Entry struct {
	Point *models.Geopoint `json:"point"`
}

// Store persists entries. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry) error
}

// Cache coordinates lookups against a Store. Concurrent misses for the same
// key inside one process share a single call to the loader.
type Cache struct {
	store Store
	group singleflight.Group
	log   *slog.Logger
}

// New wraps store.
func New(store Store, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Cache{store: store, log: logger}
}

// Lookup returns the cached entry for key, or runs load once, stores its
// result (including a nil point) and returns it. A load error is returned
// without caching anything. A store failure degrades to a miss on read and is
// only logged on write.
func (c *Cache) Lookup(ctx context.Context, key string, load func() (*models.Geopoint, error)) (*models.Geopoint, error) {
	if e, ok := c.get(ctx, key); ok {
		metrics.GeocacheLookups.WithLabelValues("hit").Inc()
		return e.Point, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if e, ok := c.get(ctx, key); ok {
			metrics.GeocacheLookups.WithLabelValues("hit").Inc()
			return e.Point, nil
		}
		metrics.GeocacheLookups.WithLabelValues("miss").Inc()

		point, err := load()
		if err != nil {
			return nil, err
		}
		if err := c.store.Set(ctx, key, Entry{Point: point}); err != nil {
			c.log.Warn("geocache write failed", slog.String("key", key), slog.Any("err", err))
		}
		return point, nil
	})

	if err != nil {
		return nil, err
	}
	point, _ := v.(*models.Geopoint)
	return point, nil
}

func (c *Cache) get(ctx context.Context, key string) (Entry, bool) {
	e, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn("geocache read failed", slog.String("key", key), slog.Any("err", err))
		return Entry{}, false
	}
	return e, ok
}
