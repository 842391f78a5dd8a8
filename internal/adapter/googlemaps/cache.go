package googlemaps

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
	"github.com/couchcryptid/disaster-ingest/internal/observability"
)

// CachedSearcher wraps a PlaceSearcher with an in-memory TTL cache keyed by
// query string. Empty answers are cached; errors are not.
type CachedSearcher struct {
	inner   domain.PlaceSearcher
	cache   *cache.Cache
	metrics *observability.Metrics
}

// NewCachedSearcher creates a cache decorator around a searcher.
func NewCachedSearcher(inner domain.PlaceSearcher, ttl time.Duration, metrics *observability.Metrics) *CachedSearcher {
	return &CachedSearcher{
		inner:   inner,
		cache:   cache.New(ttl, 2*ttl),
		metrics: metrics,
	}
}

func (c *CachedSearcher) SearchPlace(ctx context.Context, query string) ([]domain.GeocodeCandidate, error) {
	if v, ok := c.cache.Get(query); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return v.([]domain.GeocodeCandidate), nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	candidates, err := c.inner.SearchPlace(ctx, query)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(query, candidates)
	return candidates, nil
}

// size returns the number of cached queries, expired entries included.
func (c *CachedSearcher) size() int {
	return c.cache.ItemCount()
}
