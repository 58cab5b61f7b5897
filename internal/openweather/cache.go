package openweather

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tripcast/weather-advisor/internal/observability"
)

// Geocoder resolves a free-text place name to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (GeoResult, error)
}

// CachedGeocoder wraps a Geocoder with a TTL cache keyed on the normalized
// query. Only successful lookups are cached, so a transient failure or a
// not-found can be retried immediately.
type CachedGeocoder struct {
	inner   Geocoder
	ttl     time.Duration
	maxSize int
	metrics *observability.Metrics

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	result  GeoResult
	expires time.Time
}

func NewCachedGeocoder(inner Geocoder, ttl time.Duration, maxSize int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		ttl:     ttl,
		maxSize: maxSize,
		metrics: metrics,
		entries: make(map[string]cacheEntry),
	}
}

func (c *CachedGeocoder) Geocode(ctx context.Context, query string) (GeoResult, error) {
	key := strings.ToLower(strings.TrimSpace(query))

	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if ok && time.Now().Before(e.expires) {
		c.countCache("hit")
		return e.result, nil
	}
	c.countCache("miss")

	result, err := c.inner.Geocode(ctx, query)
	if err != nil {
		return result, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		// Full: drop everything rather than track recency. The cache refills
		// from live traffic within one TTL.
		c.entries = make(map[string]cacheEntry)
	}
	c.entries[key] = cacheEntry{result: result, expires: time.Now().Add(c.ttl)}
	return result, nil
}

// Prune removes expired entries and reports how many were dropped.
func (c *CachedGeocoder) Prune() int {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	dropped := 0
	for key, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, key)
			dropped++
		}
	}
	return dropped
}

func (c *CachedGeocoder) countCache(result string) {
	if c.metrics != nil {
		c.metrics.GeocodeCache.WithLabelValues(result).Inc()
	}
}
