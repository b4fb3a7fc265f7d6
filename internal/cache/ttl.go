package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
)

// Entry is the stored form of a cached value.
type Entry[T any] struct {
	Data      T      `json:"data"`
	Timestamp int64  `json:"timestamp"`
	City      string `json:"city"`
}

// TTLCache stores values per key together with the city they were computed
// for. A value is only returned while it is younger than the TTL and was
// stored for the requested city; anything else is evicted on read. Backend
// failures are logged and reported as a miss.
type TTLCache[T any] struct {
	store   Store
	prefix  string
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
	metrics *metrics.AppMetrics
}

type Option func(*options)

type options struct {
	now     func() time.Time
	metrics *metrics.AppMetrics
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithMetrics(m *metrics.AppMetrics) Option {
	return func(o *options) { o.metrics = m }
}

func NewTTLCache[T any](store Store, prefix string, ttl time.Duration, logger *slog.Logger, opts ...Option) *TTLCache[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &TTLCache[T]{
		store:   store,
		prefix:  prefix,
		ttl:     ttl,
		logger:  logger.With(slog.String("cache", prefix)),
		now:     o.now,
		metrics: o.metrics,
	}
}

func (c *TTLCache[T]) TTL() time.Duration { return c.ttl }

func (c *TTLCache[T]) storageKey(key string) string {
	return c.prefix + "_" + key
}

// Set overwrites the entry for key.
func (c *TTLCache[T]) Set(ctx context.Context, key string, data T, city string) {
	b, err := json.Marshal(Entry[T]{Data: data, Timestamp: c.now().UnixMilli(), City: city})
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to encode cache entry", slog.String("key", key), slog.Any("error", err))
		return
	}
	// The store TTL only reclaims space; freshness is decided from Timestamp.
	if err := c.store.Set(ctx, c.storageKey(key), b, 2*c.ttl); err != nil {
		c.logger.WarnContext(ctx, "Failed to write cache entry", slog.String("key", key), slog.Any("error", err))
	}
}

// GetValid returns the value for key when it is fresh and was stored for city.
func (c *TTLCache[T]) GetValid(ctx context.Context, key, city string) (T, bool) {
	var zero T
	sk := c.storageKey(key)

	raw, err := c.store.Get(ctx, sk)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to read cache entry", slog.String("key", key), slog.Any("error", err))
		c.metrics.RecordCacheMiss(ctx, c.prefix, "error")
		return zero, false
	}
	if raw == nil {
		c.metrics.RecordCacheMiss(ctx, c.prefix, "absent")
		return zero, false
	}

	var e Entry[T]
	if err := json.Unmarshal(raw, &e); err != nil {
		c.logger.WarnContext(ctx, "Corrupt cache entry evicted", slog.String("key", key), slog.Any("error", err))
		c.evict(ctx, sk, "corrupt")
		return zero, false
	}
	if c.now().Sub(time.UnixMilli(e.Timestamp)) > c.ttl {
		c.evict(ctx, sk, "expired")
		return zero, false
	}
	if e.City != city {
		c.evict(ctx, sk, "city_mismatch")
		return zero, false
	}

	c.metrics.RecordCacheHit(ctx, c.prefix)
	return e.Data, true
}

func (c *TTLCache[T]) evict(ctx context.Context, storageKey, reason string) {
	c.metrics.RecordCacheMiss(ctx, c.prefix, reason)
	if err := c.store.Delete(ctx, storageKey); err != nil {
		c.logger.WarnContext(ctx, "Failed to evict cache entry", slog.String("key", storageKey), slog.Any("error", err))
	}
}

// Delete removes the entry for key.
func (c *TTLCache[T]) Delete(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, c.storageKey(key)); err != nil {
		c.logger.WarnContext(ctx, "Failed to delete cache entry", slog.String("key", key), slog.Any("error", err))
	}
}

// ClearCity removes every entry of this cache whose key mentions city. The
// cache prefix is not part of the match.
func (c *TTLCache[T]) ClearCity(ctx context.Context, city string) {
	keys, err := c.store.Keys(ctx, c.storageKey(""))
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to list cache entries", slog.String("city", city), slog.Any("error", err))
		return
	}
	var doomed []string
	for _, k := range keys {
		if strings.Contains(strings.TrimPrefix(k, c.storageKey("")), city) {
			doomed = append(doomed, k)
		}
	}
	if err := c.store.Delete(ctx, doomed...); err != nil {
		c.logger.WarnContext(ctx, "Failed to clear city", slog.String("city", city), slog.Any("error", err))
		return
	}
	c.logger.DebugContext(ctx, "Cleared city entries", slog.String("city", city), slog.Int("count", len(doomed)))
}

// Clear removes every entry of this cache.
func (c *TTLCache[T]) Clear(ctx context.Context) {
	keys, err := c.store.Keys(ctx, c.prefix+"_")
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to list cache entries", slog.Any("error", err))
		return
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		c.logger.WarnContext(ctx, "Failed to clear cache", slog.Any("error", err))
	}
}
