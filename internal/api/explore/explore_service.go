package explore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/internal/cache"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

var ErrInvalidQuery = errors.New("invalid explore query")

var _ ExploreService = (*ServiceImpl)(nil)

type ExploreService interface {
	SearchPlaces(ctx context.Context, q types.ExploreQuery) ([]types.POI, error)
}

type ServiceImpl struct {
	logger   *slog.Logger
	source   PlaceSource
	poiCache *cache.POICache
}

// NewServiceImpl wires the place source with an optional POI cache.
func NewServiceImpl(source PlaceSource, poiCache *cache.POICache, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:   logger,
		source:   source,
		poiCache: poiCache,
	}
}

// Normalize fills defaults and checks the ranges of a query.
func Normalize(q types.ExploreQuery) (types.ExploreQuery, error) {
	q.City = strings.ToLower(strings.TrimSpace(q.City))
	q.Category = strings.TrimSpace(q.Category)
	if q.Category == "" {
		q.Category = types.DefaultExploreCategory
	}
	if q.City == "" {
		return q, fmt.Errorf("%w: city is required", ErrInvalidQuery)
	}
	if !q.Center.Valid() {
		return q, fmt.Errorf("%w: coordinates out of range", ErrInvalidQuery)
	}
	if q.Radius < 0 || q.Radius > types.MaxExploreRadius {
		return q, fmt.Errorf("%w: radius must be 0..%d", ErrInvalidQuery, types.MaxExploreRadius)
	}
	if q.Limit < 1 || q.Limit > types.MaxExploreLimit {
		return q, fmt.Errorf("%w: limit must be 1..%d", ErrInvalidQuery, types.MaxExploreLimit)
	}
	if q.Offset < 0 {
		return q, fmt.Errorf("%w: offset must not be negative", ErrInvalidQuery)
	}
	return q, nil
}

// SearchPlaces serves first pages from the POI cache, keyed by the search
// area. A cacheable search fetches a full page so later searches with a
// larger limit can reuse it.
func (s *ServiceImpl) SearchPlaces(ctx context.Context, q types.ExploreQuery) ([]types.POI, error) {
	q, err := Normalize(q)
	if err != nil {
		return nil, err
	}
	ctx, span := otel.Tracer("ExploreService").Start(ctx, "SearchPlaces", trace.WithAttributes(
		attribute.String("explore.city", q.City),
		attribute.String("explore.category", q.Category),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "SearchPlaces"), slog.String("city", q.City), slog.String("category", q.Category))

	key := cache.AreaKey(q.Category, q.City, q.Center, q.Radius)
	cacheable := s.poiCache != nil && q.Offset == 0
	if cacheable {
		if cached, ok := s.poiCache.GetValid(ctx, key, q.City); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached[:min(q.Limit, len(cached))], nil
		}
	}

	fetch := q
	if cacheable {
		fetch.Limit = types.MaxExploreLimit
	}
	places, err := s.source.Places(ctx, fetch)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch places", slog.Any("error", err))
		return nil, err
	}
	if cacheable {
		s.poiCache.Set(ctx, key, places, q.City)
		places = places[:min(q.Limit, len(places))]
	}
	l.InfoContext(ctx, "Places fetched", slog.Int("count", len(places)))
	return places, nil
}
