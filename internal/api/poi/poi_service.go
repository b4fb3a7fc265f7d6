package poi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-trip-planner/internal/cache"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// DetailsBatchSize is how many ids one details query carries.
const DetailsBatchSize = 10

var (
	ErrNoPointIDs = errors.New("point ids are required")
	ErrInvalidID  = errors.New("invalid point id")
	ErrInvalidPOI = errors.New("invalid POI")
)

var _ POIService = (*ServiceImpl)(nil)

type POIService interface {
	CreateOrGetPOI(ctx context.Context, poi types.POI) (string, error)
	GetPOIDetails(ctx context.Context, pointIDs []string) ([]types.POI, error)

	GetSavedPOIs(ctx context.Context, userID, city string) ([]types.SavedPOI, error)
	GetSavedPOIDetails(ctx context.Context, userID, city string) ([]types.POI, error)
	SavePOI(ctx context.Context, userID string, req types.SavePOIRequest) (string, error)
	UnsavePOIs(ctx context.Context, userID string, pointIDs []string) (int64, error)
}

type ServiceImpl struct {
	logger     *slog.Logger
	repository Repository
	cache      *cache.POICache
}

// NewServiceImpl wires the service. poiCache may be nil.
func NewServiceImpl(repository Repository, poiCache *cache.POICache, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:     logger,
		repository: repository,
		cache:      poiCache,
	}
}

// NormalizeCity is the form cities are stored and compared in.
func NormalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

// CreateOrGetPOI returns the id of an existing point matching the place id
// within the same city and country, or one within CoordinateTolerance, and
// otherwise inserts the POI.
func (s *ServiceImpl) CreateOrGetPOI(ctx context.Context, poi types.POI) (string, error) {
	ctx, span := otel.Tracer("POIService").Start(ctx, "CreateOrGetPOI", trace.WithAttributes(
		attribute.String("poi.place_id", poi.PlaceID),
		attribute.String("poi.name", poi.Name),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "CreateOrGetPOI"), slog.String("place_id", poi.PlaceID))

	poi.Name = strings.TrimSpace(poi.Name)
	if poi.Name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidPOI)
	}
	if !poi.Coordinates.Valid() {
		return "", fmt.Errorf("%w: coordinates out of range", ErrInvalidPOI)
	}
	poi.City = NormalizeCity(poi.City)
	if poi.Type == "" {
		poi.Type = types.POITypeAttraction
	}

	if poi.PlaceID != "" {
		id, err := s.repository.FindByPlace(ctx, poi.PlaceID, poi.City, poi.Country)
		switch {
		case err == nil:
			l.DebugContext(ctx, "POI matched by place id", slog.String("id", id.String()))
			return id.String(), nil
		case !errors.Is(err, types.ErrNotFound):
			span.RecordError(err)
			span.SetStatus(codes.Error, "lookup failed")
			return "", err
		}
	}

	id, err := s.repository.FindByCoordinates(ctx, poi.Coordinates, CoordinateTolerance)
	switch {
	case err == nil:
		l.DebugContext(ctx, "POI matched by coordinates", slog.String("id", id.String()))
		return id.String(), nil
	case !errors.Is(err, types.ErrNotFound):
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return "", err
	}

	id, err = s.repository.Insert(ctx, poi)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return "", err
	}
	l.InfoContext(ctx, "POI created", slog.String("id", id.String()))
	return id.String(), nil
}

// GetPOIDetails loads the given points in concurrent batches of
// DetailsBatchSize. The result follows the order of pointIDs; ids with no
// row are skipped.
func (s *ServiceImpl) GetPOIDetails(ctx context.Context, pointIDs []string) ([]types.POI, error) {
	ctx, span := otel.Tracer("POIService").Start(ctx, "GetPOIDetails", trace.WithAttributes(
		attribute.Int("poi.count", len(pointIDs)),
	))
	defer span.End()

	ids, err := parseIDs(pointIDs)
	if err != nil {
		return nil, err
	}

	batches := chunk(ids, DetailsBatchSize)
	results := make([][]types.POI, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		g.Go(func() error {
			pois, err := s.repository.GetByIDs(gctx, batch)
			if err != nil {
				return fmt.Errorf("batch %d: %w", i, err)
			}
			results[i] = pois
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch fetch failed")
		return nil, err
	}

	byID := make(map[string]types.POI, len(ids))
	for _, batch := range results {
		for _, p := range batch {
			byID[p.ID] = p
		}
	}
	out := make([]types.POI, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		key := id.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if p, ok := byID[key]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *ServiceImpl) GetSavedPOIs(ctx context.Context, userID, city string) ([]types.SavedPOI, error) {
	ctx, span := otel.Tracer("POIService").Start(ctx, "GetSavedPOIs")
	defer span.End()

	saved, err := s.repository.GetSavedPOIs(ctx, userID, NormalizeCity(city))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, err
	}
	return saved, nil
}

// GetSavedPOIDetails returns the details of the user's saved points in city,
// served from the POI cache while fresh.
func (s *ServiceImpl) GetSavedPOIDetails(ctx context.Context, userID, city string) ([]types.POI, error) {
	ctx, span := otel.Tracer("POIService").Start(ctx, "GetSavedPOIDetails")
	defer span.End()

	city = NormalizeCity(city)
	key := savedCacheKey(userID, city)
	if s.cache != nil {
		if pois, ok := s.cache.GetValid(ctx, key, city); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return pois, nil
		}
	}

	saved, err := s.repository.GetSavedPOIs(ctx, userID, city)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, err
	}
	if len(saved) == 0 {
		return []types.POI{}, nil
	}
	ids := make([]string, 0, len(saved))
	for _, sp := range saved {
		ids = append(ids, sp.PointID)
	}
	pois, err := s.GetPOIDetails(ctx, ids)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, pois, city)
	}
	return pois, nil
}

func (s *ServiceImpl) SavePOI(ctx context.Context, userID string, req types.SavePOIRequest) (string, error) {
	ctx, span := otel.Tracer("POIService").Start(ctx, "SavePOI", trace.WithAttributes(
		attribute.String("poi.point_id", req.PointID),
	))
	defer span.End()

	pointID, err := uuid.Parse(strings.TrimSpace(req.PointID))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, req.PointID)
	}
	city := NormalizeCity(req.City)
	if city == "" {
		return "", fmt.Errorf("%w: city is required", types.ErrInvalidInput)
	}

	id, err := s.repository.SavePOI(ctx, userID, pointID, city)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return "", err
	}
	s.invalidateSaved(ctx, userID, city)
	return id.String(), nil
}

func (s *ServiceImpl) UnsavePOIs(ctx context.Context, userID string, pointIDs []string) (int64, error) {
	ctx, span := otel.Tracer("POIService").Start(ctx, "UnsavePOIs", trace.WithAttributes(
		attribute.Int("poi.count", len(pointIDs)),
	))
	defer span.End()

	ids, err := parseIDs(pointIDs)
	if err != nil {
		return 0, err
	}
	n, err := s.repository.UnsavePOIs(ctx, userID, ids)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unsave failed")
		return 0, err
	}
	if s.cache != nil {
		// The unsaved rows may belong to any city.
		s.cache.ClearCity(ctx, userID)
	}
	return n, nil
}

func (s *ServiceImpl) invalidateSaved(ctx context.Context, userID, city string) {
	if s.cache != nil {
		s.cache.Delete(ctx, savedCacheKey(userID, city))
	}
}

func savedCacheKey(userID, city string) string {
	return cache.SavedKey(city) + "_" + userID
}

func parseIDs(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, ErrNoPointIDs
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(strings.TrimSpace(r))
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidID, r)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for size < len(items) {
		items, out = items[size:], append(out, items[:size:size])
	}
	return append(out, items)
}
