package poi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/go-trip-planner/app/db"
	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// CoordinateTolerance is the lat/lng distance, in degrees, under which two
// points are considered the same place.
const CoordinateTolerance = 0.0001

var _ Repository = (*RepositoryImpl)(nil)

type Repository interface {
	FindByPlace(ctx context.Context, placeID, city, country string) (uuid.UUID, error)
	FindByCoordinates(ctx context.Context, coords types.Coordinates, tolerance float64) (uuid.UUID, error)
	Insert(ctx context.Context, poi types.POI) (uuid.UUID, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]types.POI, error)

	// Saved POIs
	GetSavedPOIs(ctx context.Context, userID, city string) ([]types.SavedPOI, error)
	SavePOI(ctx context.Context, userID string, pointID uuid.UUID, city string) (uuid.UUID, error)
	UnsavePOIs(ctx context.Context, userID string, pointIDs []uuid.UUID) (int64, error)
}

type RepositoryImpl struct {
	logger  *slog.Logger
	pgpool  database.DBTX
	metrics *metrics.AppMetrics
}

func NewRepository(pgpool database.DBTX, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger:  logger,
		pgpool:  pgpool,
		metrics: metrics.Get(),
	}
}

const poiColumns = `id, COALESCE(place_id, ''), name, latitude, longitude, address, city, country, poi_type,
       categories, cuisine, description, wikidata_id, image_url, website, phone, email, opening_hours,
       rating, user_ratings_total, price_level, created_at, updated_at`

func scanPOI(row pgx.Row) (types.POI, error) {
	var (
		p         types.POI
		id        uuid.UUID
		poiType   string
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(&id, &p.PlaceID, &p.Name, &p.Coordinates.Lat, &p.Coordinates.Lng, &p.Address, &p.City, &p.Country, &poiType,
		&p.Categories, &p.Cuisine, &p.Description, &p.WikidataID, &p.ImageURL, &p.Website, &p.Phone, &p.Email, &p.OpeningHours,
		&p.Rating, &p.UserRatingsTotal, &p.PriceLevel, &createdAt, &updatedAt)
	if err != nil {
		return types.POI{}, err
	}
	p.ID = id.String()
	p.Type = types.POIType(poiType)
	p.CreatedAt = &createdAt
	p.UpdatedAt = &updatedAt
	return p, nil
}

func (r *RepositoryImpl) FindByPlace(ctx context.Context, placeID, city, country string) (uuid.UUID, error) {
	ctx, span := otel.Tracer("POIRepository").Start(ctx, "FindByPlace", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("poi.place_id", placeID),
	))
	defer span.End()

	start := time.Now()
	var id uuid.UUID
	err := r.pgpool.QueryRow(ctx, `
		SELECT id FROM points_of_interest
		WHERE place_id = $1 AND city = $2 AND country = $3
		LIMIT 1`, placeID, city, country).Scan(&id)
	r.metrics.RecordDBQuery(ctx, "poi_find_by_place", start, ignoreNoRows(err))
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, types.ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return uuid.Nil, fmt.Errorf("failed to find POI by place id: %w", err)
	}
	return id, nil
}

func (r *RepositoryImpl) FindByCoordinates(ctx context.Context, coords types.Coordinates, tolerance float64) (uuid.UUID, error) {
	ctx, span := otel.Tracer("POIRepository").Start(ctx, "FindByCoordinates", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.Float64("poi.lat", coords.Lat),
		attribute.Float64("poi.lng", coords.Lng),
	))
	defer span.End()

	start := time.Now()
	var id uuid.UUID
	err := r.pgpool.QueryRow(ctx, `
		SELECT id FROM points_of_interest
		WHERE latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
		ORDER BY abs(latitude - $5) + abs(longitude - $6)
		LIMIT 1`,
		coords.Lat-tolerance, coords.Lat+tolerance,
		coords.Lng-tolerance, coords.Lng+tolerance,
		coords.Lat, coords.Lng,
	).Scan(&id)
	r.metrics.RecordDBQuery(ctx, "poi_find_by_coordinates", start, ignoreNoRows(err))
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, types.ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return uuid.Nil, fmt.Errorf("failed to find POI by coordinates: %w", err)
	}
	return id, nil
}

func (r *RepositoryImpl) Insert(ctx context.Context, p types.POI) (uuid.UUID, error) {
	ctx, span := otel.Tracer("POIRepository").Start(ctx, "Insert", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("poi.name", p.Name),
	))
	defer span.End()

	var placeID *string
	if p.PlaceID != "" {
		placeID = &p.PlaceID
	}
	categories := p.Categories
	if categories == nil {
		categories = []string{}
	}
	cuisine := p.Cuisine
	if cuisine == nil {
		cuisine = []string{}
	}

	start := time.Now()
	var id uuid.UUID
	err := r.pgpool.QueryRow(ctx, `
		INSERT INTO points_of_interest (
			place_id, name, latitude, longitude, address, city, country, poi_type,
			categories, cuisine, description, wikidata_id, image_url, website, phone, email, opening_hours,
			rating, user_ratings_total, price_level
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id`,
		placeID, p.Name, p.Coordinates.Lat, p.Coordinates.Lng, p.Address, p.City, p.Country, string(p.Type),
		categories, cuisine, p.Description, p.WikidataID, p.ImageURL, p.Website, p.Phone, p.Email, p.OpeningHours,
		p.Rating, p.UserRatingsTotal, p.PriceLevel,
	).Scan(&id)
	r.metrics.RecordDBQuery(ctx, "poi_insert", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return uuid.Nil, fmt.Errorf("failed to insert POI: %w", err)
	}

	r.logger.DebugContext(ctx, "POI inserted", slog.String("name", p.Name), slog.String("id", id.String()))
	return id, nil
}

func (r *RepositoryImpl) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]types.POI, error) {
	ctx, span := otel.Tracer("POIRepository").Start(ctx, "GetByIDs", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.Int("poi.count", len(ids)),
	))
	defer span.End()

	start := time.Now()
	rows, err := r.pgpool.Query(ctx, `SELECT `+poiColumns+` FROM points_of_interest WHERE id = ANY($1)`, ids)
	if err != nil {
		r.metrics.RecordDBQuery(ctx, "poi_get_by_ids", start, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("failed to query POIs: %w", err)
	}
	defer rows.Close()

	pois := make([]types.POI, 0, len(ids))
	for rows.Next() {
		p, err := scanPOI(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan POI row: %w", err)
		}
		pois = append(pois, p)
	}
	err = rows.Err()
	r.metrics.RecordDBQuery(ctx, "poi_get_by_ids", start, err)
	if err != nil {
		return nil, fmt.Errorf("error iterating POI rows: %w", err)
	}
	return pois, nil
}

func (r *RepositoryImpl) GetSavedPOIs(ctx context.Context, userID, city string) ([]types.SavedPOI, error) {
	ctx, span := otel.Tracer("POIRepository").Start(ctx, "GetSavedPOIs", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("city", city),
	))
	defer span.End()

	start := time.Now()
	rows, err := r.pgpool.Query(ctx, `
		SELECT id, point_id, status, created_dt, city
		FROM saved_pois
		WHERE user_id = $1 AND city = $2 AND status
		ORDER BY created_dt DESC`, userID, city)
	if err != nil {
		r.metrics.RecordDBQuery(ctx, "saved_pois_list", start, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("failed to query saved POIs: %w", err)
	}
	defer rows.Close()

	saved := []types.SavedPOI{}
	for rows.Next() {
		var (
			s         types.SavedPOI
			id        uuid.UUID
			pointID   uuid.UUID
			createdDT time.Time
		)
		if err := rows.Scan(&id, &pointID, &s.Status, &createdDT, &s.City); err != nil {
			return nil, fmt.Errorf("failed to scan saved POI row: %w", err)
		}
		s.ID = id.String()
		s.PointID = pointID.String()
		s.CreatedDT = &createdDT
		saved = append(saved, s)
	}
	err = rows.Err()
	r.metrics.RecordDBQuery(ctx, "saved_pois_list", start, err)
	if err != nil {
		return nil, fmt.Errorf("error iterating saved POI rows: %w", err)
	}
	return saved, nil
}

// SavePOI creates the saved entry, re-activating it when it was unsaved
// before. The id of the entry is returned either way.
func (r *RepositoryImpl) SavePOI(ctx context.Context, userID string, pointID uuid.UUID, city string) (uuid.UUID, error) {
	ctx, span := otel.Tracer("POIRepository").Start(ctx, "SavePOI", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("poi.point_id", pointID.String()),
	))
	defer span.End()

	start := time.Now()
	var id uuid.UUID
	err := r.pgpool.QueryRow(ctx, `
		INSERT INTO saved_pois (user_id, point_id, city, status)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (user_id, point_id)
		DO UPDATE SET status = TRUE, city = EXCLUDED.city,
		              created_dt = CASE WHEN saved_pois.status THEN saved_pois.created_dt ELSE now() END
		RETURNING id`, userID, pointID, city).Scan(&id)
	r.metrics.RecordDBQuery(ctx, "saved_pois_upsert", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		return uuid.Nil, fmt.Errorf("failed to save POI: %w", err)
	}
	return id, nil
}

func (r *RepositoryImpl) UnsavePOIs(ctx context.Context, userID string, pointIDs []uuid.UUID) (int64, error) {
	ctx, span := otel.Tracer("POIRepository").Start(ctx, "UnsavePOIs", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.Int("poi.count", len(pointIDs)),
	))
	defer span.End()

	start := time.Now()
	tag, err := r.pgpool.Exec(ctx, `
		UPDATE saved_pois SET status = FALSE
		WHERE user_id = $1 AND point_id = ANY($2) AND status`, userID, pointIDs)
	r.metrics.RecordDBQuery(ctx, "saved_pois_unsave", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return 0, fmt.Errorf("failed to unsave POIs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func ignoreNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return err
}
