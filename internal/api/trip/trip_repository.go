package trip

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
	"github.com/FACorreiaa/go-trip-planner/internal/itinerary"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

type Repository interface {
	CreateTrip(ctx context.Context, userID string, req types.SaveTripRequest) (uuid.UUID, error)
	GetTrip(ctx context.Context, userID string, tripID uuid.UUID) (*types.TripDetails, error)
	ApplyUpdate(ctx context.Context, userID string, tripID uuid.UUID, req types.TripUpdateRequest) (int, error)
	ListUserTrips(ctx context.Context, userID string) ([]types.UserTrip, error)
	TripExists(ctx context.Context, userID string, tripID uuid.UUID) (bool, error)
	DeleteUserTrip(ctx context.Context, userID string, tripID uuid.UUID) (bool, error)
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

func (r *RepositoryImpl) CreateTrip(ctx context.Context, userID string, req types.SaveTripRequest) (uuid.UUID, error) {
	ctx, span := otel.Tracer("TripRepository").Start(ctx, "CreateTrip", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("trip.city", req.TripData.City),
	))
	defer span.End()
	start := time.Now()

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	td := req.TripData
	var tripID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO trips (
			user_id, city, country, latitude, longitude, from_dt, to_dt, monthly_days,
			interests, custom_interests, food_preferences, custom_food_preferences
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		userID, td.City, td.Country, td.Coordinates.Lat, td.Coordinates.Lng, td.FromDT, td.ToDT, td.MonthlyDays,
		td.Interests, td.CustomInterests, td.FoodPreferences, td.CustomFoodPreferences,
	).Scan(&tripID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert trip failed")
		r.metrics.RecordDBQuery(ctx, "trip_create", start, err)
		return uuid.Nil, fmt.Errorf("failed to insert trip: %w", err)
	}

	for _, it := range req.ItineraryPOIs {
		if err := upsertItineraryRow(ctx, tx, tripID, it); err != nil {
			return uuid.Nil, err
		}
	}
	for i, u := range req.UnusedPOIs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO trip_unused_pois (trip_id, point_id, position) VALUES ($1, $2, $3)
			ON CONFLICT (trip_id, point_id) DO NOTHING`, tripID, u.PointID, i); err != nil {
			return uuid.Nil, fmt.Errorf("failed to insert unused POI %s: %w", u.PointID, err)
		}
	}
	if _, err := tx.Exec(ctx, `INSERT INTO user_saved_trips (user_id, trip_id) VALUES ($1, $2)`, userID, tripID); err != nil {
		return uuid.Nil, fmt.Errorf("failed to record saved trip: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		r.metrics.RecordDBQuery(ctx, "trip_create", start, err)
		return uuid.Nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	r.metrics.RecordDBQuery(ctx, "trip_create", start, nil)
	r.logger.InfoContext(ctx, "Trip created", slog.String("trip_id", tripID.String()), slog.Int("itinerary", len(req.ItineraryPOIs)))
	return tripID, nil
}

func (r *RepositoryImpl) GetTrip(ctx context.Context, userID string, tripID uuid.UUID) (*types.TripDetails, error) {
	ctx, span := otel.Tracer("TripRepository").Start(ctx, "GetTrip", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("trip.id", tripID.String()),
	))
	defer span.End()
	start := time.Now()

	d := &types.TripDetails{TripID: tripID.String()}
	td := &d.TripData
	err := r.pgpool.QueryRow(ctx, `
		SELECT user_id, city, country, latitude, longitude, from_dt, to_dt, monthly_days,
		       interests, custom_interests, food_preferences, custom_food_preferences, created_dt, version
		FROM trips WHERE id = $1 AND user_id = $2`, tripID, userID,
	).Scan(&td.UserID, &td.City, &td.Country, &td.Coordinates.Lat, &td.Coordinates.Lng, &td.FromDT, &td.ToDT, &td.MonthlyDays,
		&td.Interests, &td.CustomInterests, &td.FoodPreferences, &td.CustomFoodPreferences, &td.CreatedDT, &d.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		r.metrics.RecordDBQuery(ctx, "trip_get", start, nil)
		return nil, types.ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select trip failed")
		r.metrics.RecordDBQuery(ctx, "trip_get", start, err)
		return nil, fmt.Errorf("failed to load trip: %w", err)
	}

	if d.ItineraryPOIs, err = r.itineraryRows(ctx, tripID); err != nil {
		return nil, err
	}
	if d.UnusedPOIs, err = r.unusedRows(ctx, tripID); err != nil {
		return nil, err
	}
	r.metrics.RecordDBQuery(ctx, "trip_get", start, nil)
	return d, nil
}

func (r *RepositoryImpl) itineraryRows(ctx context.Context, tripID uuid.UUID) ([]types.ItineraryPOIUpdate, error) {
	rows, err := r.pgpool.Query(ctx, `
		SELECT point_id, day, start_time, end_time, time_slot
		FROM trip_itinerary_pois WHERE trip_id = $1
		ORDER BY day, start_time`, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to query itinerary: %w", err)
	}
	defer rows.Close()

	out := []types.ItineraryPOIUpdate{}
	for rows.Next() {
		var (
			u       types.ItineraryPOIUpdate
			pointID uuid.UUID
		)
		if err := rows.Scan(&pointID, &u.Day, &u.StartTime, &u.EndTime, &u.TimeSlot); err != nil {
			return nil, fmt.Errorf("failed to scan itinerary row: %w", err)
		}
		u.PointID = pointID.String()
		u.Duration = u.EndTime - u.StartTime
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating itinerary rows: %w", err)
	}
	return out, nil
}

func (r *RepositoryImpl) unusedRows(ctx context.Context, tripID uuid.UUID) ([]types.UnusedPOIUpdate, error) {
	rows, err := r.pgpool.Query(ctx, `
		SELECT point_id FROM trip_unused_pois WHERE trip_id = $1 ORDER BY position, point_id`, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unused POIs: %w", err)
	}
	defer rows.Close()

	out := []types.UnusedPOIUpdate{}
	for rows.Next() {
		var pointID uuid.UUID
		if err := rows.Scan(&pointID); err != nil {
			return nil, fmt.Errorf("failed to scan unused row: %w", err)
		}
		out = append(out, types.UnusedPOIUpdate{PointID: pointID.String()})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unused rows: %w", err)
	}
	return out, nil
}

// ApplyUpdate applies a changeset atomically and returns the new version.
// Scheduled items are checked against the trip length as it stands after
// the trip data change.
func (r *RepositoryImpl) ApplyUpdate(ctx context.Context, userID string, tripID uuid.UUID, req types.TripUpdateRequest) (int, error) {
	ctx, span := otel.Tracer("TripRepository").Start(ctx, "ApplyUpdate", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("trip.id", tripID.String()),
		attribute.Int("changes.moved_to_itinerary", len(req.MovedToItinerary)),
		attribute.Int("changes.moved_to_unused", len(req.MovedToUnused)),
		attribute.Int("changes.scheduling", len(req.SchedulingUpdates)),
		attribute.Int("changes.newly_added", len(req.NewlyAddedPOIs)),
	))
	defer span.End()
	start := time.Now()

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var days int
	err = tx.QueryRow(ctx, `SELECT monthly_days FROM trips WHERE id = $1 AND user_id = $2 FOR UPDATE`, tripID, userID).Scan(&days)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, types.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock trip: %w", err)
	}

	if tdc := req.TripDataChanged; !tdc.IsEmpty() {
		if tdc.MonthlyDays != nil {
			days = *tdc.MonthlyDays
		}
		if _, err := tx.Exec(ctx, `
			UPDATE trips SET
				from_dt = COALESCE($2, from_dt),
				to_dt = COALESCE($3, to_dt),
				monthly_days = $4
			WHERE id = $1`, tripID, tdc.FromDT, tdc.ToDT, days); err != nil {
			return 0, fmt.Errorf("failed to update trip data: %w", err)
		}
	}

	// Newly added POIs take the same path as items leaving the unused pool.
	placedRows := append(append([]types.ItineraryPOIUpdate{}, req.MovedToItinerary...), req.NewlyAddedPOIs...)
	for _, u := range placedRows {
		if err := validateRow(u, days); err != nil {
			return 0, err
		}
		if err := upsertItineraryRow(ctx, tx, tripID, u); err != nil {
			return 0, err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM trip_unused_pois WHERE trip_id = $1 AND point_id = $2`, tripID, u.PointID); err != nil {
			return 0, fmt.Errorf("failed to remove %s from unused: %w", u.PointID, err)
		}
	}

	for _, u := range req.SchedulingUpdates {
		if err := validateRow(u, days); err != nil {
			return 0, err
		}
		if err := upsertItineraryRow(ctx, tx, tripID, u); err != nil {
			return 0, err
		}
	}

	for _, u := range req.MovedToUnused {
		if _, err := tx.Exec(ctx, `DELETE FROM trip_itinerary_pois WHERE trip_id = $1 AND point_id = $2`, tripID, u.PointID); err != nil {
			return 0, fmt.Errorf("failed to remove %s from itinerary: %w", u.PointID, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO trip_unused_pois (trip_id, point_id, position)
			VALUES ($1, $2, (SELECT COALESCE(MAX(position) + 1, 0) FROM trip_unused_pois WHERE trip_id = $1))
			ON CONFLICT (trip_id, point_id) DO NOTHING`, tripID, u.PointID); err != nil {
			return 0, fmt.Errorf("failed to add %s to unused: %w", u.PointID, err)
		}
	}

	if req.UnusedPOIsState != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM trip_unused_pois WHERE trip_id = $1`, tripID); err != nil {
			return 0, fmt.Errorf("failed to reset unused POIs: %w", err)
		}
		for i, u := range req.UnusedPOIsState {
			if _, err := tx.Exec(ctx, `
				INSERT INTO trip_unused_pois (trip_id, point_id, position) VALUES ($1, $2, $3)
				ON CONFLICT (trip_id, point_id) DO NOTHING`, tripID, u.PointID, i); err != nil {
				return 0, fmt.Errorf("failed to insert unused POI %s: %w", u.PointID, err)
			}
		}
	}

	var version int
	if err := tx.QueryRow(ctx, `
		UPDATE trips SET version = version + 1, last_modified = now()
		WHERE id = $1 RETURNING version`, tripID).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to bump trip version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		r.metrics.RecordDBQuery(ctx, "trip_update", start, err)
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	r.metrics.RecordDBQuery(ctx, "trip_update", start, nil)
	return version, nil
}

func validateRow(u types.ItineraryPOIUpdate, days int) error {
	s, ok := itinerary.ScheduleFromUpdate(u).(itinerary.Scheduled)
	if !ok {
		return fmt.Errorf("%w: %s is not scheduled", itinerary.ErrInvalidSchedule, u.PointID)
	}
	if err := s.Validate(days); err != nil {
		return fmt.Errorf("point %s: %w", u.PointID, err)
	}
	return nil
}

func upsertItineraryRow(ctx context.Context, tx pgx.Tx, tripID uuid.UUID, u types.ItineraryPOIUpdate) error {
	slot := u.TimeSlot
	if _, ok := itinerary.ParseTimeSlot(slot); !ok {
		slot = string(itinerary.TimeSlotFor(u.StartTime))
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO trip_itinerary_pois (trip_id, point_id, day, start_time, end_time, time_slot)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (trip_id, point_id)
		DO UPDATE SET day = EXCLUDED.day, start_time = EXCLUDED.start_time,
		              end_time = EXCLUDED.end_time, time_slot = EXCLUDED.time_slot`,
		tripID, u.PointID, u.Day, u.StartTime, u.EndTime, slot)
	if err != nil {
		return fmt.Errorf("failed to write itinerary POI %s: %w", u.PointID, err)
	}
	return nil
}

func (r *RepositoryImpl) ListUserTrips(ctx context.Context, userID string) ([]types.UserTrip, error) {
	ctx, span := otel.Tracer("TripRepository").Start(ctx, "ListUserTrips", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
	))
	defer span.End()
	start := time.Now()

	rows, err := r.pgpool.Query(ctx, `
		SELECT t.id, t.city, t.country, t.from_dt, t.to_dt, t.monthly_days, ust.status
		FROM user_saved_trips ust
		JOIN trips t ON t.id = ust.trip_id
		WHERE ust.user_id = $1 AND ust.status
		ORDER BY ust.created_dt DESC`, userID)
	if err != nil {
		r.metrics.RecordDBQuery(ctx, "trip_list", start, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("failed to query user trips: %w", err)
	}
	defer rows.Close()

	trips := []types.UserTrip{}
	for rows.Next() {
		var (
			t  types.UserTrip
			id uuid.UUID
		)
		if err := rows.Scan(&id, &t.City, &t.Country, &t.FromDT, &t.ToDT, &t.MonthlyDays, &t.Status); err != nil {
			return nil, fmt.Errorf("failed to scan user trip: %w", err)
		}
		t.TripID = id.String()
		trips = append(trips, t)
	}
	err = rows.Err()
	r.metrics.RecordDBQuery(ctx, "trip_list", start, err)
	if err != nil {
		return nil, fmt.Errorf("error iterating user trips: %w", err)
	}
	return trips, nil
}

func (r *RepositoryImpl) TripExists(ctx context.Context, userID string, tripID uuid.UUID) (bool, error) {
	ctx, span := otel.Tracer("TripRepository").Start(ctx, "TripExists")
	defer span.End()

	var exists bool
	err := r.pgpool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM user_saved_trips WHERE user_id = $1 AND trip_id = $2 AND status)`,
		userID, tripID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check trip: %w", err)
	}
	return exists, nil
}

// DeleteUserTrip hides the trip from the user's list. The trip itself is kept.
func (r *RepositoryImpl) DeleteUserTrip(ctx context.Context, userID string, tripID uuid.UUID) (bool, error) {
	ctx, span := otel.Tracer("TripRepository").Start(ctx, "DeleteUserTrip")
	defer span.End()

	tag, err := r.pgpool.Exec(ctx, `
		UPDATE user_saved_trips SET status = FALSE
		WHERE user_id = $1 AND trip_id = $2 AND status`, userID, tripID)
	if err != nil {
		return false, fmt.Errorf("failed to delete user trip: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
