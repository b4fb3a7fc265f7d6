package trip

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

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/internal/itinerary"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

var (
	ErrInvalidTripID = errors.New("invalid trip id")
	ErrInvalidTrip   = errors.New("invalid trip")
	ErrEmptyUpdate   = errors.New("update carries no changes")
)

var _ TripService = (*ServiceImpl)(nil)

type TripService interface {
	CreateTrip(ctx context.Context, userID string, req types.SaveTripRequest) (string, error)
	GetTrip(ctx context.Context, userID, tripID string) (*types.TripDetails, error)
	UpdateTrip(ctx context.Context, userID, tripID string, req types.TripUpdateRequest) (int, error)
	ListUserTrips(ctx context.Context, userID string) ([]types.UserTrip, error)
	TripExists(ctx context.Context, userID, tripID string) (bool, error)
	DeleteTrip(ctx context.Context, userID, tripID string) error
}

type ServiceImpl struct {
	logger     *slog.Logger
	repository Repository
	metrics    *metrics.AppMetrics
}

func NewServiceImpl(repository Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:     logger,
		repository: repository,
		metrics:    metrics.Get(),
	}
}

// CreateTrip normalises the trip data, validates the initial itinerary and
// stores it with version 1.
func (s *ServiceImpl) CreateTrip(ctx context.Context, userID string, req types.SaveTripRequest) (string, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "CreateTrip", trace.WithAttributes(
		attribute.String("trip.city", req.TripData.City),
		attribute.Int("trip.itinerary", len(req.ItineraryPOIs)),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "CreateTrip"))

	td := &req.TripData
	td.City = strings.ToLower(strings.TrimSpace(td.City))
	if td.City == "" {
		return "", fmt.Errorf("%w: city is required", ErrInvalidTrip)
	}
	if td.FromDT != nil && td.ToDT != nil && td.ToDT.Before(*td.FromDT) {
		return "", fmt.Errorf("%w: end date before start date", ErrInvalidTrip)
	}
	td.Normalize()
	if td.MonthlyDays < 1 {
		td.MonthlyDays = 1
	}
	td.UserID = userID

	seen := make(map[string]struct{}, len(req.ItineraryPOIs))
	for i, u := range req.ItineraryPOIs {
		if err := checkPointID(u.PointID); err != nil {
			return "", err
		}
		if err := validateRow(u, td.MonthlyDays); err != nil {
			return "", err
		}
		if _, dup := seen[u.PointID]; dup {
			return "", fmt.Errorf("%w: point %s appears twice in the itinerary", ErrInvalidTrip, u.PointID)
		}
		seen[u.PointID] = struct{}{}
		req.ItineraryPOIs[i].Duration = u.EndTime - u.StartTime
	}
	for _, u := range req.UnusedPOIs {
		if err := checkPointID(u.PointID); err != nil {
			return "", err
		}
		if _, placed := seen[u.PointID]; placed {
			return "", fmt.Errorf("%w: point %s is both placed and unused", ErrInvalidTrip, u.PointID)
		}
	}

	id, err := s.repository.CreateTrip(ctx, userID, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return "", err
	}
	l.InfoContext(ctx, "Trip created", slog.String("trip_id", id.String()), slog.String("city", td.City))
	return id.String(), nil
}

func (s *ServiceImpl) GetTrip(ctx context.Context, userID, tripID string) (*types.TripDetails, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "GetTrip", trace.WithAttributes(
		attribute.String("trip.id", tripID),
	))
	defer span.End()

	id, err := parseTripID(tripID)
	if err != nil {
		return nil, err
	}
	return s.repository.GetTrip(ctx, userID, id)
}

// UpdateTrip applies a changeset. Requests that change nothing are rejected
// with ErrEmptyUpdate so clients notice they sent a no-op.
func (s *ServiceImpl) UpdateTrip(ctx context.Context, userID, tripID string, req types.TripUpdateRequest) (int, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "UpdateTrip", trace.WithAttributes(
		attribute.String("trip.id", tripID),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "UpdateTrip"), slog.String("trip_id", tripID))

	changes := map[string]int{
		"moved_to_itinerary": len(req.MovedToItinerary),
		"moved_to_unused":    len(req.MovedToUnused),
		"rescheduled":        len(req.SchedulingUpdates),
		"newly_added":        len(req.NewlyAddedPOIs),
	}
	if req.UnusedPOIsState != nil {
		changes["unused_state"] = 1
	}

	id, err := parseTripID(tripID)
	if err != nil {
		s.metrics.RecordTripSync(ctx, "rejected", nil)
		return 0, err
	}
	if req.IsEmpty() {
		s.metrics.RecordTripSync(ctx, "empty", nil)
		return 0, ErrEmptyUpdate
	}
	if err := normalizeTripDataUpdate(req.TripDataChanged); err != nil {
		s.metrics.RecordTripSync(ctx, "rejected", nil)
		return 0, err
	}
	if err := checkChangesetIDs(req.Changeset); err != nil {
		s.metrics.RecordTripSync(ctx, "rejected", nil)
		return 0, err
	}

	version, err := s.repository.ApplyUpdate(ctx, userID, id, req)
	if err != nil {
		outcome := "error"
		if errors.Is(err, itinerary.ErrInvalidSchedule) || errors.Is(err, types.ErrNotFound) {
			outcome = "rejected"
		}
		s.metrics.RecordTripSync(ctx, outcome, nil)
		span.RecordError(err)
		span.SetStatus(codes.Error, "apply failed")
		return 0, err
	}

	s.metrics.RecordTripSync(ctx, "applied", changes)
	l.InfoContext(ctx, "Trip updated", slog.Int("version", version), slog.Any("changes", changes))
	return version, nil
}

func (s *ServiceImpl) ListUserTrips(ctx context.Context, userID string) ([]types.UserTrip, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "ListUserTrips")
	defer span.End()
	return s.repository.ListUserTrips(ctx, userID)
}

func (s *ServiceImpl) TripExists(ctx context.Context, userID, tripID string) (bool, error) {
	ctx, span := otel.Tracer("TripService").Start(ctx, "TripExists")
	defer span.End()

	id, err := parseTripID(tripID)
	if err != nil {
		return false, err
	}
	return s.repository.TripExists(ctx, userID, id)
}

func (s *ServiceImpl) DeleteTrip(ctx context.Context, userID, tripID string) error {
	ctx, span := otel.Tracer("TripService").Start(ctx, "DeleteTrip")
	defer span.End()

	id, err := parseTripID(tripID)
	if err != nil {
		return err
	}
	deleted, err := s.repository.DeleteUserTrip(ctx, userID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return types.ErrNotFound
	}
	return nil
}

// normalizeTripDataUpdate derives the day count from the dates when both are
// given and checks the result stays within 1..MaxTripDays.
func normalizeTripDataUpdate(u *types.TripDataUpdate) error {
	if u.IsEmpty() {
		return nil
	}
	if u.FromDT != nil && u.ToDT != nil {
		if u.ToDT.Before(*u.FromDT) {
			return fmt.Errorf("%w: end date before start date", ErrInvalidTrip)
		}
		days := min(types.DaysBetween(*u.FromDT, *u.ToDT)+1, types.MaxTripDays)
		u.MonthlyDays = &days
	}
	if u.MonthlyDays != nil && (*u.MonthlyDays < 1 || *u.MonthlyDays > types.MaxTripDays) {
		return fmt.Errorf("%w: trip length must be 1..%d days", ErrInvalidTrip, types.MaxTripDays)
	}
	return nil
}

func checkChangesetIDs(c types.Changeset) error {
	for _, u := range c.MovedToItinerary {
		if err := checkPointID(u.PointID); err != nil {
			return err
		}
	}
	for _, u := range c.SchedulingUpdates {
		if err := checkPointID(u.PointID); err != nil {
			return err
		}
	}
	for _, u := range c.NewlyAddedPOIs {
		if err := checkPointID(u.PointID); err != nil {
			return err
		}
	}
	for _, u := range c.MovedToUnused {
		if err := checkPointID(u.PointID); err != nil {
			return err
		}
	}
	for _, u := range c.UnusedPOIsState {
		if err := checkPointID(u.PointID); err != nil {
			return err
		}
	}
	return nil
}

func checkPointID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: invalid point id %q", ErrInvalidTrip, id)
	}
	return nil
}

func parseTripID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidTripID, raw)
	}
	return id, nil
}
