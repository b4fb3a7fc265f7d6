// Package planner holds the client-side editing session of a trip.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/internal/itinerary"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

var (
	ErrUnknownPOI = errors.New("poi is not part of the trip")
	ErrInvalidDay = errors.New("day outside trip")
	ErrOverlap    = errors.New("placement overlaps another item")
	ErrPlaced     = errors.New("poi is already on the itinerary")
)

// TripAPI is the part of the API client a session needs.
type TripAPI interface {
	GetTrip(ctx context.Context, tripID string) (*types.TripDetails, error)
	GetPOIDetails(ctx context.Context, pointIDs []string) ([]types.POI, error)
	UpdateTrip(ctx context.Context, tripID string, req types.TripUpdateRequest) (int, error)
	CreateOrGetPOI(ctx context.Context, poi types.POI) (string, error)
}

// Session owns the working copy of one trip. Mutations are applied to the
// local state and written to the trip cache; Save sends the difference to
// the last synced remote copy.
type Session struct {
	api    TripAPI
	cache  *TripCache
	logger *slog.Logger
	tripID string

	mu         sync.Mutex
	local      State
	remote     State
	version    int
	rev        uint64
	savedRev   uint64
	slotFinder itinerary.SlotFinder
}

// Open loads the trip and its POI details. Unsaved edits found in the trip
// cache replace the loaded state.
func Open(ctx context.Context, api TripAPI, tripCache *TripCache, tripID string, logger *slog.Logger) (*Session, error) {
	ctx, span := otel.Tracer("PlannerSession").Start(ctx, "Open", trace.WithAttributes(
		attribute.String("trip.id", tripID),
	))
	defer span.End()

	trip, err := api.GetTrip(ctx, tripID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load trip %s: %w", tripID, err)
	}
	remote, err := loadRemote(ctx, api, trip)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s := &Session{
		api:        api,
		cache:      tripCache,
		logger:     logger.With(slog.String("trip_id", tripID)),
		tripID:     tripID,
		local:      remote.clone(),
		remote:     remote,
		version:    trip.Version,
		slotFinder: itinerary.DefaultSlotFinder(),
	}
	if s.Restore(ctx) {
		span.SetAttributes(attribute.Bool("session.restored", true))
	}
	return s, nil
}

func loadRemote(ctx context.Context, api TripAPI, trip *types.TripDetails) (State, error) {
	ids := make([]string, 0, len(trip.ItineraryPOIs)+len(trip.UnusedPOIs))
	for _, u := range trip.ItineraryPOIs {
		ids = append(ids, u.PointID)
	}
	for _, u := range trip.UnusedPOIs {
		ids = append(ids, u.PointID)
	}

	byID := make(map[string]types.POI, len(ids))
	if len(ids) > 0 {
		details, err := api.GetPOIDetails(ctx, ids)
		if err != nil {
			return State{}, fmt.Errorf("failed to load trip POIs: %w", err)
		}
		for _, p := range details {
			byID[p.ID] = p
		}
	}
	poi := func(id string) types.POI {
		if p, ok := byID[id]; ok {
			return p
		}
		return types.POI{ID: id}
	}

	st := State{
		TripData:      trip.TripData,
		ItineraryPOIs: make([]itinerary.ItineraryPOI, 0, len(trip.ItineraryPOIs)),
		UnusedPOIs:    make([]types.POI, 0, len(trip.UnusedPOIs)),
	}
	for _, u := range trip.ItineraryPOIs {
		st.ItineraryPOIs = append(st.ItineraryPOIs, itinerary.ItineraryPOI{
			POI:      poi(u.PointID),
			Schedule: itinerary.ScheduleFromUpdate(u),
		})
	}
	for _, u := range trip.UnusedPOIs {
		st.UnusedPOIs = append(st.UnusedPOIs, poi(u.PointID))
	}
	return st, nil
}

// State returns a copy of the working state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.local.clone()
}

func (s *Session) Version() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Dirty reports whether there are edits not yet saved.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rev != s.savedRev
}

// Restore replaces the working state with the cached one when it is still
// valid for the trip's city.
func (s *Session) Restore(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cached, ok := s.cache.GetValid(ctx, s.tripID, s.remote.TripData.City)
	if !ok {
		return false
	}
	s.local = cached
	s.rev++
	s.logger.DebugContext(ctx, "Restored unsaved edits",
		slog.Int("itinerary", len(cached.ItineraryPOIs)),
		slog.Int("unused", len(cached.UnusedPOIs)))
	return true
}

// persist writes the working state to the cache. Callers hold s.mu.
func (s *Session) persist(ctx context.Context) {
	s.rev++
	s.cache.Set(ctx, s.tripID, s.local.clone(), s.local.TripData.City)
}

func (s *Session) days() int {
	return s.local.TripData.MonthlyDays
}

// AddToItinerary moves an unused POI to the first free slot of day.
func (s *Session) AddToItinerary(ctx context.Context, key string, day int) (itinerary.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if day < 1 || (s.days() > 0 && day > s.days()) {
		return itinerary.Slot{}, fmt.Errorf("%w: %d", ErrInvalidDay, day)
	}
	i := indexPOI(s.local.UnusedPOIs, key)
	if i < 0 {
		return itinerary.Slot{}, fmt.Errorf("%w: %s", ErrUnknownPOI, key)
	}
	slot, err := s.slotFinder.FindFreeSlot(day, s.local.ItineraryPOIs)
	if err != nil {
		return itinerary.Slot{}, err
	}

	poi := s.local.UnusedPOIs[i]
	s.local.UnusedPOIs = append(s.local.UnusedPOIs[:i:i], s.local.UnusedPOIs[i+1:]...)
	s.local.ItineraryPOIs = append(s.local.ItineraryPOIs, itinerary.ItineraryPOI{POI: poi, Schedule: slot.On(day)})
	s.persist(ctx)

	s.logger.InfoContext(ctx, "POI added to itinerary",
		slog.String("poi", key), slog.Int("day", day), slog.String("start", itinerary.FormatClock(slot.StartTime)))
	return slot, nil
}

// AddPOI places a POI the trip does not hold yet on the first free slot of
// day. The backend point is created, or looked up, before the local state
// changes. A POI already in the unused pool is moved as AddToItinerary does.
func (s *Session) AddPOI(ctx context.Context, poi types.POI, day int) (itinerary.Slot, error) {
	key := poi.Key()
	s.mu.Lock()
	if day < 1 || (s.days() > 0 && day > s.days()) {
		s.mu.Unlock()
		return itinerary.Slot{}, fmt.Errorf("%w: %d", ErrInvalidDay, day)
	}
	if indexItinerary(s.local.ItineraryPOIs, key) >= 0 {
		s.mu.Unlock()
		return itinerary.Slot{}, fmt.Errorf("%w: %s", ErrPlaced, key)
	}
	unused := indexPOI(s.local.UnusedPOIs, key) >= 0
	s.mu.Unlock()
	if unused {
		return s.AddToItinerary(ctx, key, day)
	}

	pointID, err := s.api.CreateOrGetPOI(ctx, poi)
	if err != nil {
		return itinerary.Slot{}, fmt.Errorf("failed to register poi %s: %w", key, err)
	}
	poi.ID = pointID

	s.mu.Lock()
	defer s.mu.Unlock()
	if indexItinerary(s.local.ItineraryPOIs, key) >= 0 {
		return itinerary.Slot{}, fmt.Errorf("%w: %s", ErrPlaced, key)
	}
	if i := indexPOI(s.local.UnusedPOIs, key); i >= 0 {
		s.local.UnusedPOIs = append(s.local.UnusedPOIs[:i:i], s.local.UnusedPOIs[i+1:]...)
	}
	slot, err := s.slotFinder.FindFreeSlot(day, s.local.ItineraryPOIs)
	if err != nil {
		return itinerary.Slot{}, err
	}
	s.local.ItineraryPOIs = append(s.local.ItineraryPOIs, itinerary.ItineraryPOI{POI: poi, Schedule: slot.On(day)})
	s.persist(ctx)

	s.logger.InfoContext(ctx, "New POI added to itinerary",
		slog.String("poi", key), slog.String("point_id", pointID), slog.Int("day", day))
	return slot, nil
}

// MoveToUnused takes a POI off the itinerary.
func (s *Session) MoveToUnused(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexItinerary(s.local.ItineraryPOIs, key)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownPOI, key)
	}
	poi := s.local.ItineraryPOIs[i].POI
	s.local.ItineraryPOIs = append(s.local.ItineraryPOIs[:i:i], s.local.ItineraryPOIs[i+1:]...)
	s.local.UnusedPOIs = append(s.local.UnusedPOIs, poi)
	s.persist(ctx)
	return nil
}

// Reschedule changes the placement of an itinerary POI.
func (s *Session) Reschedule(ctx context.Context, key string, to itinerary.Scheduled) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexItinerary(s.local.ItineraryPOIs, key)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownPOI, key)
	}
	if to.Slot == "" {
		to.Slot = itinerary.TimeSlotFor(to.Start)
	}
	if err := to.Validate(s.days()); err != nil {
		return err
	}
	for j, other := range s.local.ItineraryPOIs {
		if p, ok := other.Placement(); ok && j != i && p.Overlaps(to) {
			return fmt.Errorf("%w: %s", ErrOverlap, other.Key())
		}
	}
	s.local.ItineraryPOIs[i].Schedule = to
	s.persist(ctx)
	return nil
}

// RemoveSaved drops a POI from the trip altogether.
func (s *Session) RemoveSaved(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := indexPOI(s.local.UnusedPOIs, key); i >= 0 {
		s.local.UnusedPOIs = append(s.local.UnusedPOIs[:i:i], s.local.UnusedPOIs[i+1:]...)
	} else if i := indexItinerary(s.local.ItineraryPOIs, key); i >= 0 {
		s.local.ItineraryPOIs = append(s.local.ItineraryPOIs[:i:i], s.local.ItineraryPOIs[i+1:]...)
	} else {
		return fmt.Errorf("%w: %s", ErrUnknownPOI, key)
	}
	s.persist(ctx)
	return nil
}

// SetDates changes the trip dates. Items placed on days past the new end
// move to the unused pool.
func (s *Session) SetDates(ctx context.Context, from, to time.Time) error {
	if to.Before(from) {
		return fmt.Errorf("%w: end date before start date", ErrInvalidDay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.local.TripData.FromDT, s.local.TripData.ToDT = &from, &to
	s.local.TripData.Normalize()

	kept := s.local.ItineraryPOIs[:0:0]
	for _, it := range s.local.ItineraryPOIs {
		if p, ok := it.Placement(); ok && p.Day > s.days() {
			s.local.UnusedPOIs = append(s.local.UnusedPOIs, it.POI)
			continue
		}
		kept = append(kept, it)
	}
	s.local.ItineraryPOIs = kept
	s.persist(ctx)
	return nil
}

// Changes returns the request Save would send.
func (s *Session) Changes() types.TripUpdateRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changes()
}

func (s *Session) changes() types.TripUpdateRequest {
	req := types.TripUpdateRequest{
		Changeset: itinerary.Diff(s.local.Snapshot(), s.remote.Snapshot()),
	}
	l, r := s.local.TripData, s.remote.TripData
	if !sameDate(l.FromDT, r.FromDT) || !sameDate(l.ToDT, r.ToDT) || l.MonthlyDays != r.MonthlyDays {
		days := l.MonthlyDays
		req.TripDataChanged = &types.TripDataUpdate{FromDT: l.FromDT, ToDT: l.ToDT, MonthlyDays: &days}
	}
	return req
}

// Save sends the local edits. Nothing is sent when there are none. On
// success the saved state becomes the remote copy and, unless it was edited
// again meanwhile, the cached edits are dropped.
func (s *Session) Save(ctx context.Context) (types.TripUpdateRequest, error) {
	ctx, span := otel.Tracer("PlannerSession").Start(ctx, "Save", trace.WithAttributes(
		attribute.String("trip.id", s.tripID),
	))
	defer span.End()

	s.mu.Lock()
	req := s.changes()
	sent := s.local.clone()
	rev := s.rev
	s.mu.Unlock()

	if req.IsEmpty() {
		span.SetAttributes(attribute.Bool("save.skipped", true))
		s.mu.Lock()
		if s.rev == rev {
			s.savedRev = rev
		}
		s.mu.Unlock()
		return req, nil
	}

	version, err := s.api.UpdateTrip(ctx, s.tripID, req)
	if err != nil {
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "Failed to save trip", slog.Any("error", err))
		return req, fmt.Errorf("failed to save trip %s: %w", s.tripID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.remote = sent
	s.version = version
	if s.rev == rev {
		s.savedRev = rev
		s.cache.Delete(ctx, s.tripID)
	}
	s.logger.InfoContext(ctx, "Trip saved",
		slog.Int("version", version),
		slog.Int("moved_to_itinerary", len(req.MovedToItinerary)),
		slog.Int("moved_to_unused", len(req.MovedToUnused)),
		slog.Int("rescheduled", len(req.SchedulingUpdates)),
		slog.Int("newly_added", len(req.NewlyAddedPOIs)))
	return req, nil
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func indexPOI(pois []types.POI, key string) int {
	for i, p := range pois {
		if p.Key() == key {
			return i
		}
	}
	return -1
}

func indexItinerary(items []itinerary.ItineraryPOI, key string) int {
	for i, it := range items {
		if it.Key() == key {
			return i
		}
	}
	return -1
}
