package planner

import (
	"log/slog"
	"time"

	"github.com/FACorreiaa/go-trip-planner/internal/cache"
	"github.com/FACorreiaa/go-trip-planner/internal/itinerary"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const (
	TripCachePrefix = "trip_data"
	TripCacheTTL    = 30 * time.Minute
)

// State is the locally edited copy of a trip.
type State struct {
	TripData      types.TripData           `json:"tripData"`
	ItineraryPOIs []itinerary.ItineraryPOI `json:"itineraryPOIs"`
	UnusedPOIs    []types.POI              `json:"unusedPOIs"`
}

// Snapshot returns the itinerary part of the state.
func (s State) Snapshot() itinerary.Snapshot {
	return itinerary.Snapshot{ItineraryPOIs: s.ItineraryPOIs, UnusedPOIs: s.UnusedPOIs}
}

func (s State) clone() State {
	out := s
	out.ItineraryPOIs = append([]itinerary.ItineraryPOI{}, s.ItineraryPOIs...)
	out.UnusedPOIs = append([]types.POI{}, s.UnusedPOIs...)
	return out
}

// TripCache keeps unsaved edits per trip id.
type TripCache = cache.TTLCache[State]

func NewTripCache(store cache.Store, logger *slog.Logger, opts ...cache.Option) *TripCache {
	return cache.NewTTLCache[State](store, TripCachePrefix, TripCacheTTL, logger, opts...)
}
