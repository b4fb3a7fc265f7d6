package cache

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const (
	POICachePrefix = "poi_cache"
	POICacheTTL    = 10 * time.Minute
)

// POICache holds POI lists fetched for a city.
type POICache = TTLCache[[]types.POI]

// NewPOICache creates the POI list cache with its 10 minute TTL.
func NewPOICache(store Store, logger *slog.Logger, opts ...Option) *POICache {
	return NewTTLCache[[]types.POI](store, POICachePrefix, POICacheTTL, logger, opts...)
}

// SavedKey is the key of a user's saved POIs for a city.
func SavedKey(city string) string {
	return "saved_" + city
}

// ExploreKey is the key of an explore search for a category in a city.
func ExploreKey(category, city string) string {
	return "explore_" + category + "_" + city
}

// AreaKey is the key of an explore search around a point. The center is
// rounded to three decimals, roughly 100 m.
func AreaKey(category, city string, center types.Coordinates, radius int) string {
	return fmt.Sprintf("%s_%.3f_%.3f_%d", ExploreKey(category, city), center.Lat, center.Lng, radius)
}
