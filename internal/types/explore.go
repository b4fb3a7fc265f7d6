package types

import "strings"

// Explore search limits.
const (
	DefaultExploreCategory = "accommodation"
	DefaultExploreRadius   = 5000
	MaxExploreRadius       = 50000
	DefaultExploreLimit    = 30
	MaxExploreLimit        = 50
)

// ExploreQuery is a places search around a point of a city.
type ExploreQuery struct {
	City     string      `json:"city"`
	Center   Coordinates `json:"center"`
	Category string      `json:"category"`
	Radius   int         `json:"radius"`
	Limit    int         `json:"limit"`
	Offset   int         `json:"offset"`
}

// POITypeForCategory infers the POI type from a provider category string.
func POITypeForCategory(category string) POIType {
	switch {
	case strings.Contains(category, "accommodation"):
		return POITypeHotel
	case strings.Contains(category, "catering"):
		return POITypeRestaurant
	case strings.Contains(category, "tourism"), strings.Contains(category, "entertainment"):
		return POITypeAttraction
	default:
		return POITypeHotel
	}
}
