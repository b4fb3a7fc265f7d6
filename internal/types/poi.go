package types

import (
	"strings"
	"time"
)

// POIType classifies a point of interest.
type POIType string

const (
	POITypeAttraction POIType = "attraction"
	POITypeRestaurant POIType = "restaurant"
	POITypeHotel      POIType = "hotel"
	POITypeCafe       POIType = "cafe"
)

// SuggestedPlacePrefix marks place ids invented by the itinerary generator
// for places that were not part of the user's selection.
const SuggestedPlacePrefix = "suggested_"

// Coordinates is a lat/lng pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the pair lies within the WGS84 range.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// POI is a place as returned by the backend. Enrichment fields are filled
// incrementally by different calls, so everything past the identity and
// location is optional.
type POI struct {
	ID               string      `json:"id"`
	PlaceID          string      `json:"place_id,omitempty"`
	Name             string      `json:"name"`
	Coordinates      Coordinates `json:"coordinates"`
	Address          string      `json:"address"`
	City             string      `json:"city"`
	Country          string      `json:"country,omitempty"`
	Type             POIType     `json:"type,omitempty"`
	Categories       []string    `json:"categories,omitempty"`
	Cuisine          []string    `json:"cuisine,omitempty"`
	Description      string      `json:"description,omitempty"`
	WikidataID       string      `json:"wikidata_id,omitempty"`
	ImageURL         string      `json:"image_url,omitempty"`
	Website          string      `json:"website,omitempty"`
	Phone            string      `json:"phone,omitempty"`
	Email            string      `json:"email,omitempty"`
	OpeningHours     string      `json:"opening_hours,omitempty"`
	Rating           *float64    `json:"rating,omitempty"`
	UserRatingsTotal *int        `json:"user_ratings_total,omitempty"`
	PriceLevel       *int        `json:"price_level,omitempty"`
	CreatedAt        *time.Time  `json:"created_at,omitempty"`
	UpdatedAt        *time.Time  `json:"updated_at,omitempty"`
}

// Key is the stable external identity used to match a POI across snapshots:
// the provider place id when present, otherwise the backend id.
func (p POI) Key() string {
	if p.PlaceID != "" {
		return p.PlaceID
	}
	return p.ID
}

// IsSuggested reports whether the place id was invented by the generator.
func (p POI) IsSuggested() bool {
	return strings.HasPrefix(p.PlaceID, SuggestedPlacePrefix)
}

// IsProviderBacked reports whether the POI can be merged with richer data
// from the external place provider.
func (p POI) IsProviderBacked() bool {
	return p.PlaceID != "" && !p.IsSuggested()
}

// CreateOrGetPOIRequest wraps the POI payload for create-or-get.
type CreateOrGetPOIRequest struct {
	POIData POI `json:"poi_data"`
}

// PointIDsRequest carries a list of backend point ids.
type PointIDsRequest struct {
	PointIDs []string `json:"point_ids"`
}

// PointIDResponse is returned by create-or-get.
type PointIDResponse struct {
	PointID string `json:"point_id"`
}
