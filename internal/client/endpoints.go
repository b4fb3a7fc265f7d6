package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/FACorreiaa/go-trip-planner/internal/api/generation"
	"github.com/FACorreiaa/go-trip-planner/internal/categories"
	"github.com/FACorreiaa/go-trip-planner/internal/itinerary"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

func (c *Client) GetSavedPOIs(ctx context.Context, city string) ([]types.SavedPOI, error) {
	var out []types.SavedPOI
	err := c.do(ctx, http.MethodGet, "/user/history/saved-pois", url.Values{"city": {city}}, nil, &out)
	return out, err
}

func (c *Client) GetSavedPOIDetails(ctx context.Context, city string) ([]types.POI, error) {
	var out []types.POI
	err := c.do(ctx, http.MethodGet, "/user/history/saved-pois/details", url.Values{"city": {city}}, nil, &out)
	return out, err
}

func (c *Client) GetPOIDetails(ctx context.Context, pointIDs []string) ([]types.POI, error) {
	var out []types.POI
	err := c.do(ctx, http.MethodPost, "/points/saved/details", nil, types.PointIDsRequest{PointIDs: pointIDs}, &out)
	return out, err
}

func (c *Client) CreateOrGetPOI(ctx context.Context, poi types.POI) (string, error) {
	var out types.PointIDResponse
	err := c.do(ctx, http.MethodPost, "/points/create-or-get", nil, types.CreateOrGetPOIRequest{POIData: poi}, &out)
	return out.PointID, err
}

func (c *Client) SavePOI(ctx context.Context, pointID, city string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "/user/history/saved-pois", nil, types.SavePOIRequest{PointID: pointID, City: city}, &out)
	return out.ID, err
}

func (c *Client) UnsavePOIs(ctx context.Context, pointIDs []string) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	err := c.do(ctx, http.MethodPut, "/user/history/saved-pois/unsave", nil, types.PointIDsRequest{PointIDs: pointIDs}, &out)
	return out.Updated, err
}

// ExplorePlaces searches places around q.Center. Zero radius, limit and
// category use the server defaults.
func (c *Client) ExplorePlaces(ctx context.Context, q types.ExploreQuery) ([]types.POI, error) {
	v := url.Values{
		"city":      {q.City},
		"latitude":  {strconv.FormatFloat(q.Center.Lat, 'f', -1, 64)},
		"longitude": {strconv.FormatFloat(q.Center.Lng, 'f', -1, 64)},
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Radius > 0 {
		v.Set("radius", strconv.Itoa(q.Radius))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	var out []types.POI
	err := c.do(ctx, http.MethodGet, "/explore/places", v, nil, &out)
	return out, err
}

func (c *Client) CreateTrip(ctx context.Context, req types.SaveTripRequest) (string, error) {
	var out struct {
		TripID string `json:"tripId"`
	}
	err := c.do(ctx, http.MethodPost, "/trips", nil, req, &out)
	return out.TripID, err
}

func (c *Client) GetTrip(ctx context.Context, tripID string) (*types.TripDetails, error) {
	var out types.TripDetails
	if err := c.do(ctx, http.MethodGet, "/trips/"+url.PathEscape(tripID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTrip sends a changeset and returns the new trip version.
func (c *Client) UpdateTrip(ctx context.Context, tripID string, req types.TripUpdateRequest) (int, error) {
	var out struct {
		Version int `json:"version"`
	}
	err := c.do(ctx, http.MethodPut, "/trips/"+url.PathEscape(tripID), nil, req, &out)
	return out.Version, err
}

func (c *Client) ListTrips(ctx context.Context) ([]types.UserTrip, error) {
	var out []types.UserTrip
	err := c.do(ctx, http.MethodGet, "/trips", nil, nil, &out)
	return out, err
}

func (c *Client) TripExists(ctx context.Context, tripID string) (bool, error) {
	var out struct {
		Exists bool `json:"exists"`
	}
	err := c.do(ctx, http.MethodGet, "/trips/"+url.PathEscape(tripID)+"/exists", nil, nil, &out)
	return out.Exists, err
}

func (c *Client) DeleteTrip(ctx context.Context, tripID string) error {
	return c.do(ctx, http.MethodDelete, "/trips/"+url.PathEscape(tripID), nil, nil, nil)
}

func (c *Client) GenerateTrip(ctx context.Context, req types.GenerateTripRequest) (*generation.GeneratedTrip, error) {
	var out generation.GeneratedTrip
	if err := c.do(ctx, http.MethodPost, "/trips/generate", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindSlot asks the server for the earliest free slot on day.
func (c *Client) FindSlot(ctx context.Context, day int, items []itinerary.ItineraryPOI) (itinerary.Slot, error) {
	var out itinerary.Slot
	in := struct {
		Day   int                      `json:"day"`
		Items []itinerary.ItineraryPOI `json:"items"`
	}{Day: day, Items: items}
	err := c.do(ctx, http.MethodPost, "/planner/slot", nil, in, &out)
	return out, err
}

func (c *Client) Diff(ctx context.Context, local, remote itinerary.Snapshot) (types.Changeset, error) {
	var out types.Changeset
	in := struct {
		Local  itinerary.Snapshot `json:"local"`
		Remote itinerary.Snapshot `json:"remote"`
	}{Local: local, Remote: remote}
	err := c.do(ctx, http.MethodPost, "/planner/diff", nil, in, &out)
	return out, err
}

func (c *Client) CategoryMappings(ctx context.Context, trip types.TripData) (categories.Mappings, error) {
	var out categories.Mappings
	err := c.do(ctx, http.MethodPost, "/planner/categories", nil, trip, &out)
	return out, err
}
