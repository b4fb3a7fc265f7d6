package explore

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-planner/config"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const placesFixture = `{
  "type": "FeatureCollection",
  "features": [
    {"properties": {"place_id": "g1", "name": "Hotel Infante", "formatted": "Rua X 1, Porto", "city": "Porto",
      "country": "Portugal", "categories": ["accommodation.hotel"], "contact": {"phone": "+351 1"},
      "wiki_and_media": {"wikidata": "Q1"}}, "geometry": {"coordinates": [-8.61, 41.14]}},
    {"properties": {"place_id": "g2", "name": "hotel infante", "city": "Porto"}, "geometry": {"coordinates": [-8.62, 41.15]}},
    {"properties": {"place_id": "g3", "name": "Casa Azul"}, "geometry": {"coordinates": [-8.63, 41.16]}},
    {"properties": {"place_id": "g4", "name": "No Geometry"}, "geometry": {}}
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *GeoapifyClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGeoapifyClient(config.GeoapifyConfig{
		BaseURL: srv.URL + "/",
		APIKey:  "test-key",
		Timeout: 2 * time.Second,
	}, slog.Default())
}

func TestGeoapifyClient_Places(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, placesFixture)
	})

	places, err := c.Places(context.Background(), types.ExploreQuery{
		City:     "porto",
		Center:   types.Coordinates{Lat: 41.1496, Lng: -8.611},
		Category: "accommodation",
		Radius:   5000,
		Limit:    30,
	})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/v2/places", got.URL.Path)
	assert.Equal(t, "circle:-8.611,41.1496,5000", got.URL.Query().Get("filter"))
	assert.Equal(t, "accommodation", got.URL.Query().Get("categories"))
	assert.Equal(t, "30", got.URL.Query().Get("limit"))
	assert.Equal(t, "test-key", got.URL.Query().Get("apiKey"))
	assert.Empty(t, got.URL.Query().Get("offset"))

	require.Len(t, places, 2)
	assert.Equal(t, "Hotel Infante", places[0].Name)
	assert.Equal(t, "g1", places[0].PlaceID)
	assert.Equal(t, types.Coordinates{Lat: 41.14, Lng: -8.61}, places[0].Coordinates)
	assert.Equal(t, types.POITypeHotel, places[0].Type)
	assert.Equal(t, "+351 1", places[0].Phone)
	assert.Equal(t, "Q1", places[0].WikidataID)
	assert.Equal(t, "porto", places[1].City, "falls back to the queried city")
}

func TestGeoapifyClient_TruncatesToLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, placesFixture)
	})

	places, err := c.Places(context.Background(), types.ExploreQuery{City: "porto", Category: "catering", Limit: 1})
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, types.POITypeRestaurant, places[0].Type)
}

func TestGeoapifyClient_Errors(t *testing.T) {
	t.Run("UpstreamStatus", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid apiKey", http.StatusUnauthorized)
		})
		_, err := c.Places(context.Background(), types.ExploreQuery{City: "porto", Limit: 5})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
	})

	t.Run("BadJSON", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"features": [`)
		})
		_, err := c.Places(context.Background(), types.ExploreQuery{City: "porto", Limit: 5})
		assert.Error(t, err)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, placesFixture)
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.Places(ctx, types.ExploreQuery{City: "porto", Limit: 5})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestPOITypeForCategory(t *testing.T) {
	tests := map[string]types.POIType{
		"accommodation.hotel":      types.POITypeHotel,
		"catering.restaurant":      types.POITypeRestaurant,
		"tourism.sights":           types.POITypeAttraction,
		"entertainment.museum":     types.POITypeAttraction,
		"commercial.shopping_mall": types.POITypeHotel,
	}
	for category, want := range tests {
		assert.Equal(t, want, types.POITypeForCategory(category), category)
	}
}
