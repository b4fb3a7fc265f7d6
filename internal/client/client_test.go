package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-planner/internal/itinerary"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	body   string
}

func newTestClient(t *testing.T, status int, response string) (*Client, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		*rec = recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
			body:   string(b),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", StaticToken("tok"), WithHTTPClient(srv.Client())), rec
}

func TestGetSavedPOIs(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `[{"id": "s1", "pointID": "p1", "status": true, "city": "porto"}]`)

	got, err := c.GetSavedPOIs(context.Background(), "porto")
	require.NoError(t, err)
	assert.Equal(t, []types.SavedPOI{{ID: "s1", PointID: "p1", Status: true, City: "porto"}}, got)

	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/api/v1/user/history/saved-pois", rec.path)
	assert.Equal(t, "city=porto", rec.query)
	assert.Equal(t, "Bearer tok", rec.auth)
}

func TestSavePOI(t *testing.T) {
	c, rec := newTestClient(t, http.StatusCreated, `{"id": "s9"}`)

	id, err := c.SavePOI(context.Background(), "p1", "porto")
	require.NoError(t, err)
	assert.Equal(t, "s9", id)
	assert.Equal(t, http.MethodPost, rec.method)
	assert.JSONEq(t, `{"point_id": "p1", "city": "porto"}`, rec.body)
}

func TestExplorePlaces(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `[]`)

	_, err := c.ExplorePlaces(context.Background(), types.ExploreQuery{
		City:   "porto",
		Center: types.Coordinates{Lat: 41.15, Lng: -8.61},
		Limit:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/explore/places", rec.path)
	assert.Equal(t, "city=porto&latitude=41.15&limit=10&longitude=-8.61", rec.query)
}

func TestUpdateTrip(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"tripId": "t1", "version": 4}`)

	req := types.TripUpdateRequest{Changeset: types.Changeset{
		MovedToUnused: []types.UnusedPOIUpdate{{PointID: "p1"}},
	}}
	v, err := c.UpdateTrip(context.Background(), "t1", req)
	require.NoError(t, err)
	assert.Equal(t, 4, v)
	assert.Equal(t, http.MethodPut, rec.method)
	assert.Equal(t, "/api/v1/trips/t1", rec.path)

	var sent types.TripUpdateRequest
	require.NoError(t, json.Unmarshal([]byte(rec.body), &sent))
	assert.Equal(t, req.MovedToUnused, sent.MovedToUnused)
}

func TestDeleteTripNoContent(t *testing.T) {
	c, rec := newTestClient(t, http.StatusNoContent, ``)

	require.NoError(t, c.DeleteTrip(context.Background(), "t1"))
	assert.Equal(t, http.MethodDelete, rec.method)
}

func TestGenerateTrip(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, `{
		"itinerary": "{}",
		"itineraryPOIs": [{"id": "p1", "place_id": "g1", "name": "A", "day": 1, "timeSlot": "Morning", "StartTime": 540, "EndTime": 600, "duration": 60}],
		"unusedPOIs": [{"id": "p2", "place_id": "g2", "name": "B"}],
		"unmapped": {"food": [], "interests": []}
	}`)

	out, err := c.GenerateTrip(context.Background(), types.GenerateTripRequest{TripData: types.TripData{City: "porto"}})
	require.NoError(t, err)
	require.Len(t, out.ItineraryPOIs, 1)
	placement, ok := out.ItineraryPOIs[0].Placement()
	require.True(t, ok)
	assert.Equal(t, itinerary.NewScheduled(1, 540, 600), placement)
	require.Len(t, out.UnusedPOIs, 1)
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		detail   string
		request  string
		notFound bool
	}{
		{name: "ServerError", status: http.StatusNotFound, body: `{"success": false, "error": "Trip not found", "request_id": "r1"}`, detail: "Trip not found", request: "r1", notFound: true},
		{name: "DetailField", status: http.StatusBadRequest, body: `{"detail": "bad input"}`, detail: "bad input"},
		{name: "NoBody", status: http.StatusBadGateway, body: ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, tt.status, tt.body)
			_, err := c.GetTrip(context.Background(), "t1")

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.detail, apiErr.Detail)
			assert.Equal(t, tt.request, apiErr.RequestID)
			assert.Equal(t, tt.notFound, IsStatus(err, http.StatusNotFound))
		})
	}
}

func TestTokenProviderError(t *testing.T) {
	boom := errors.New("signed out")
	c := New("http://127.0.0.1:1", TokenProviderFunc(func(context.Context) (string, error) { return "", boom }))

	_, err := c.ListTrips(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestFindSlot(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"startTime": 600, "endTime": 630, "timeSlot": "Morning"}`)

	slot, err := c.FindSlot(context.Background(), 2, nil)
	require.NoError(t, err)
	assert.Equal(t, itinerary.Slot{StartTime: 600, EndTime: 630, TimeSlot: itinerary.Morning}, slot)
	assert.Equal(t, "/api/v1/planner/slot", rec.path)
	assert.JSONEq(t, `{"day": 2, "items": null}`, rec.body)
}
