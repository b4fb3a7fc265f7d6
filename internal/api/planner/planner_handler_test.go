package planner

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-planner/internal/categories"
	"github.com/FACorreiaa/go-trip-planner/internal/itinerary"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

func newTestHandler(t *testing.T) *PlannerHandler {
	t.Helper()
	mapper, err := categories.NewMapper()
	require.NoError(t, err)
	return NewPlannerHandler(mapper, slog.Default())
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	return w
}

func TestFindSlot(t *testing.T) {
	h := newTestHandler(t)

	t.Run("EmptyDay", func(t *testing.T) {
		w := post(h.FindSlot, `{"day": 1, "items": []}`)
		require.Equal(t, http.StatusOK, w.Code)

		var slot itinerary.Slot
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &slot))
		assert.Equal(t, itinerary.Slot{StartTime: 480, EndTime: 510, TimeSlot: itinerary.Morning}, slot)
	})

	t.Run("GapAfterBooking", func(t *testing.T) {
		w := post(h.FindSlot, `{"day": 2, "items": [
			{"id": "a", "name": "A", "day": 2, "timeSlot": "Morning", "StartTime": 480, "EndTime": 600},
			{"id": "b", "name": "B", "day": 1, "timeSlot": "Morning", "StartTime": 600, "EndTime": 700}
		]}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"startTime": 600, "endTime": 630, "timeSlot": "Morning"}`, w.Body.String())
	})

	t.Run("FullDay", func(t *testing.T) {
		w := post(h.FindSlot, `{"day": 1, "items": [
			{"id": "a", "name": "A", "day": 1, "timeSlot": "Morning", "StartTime": 480, "EndTime": 1380}
		]}`)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "no free slot")
	})

	t.Run("BadDay", func(t *testing.T) {
		w := post(h.FindSlot, `{"day": 0, "items": []}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDiff(t *testing.T) {
	h := newTestHandler(t)

	t.Run("IdenticalSnapshotsAreEmpty", func(t *testing.T) {
		snap := `{"itineraryPOIs": [{"id": "p1", "place_id": "g1", "name": "A", "day": 1, "timeSlot": "Morning", "StartTime": 540, "EndTime": 600}],
			"unusedPOIs": [{"id": "p2", "place_id": "g2", "name": "B"}]}`
		w := post(h.Diff, `{"local": `+snap+`, "remote": `+snap+`}`)
		require.Equal(t, http.StatusOK, w.Code)

		var cs types.Changeset
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cs))
		assert.True(t, cs.IsEmpty())
	})

	t.Run("MoveToUnused", func(t *testing.T) {
		remote := `{"itineraryPOIs": [{"id": "p1", "place_id": "g1", "name": "A", "day": 1, "timeSlot": "Morning", "StartTime": 540, "EndTime": 600}], "unusedPOIs": []}`
		local := `{"itineraryPOIs": [], "unusedPOIs": [{"id": "p1", "place_id": "g1", "name": "A"}]}`
		w := post(h.Diff, `{"local": `+local+`, "remote": `+remote+`}`)
		require.Equal(t, http.StatusOK, w.Code)

		var cs types.Changeset
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cs))
		assert.Equal(t, []types.UnusedPOIUpdate{{PointID: "p1"}}, cs.MovedToUnused)
		assert.Equal(t, []types.UnusedPOIUpdate{{PointID: "p1"}}, cs.UnusedPOIsState)
	})

	t.Run("InvalidRequestBody", func(t *testing.T) {
		w := post(h.Diff, `{"local": 1}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCategoryMappings(t *testing.T) {
	h := newTestHandler(t)

	w := post(h.CategoryMappings, `{"city": "porto", "interests": [], "foodPreferences": []}`)
	require.Equal(t, http.StatusOK, w.Code)

	var m categories.Mappings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, categories.DefaultFoodCategory, m.FoodCategories)
	assert.Equal(t, "tourism,entertainment", m.AttractionCategories)
	assert.Empty(t, m.Unmapped.Food)
}
