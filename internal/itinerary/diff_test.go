package itinerary

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/jaswdr/faker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// remotePOI mimics a backend record: ID is the point id, PlaceID the provider id.
func remotePOI(placeID string) types.POI {
	return types.POI{ID: "pt-" + placeID, PlaceID: placeID, Name: placeID}
}

func localPOI(placeID string) types.POI {
	return types.POI{ID: placeID, PlaceID: placeID, Name: placeID}
}

func placed(p types.POI, day, start, end int) ItineraryPOI {
	return ItineraryPOI{POI: p, Schedule: NewScheduled(day, start, end)}
}

func TestDiff(t *testing.T) {
	t.Run("unchanged itinerary yields nothing", func(t *testing.T) {
		remote := Snapshot{ItineraryPOIs: []ItineraryPOI{placed(remotePOI("p1"), 2, 600, 660)}}
		local := Snapshot{ItineraryPOIs: []ItineraryPOI{placed(localPOI("p1"), 2, 600, 660)}}

		cs := Diff(local, remote)
		assert.True(t, cs.IsEmpty())
		assert.Empty(t, cs.MovedToItinerary)
		assert.Empty(t, cs.MovedToUnused)
		assert.Empty(t, cs.SchedulingUpdates)
		assert.Nil(t, cs.UnusedPOIsState)
	})

	t.Run("itinerary item moved to unused", func(t *testing.T) {
		remote := Snapshot{ItineraryPOIs: []ItineraryPOI{
			placed(remotePOI("p1"), 1, 600, 630),
			placed(remotePOI("p2"), 1, 700, 730),
		}}
		local := Snapshot{
			ItineraryPOIs: []ItineraryPOI{placed(localPOI("p1"), 1, 600, 630)},
			UnusedPOIs:    []types.POI{localPOI("p2")},
		}

		cs := Diff(local, remote)
		assert.Equal(t, []types.UnusedPOIUpdate{{PointID: "pt-p2"}}, cs.MovedToUnused)
		assert.Empty(t, cs.SchedulingUpdates)
		assert.Empty(t, cs.MovedToItinerary)
		assert.Equal(t, []types.UnusedPOIUpdate{{PointID: "pt-p2"}}, cs.UnusedPOIsState)
	})

	t.Run("unused item placed on a day", func(t *testing.T) {
		remote := Snapshot{UnusedPOIs: []types.POI{remotePOI("p3"), remotePOI("p4")}}
		local := Snapshot{
			ItineraryPOIs: []ItineraryPOI{placed(localPOI("p3"), 2, 480, 510)},
			UnusedPOIs:    []types.POI{localPOI("p4")},
		}

		cs := Diff(local, remote)
		require.Len(t, cs.MovedToItinerary, 1)
		assert.Equal(t, types.ItineraryPOIUpdate{
			PointID: "pt-p3", StartTime: 480, EndTime: 510, TimeSlot: "Morning", Day: 2, Duration: 30,
		}, cs.MovedToItinerary[0])
		assert.Empty(t, cs.SchedulingUpdates)
		assert.Equal(t, []types.UnusedPOIUpdate{{PointID: "pt-p4"}}, cs.UnusedPOIsState)
	})

	t.Run("rescheduled in place", func(t *testing.T) {
		remote := Snapshot{ItineraryPOIs: []ItineraryPOI{
			placed(remotePOI("a"), 1, 600, 660),
			placed(remotePOI("b"), 1, 700, 760),
			placed(remotePOI("c"), 1, 800, 860),
		}}
		local := Snapshot{ItineraryPOIs: []ItineraryPOI{
			placed(localPOI("a"), 2, 600, 660),
			placed(localPOI("b"), 1, 720, 760),
			placed(localPOI("c"), 1, 800, 860),
		}}

		cs := Diff(local, remote)
		require.Len(t, cs.SchedulingUpdates, 2)
		assert.Equal(t, "pt-a", cs.SchedulingUpdates[0].PointID)
		assert.Equal(t, 2, cs.SchedulingUpdates[0].Day)
		assert.Equal(t, "pt-b", cs.SchedulingUpdates[1].PointID)
		assert.Equal(t, 720, cs.SchedulingUpdates[1].StartTime)
		assert.Empty(t, cs.MovedToUnused)
	})

	t.Run("label change alone is a reschedule", func(t *testing.T) {
		r := placed(remotePOI("a"), 1, 600, 660)
		l := placed(localPOI("a"), 1, 600, 660)
		l.Schedule = Scheduled{Day: 1, Start: 600, End: 660, Slot: Afternoon}

		cs := Diff(Snapshot{ItineraryPOIs: []ItineraryPOI{l}}, Snapshot{ItineraryPOIs: []ItineraryPOI{r}})
		require.Len(t, cs.SchedulingUpdates, 1)
		assert.Equal(t, "Afternoon", cs.SchedulingUpdates[0].TimeSlot)
	})

	t.Run("placed item unknown to the remote is newly added", func(t *testing.T) {
		local := Snapshot{
			ItineraryPOIs: []ItineraryPOI{placed(localPOI("new"), 1, 600, 630)},
			UnusedPOIs:    []types.POI{localPOI("other")},
		}
		cs := Diff(local, Snapshot{})
		assert.Equal(t, []types.ItineraryPOIUpdate{
			{PointID: "new", Day: 1, StartTime: 600, EndTime: 630, TimeSlot: "Morning", Duration: 30},
		}, cs.NewlyAddedPOIs)
		assert.Empty(t, cs.MovedToItinerary)
		require.NotNil(t, cs.UnusedPOIsState)
		assert.Empty(t, cs.UnusedPOIsState, "unused items without a remote record are not sent")
	})

	t.Run("unused item unknown to the remote is ignored", func(t *testing.T) {
		cs := Diff(Snapshot{UnusedPOIs: []types.POI{localPOI("other")}}, Snapshot{})
		assert.True(t, cs.IsEmpty())
	})

	t.Run("placed item removed entirely stays out of the unused pool", func(t *testing.T) {
		remote := Snapshot{
			ItineraryPOIs: []ItineraryPOI{placed(remotePOI("x"), 1, 600, 630)},
			UnusedPOIs:    []types.POI{remotePOI("u1")},
		}
		local := Snapshot{UnusedPOIs: []types.POI{localPOI("u1")}}

		cs := Diff(local, remote)
		assert.Equal(t, []types.UnusedPOIUpdate{{PointID: "pt-x"}}, cs.MovedToUnused)
		require.NotNil(t, cs.UnusedPOIsState, "the pool is replaced after the move")
		assert.Equal(t, []types.UnusedPOIUpdate{{PointID: "pt-u1"}}, cs.UnusedPOIsState)
	})

	t.Run("reschedule carries the unchanged pool", func(t *testing.T) {
		remote := Snapshot{
			ItineraryPOIs: []ItineraryPOI{placed(remotePOI("a"), 1, 600, 630)},
			UnusedPOIs:    []types.POI{remotePOI("u1")},
		}
		local := Snapshot{
			ItineraryPOIs: []ItineraryPOI{placed(localPOI("a"), 1, 700, 730)},
			UnusedPOIs:    []types.POI{localPOI("u1")},
		}

		cs := Diff(local, remote)
		require.Len(t, cs.SchedulingUpdates, 1)
		assert.Equal(t, []types.UnusedPOIUpdate{{PointID: "pt-u1"}}, cs.UnusedPOIsState)
	})

	t.Run("emptied unused pool is sent as an empty state", func(t *testing.T) {
		remote := Snapshot{UnusedPOIs: []types.POI{remotePOI("gone")}}
		cs := Diff(Snapshot{}, remote)
		require.NotNil(t, cs.UnusedPOIsState)
		assert.Empty(t, cs.UnusedPOIsState)
		assert.False(t, cs.IsEmpty())

		body, err := json.Marshal(cs)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"unusedPOIsState":[]`)
	})

	t.Run("unplaced itinerary entries count as unused", func(t *testing.T) {
		remote := Snapshot{ItineraryPOIs: []ItineraryPOI{placed(remotePOI("x"), 1, 600, 630)}}
		local := Snapshot{ItineraryPOIs: []ItineraryPOI{{POI: localPOI("x"), Schedule: Unscheduled{}}}}

		cs := Diff(local, remote)
		assert.Equal(t, []types.UnusedPOIUpdate{{PointID: "pt-x"}}, cs.MovedToUnused)
		assert.Equal(t, []types.UnusedPOIUpdate{{PointID: "pt-x"}}, cs.UnusedPOIsState)
	})
}

func randomSnapshot(f faker.Faker, n int) Snapshot {
	var s Snapshot
	for i := 0; i < n; i++ {
		p := remotePOI(fmt.Sprintf("place-%d", i))
		p.Name = f.Company().Name()
		if f.Bool() {
			day := f.IntBetween(1, 7)
			start := f.IntBetween(WindowStart, WindowEnd-60)
			s.ItineraryPOIs = append(s.ItineraryPOIs, placed(p, day, start, start+f.IntBetween(15, 60)))
		} else {
			s.UnusedPOIs = append(s.UnusedPOIs, p)
		}
	}
	return s
}

func TestDiffProperties(t *testing.T) {
	f := faker.NewWithSeed(rand.NewSource(11))

	for round := 0; round < 200; round++ {
		remote := randomSnapshot(f, 12)
		require.True(t, Diff(remote, remote).IsEmpty(), "round %d: self diff not empty", round)

		local := randomSnapshot(f, 12)
		cs := Diff(local, remote)

		moved := make(map[string]struct{})
		for _, u := range cs.MovedToItinerary {
			moved[u.PointID] = struct{}{}
		}
		for _, u := range cs.SchedulingUpdates {
			_, clash := moved[u.PointID]
			require.False(t, clash, "round %d: %s both moved and rescheduled", round, u.PointID)
		}

		_, localUnused := local.split()
		var want []string
		for _, p := range localUnused {
			want = append(want, p.ID)
		}
		assert.ElementsMatch(t, want, serverPool(remote, cs), "round %d: server pool diverges", round)
	}
}

// serverPool replays cs on the remote unused pool in the order the trip
// repository applies it.
func serverPool(remote Snapshot, cs types.Changeset) []string {
	_, unused := remote.split()
	pool := make(map[string]struct{}, len(unused))
	for _, p := range unused {
		pool[p.ID] = struct{}{}
	}
	for _, u := range cs.MovedToItinerary {
		delete(pool, u.PointID)
	}
	for _, u := range cs.NewlyAddedPOIs {
		delete(pool, u.PointID)
	}
	for _, u := range cs.MovedToUnused {
		pool[u.PointID] = struct{}{}
	}
	if cs.UnusedPOIsState != nil {
		clear(pool)
		for _, u := range cs.UnusedPOIsState {
			pool[u.PointID] = struct{}{}
		}
	}
	out := make([]string, 0, len(pool))
	for id := range pool {
		out = append(out, id)
	}
	return out
}
