package itinerary

import (
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// Snapshot is one copy of a trip's itinerary. Items are matched across
// snapshots by POI.Key(); in a remote snapshot POI.ID is the backend point id.
type Snapshot struct {
	ItineraryPOIs []ItineraryPOI `json:"itineraryPOIs"`
	UnusedPOIs    []types.POI    `json:"unusedPOIs"`
}

// split returns the placed items and everything that is not placed. An
// itinerary entry without a placement counts as unused.
func (s Snapshot) split() ([]ItineraryPOI, []types.POI) {
	placed := make([]ItineraryPOI, 0, len(s.ItineraryPOIs))
	unused := make([]types.POI, 0, len(s.UnusedPOIs))
	for _, it := range s.ItineraryPOIs {
		if _, ok := it.Placement(); ok {
			placed = append(placed, it)
		} else {
			unused = append(unused, it.POI)
		}
	}
	return placed, append(unused, s.UnusedPOIs...)
}

// Diff computes the changeset that turns remote into local.
//
// A placed local item found in the remote unused pool is moved to the
// itinerary; otherwise, if it is placed remotely with a different day,
// start, end or label, it is rescheduled. A placed local item the remote
// does not hold at all is newly added under its local ID, which must
// already be a backend point id. Remote placed items missing from the local
// itinerary are moved to unused.
//
// UnusedPOIsState carries the full unused membership (local unused items
// that have a remote record). It is sent with every non-empty changeset and
// whenever it differs from the remote pool. A snapshot diffed against itself
// is empty.
func Diff(local, remote Snapshot) types.Changeset {
	cs := types.Changeset{
		MovedToItinerary:  []types.ItineraryPOIUpdate{},
		MovedToUnused:     []types.UnusedPOIUpdate{},
		SchedulingUpdates: []types.ItineraryPOIUpdate{},
		NewlyAddedPOIs:    []types.ItineraryPOIUpdate{},
	}

	remotePlaced, remoteUnused := remote.split()
	localPlaced, localUnused := local.split()

	placedByKey := make(map[string]ItineraryPOI, len(remotePlaced))
	for _, it := range remotePlaced {
		placedByKey[it.Key()] = it
	}
	unusedByKey := make(map[string]types.POI, len(remoteUnused))
	for _, p := range remoteUnused {
		unusedByKey[p.Key()] = p
	}

	localKeys := make(map[string]struct{}, len(localPlaced))
	for _, it := range localPlaced {
		key := it.Key()
		localKeys[key] = struct{}{}

		if r, ok := unusedByKey[key]; ok {
			cs.MovedToItinerary = append(cs.MovedToItinerary, it.ToUpdate(r.ID))
		} else if r, ok := placedByKey[key]; ok {
			if rescheduled(it, r) {
				cs.SchedulingUpdates = append(cs.SchedulingUpdates, it.ToUpdate(r.ID))
			}
		} else if it.ID != "" {
			cs.NewlyAddedPOIs = append(cs.NewlyAddedPOIs, it.ToUpdate(it.ID))
		}
	}

	for _, r := range remotePlaced {
		if _, ok := localKeys[r.Key()]; !ok {
			cs.MovedToUnused = append(cs.MovedToUnused, types.UnusedPOIUpdate{PointID: r.ID})
		}
	}

	state := make([]types.UnusedPOIUpdate, 0, len(localUnused))
	seen := make(map[string]struct{}, len(localUnused))
	for _, p := range localUnused {
		key := p.Key()
		var pointID string
		if r, ok := unusedByKey[key]; ok {
			pointID = r.ID
		} else if r, ok := placedByKey[key]; ok {
			pointID = r.ID
		} else {
			continue
		}
		if _, dup := seen[pointID]; dup {
			continue
		}
		seen[pointID] = struct{}{}
		state = append(state, types.UnusedPOIUpdate{PointID: pointID})
	}
	// The server adds every moved-to-unused item to its pool, so a deleted
	// placed item only stays deleted when the state goes out with the moves.
	if !cs.IsEmpty() || !sameMembership(seen, remoteUnused) {
		cs.UnusedPOIsState = state
	}

	return cs
}

func rescheduled(local, remote ItineraryPOI) bool {
	l, _ := local.Placement()
	r, _ := remote.Placement()
	return l.Start != r.Start || l.End != r.End || l.Day != r.Day || l.Label() != r.Label()
}

func sameMembership(ids map[string]struct{}, remote []types.POI) bool {
	remoteIDs := make(map[string]struct{}, len(remote))
	for _, p := range remote {
		remoteIDs[p.ID] = struct{}{}
	}
	if len(remoteIDs) != len(ids) {
		return false
	}
	for id := range ids {
		if _, ok := remoteIDs[id]; !ok {
			return false
		}
	}
	return true
}
