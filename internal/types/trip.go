package types

import (
	"sort"
	"strings"
	"time"
)

// MaxTripDays caps the length of a trip.
const MaxTripDays = 7

// TripData holds the trip-level parameters chosen when a trip is created.
// The preference lists behave as sets: Normalize removes duplicates and
// blank entries, and order carries no meaning.
type TripData struct {
	City                  string      `json:"city"`
	Country               string      `json:"country"`
	Coordinates           Coordinates `json:"coordinates"`
	FromDT                *time.Time  `json:"fromDT,omitempty"`
	ToDT                  *time.Time  `json:"toDT,omitempty"`
	MonthlyDays           int         `json:"monthlyDays"`
	Interests             []string    `json:"interests"`
	CustomInterests       []string    `json:"customInterests"`
	FoodPreferences       []string    `json:"foodPreferences"`
	CustomFoodPreferences []string    `json:"customFoodPreferences"`
	CreatedDT             time.Time   `json:"createdDT"`
	UserID                string      `json:"userId,omitempty"`
}

// DaysBetween returns the number of whole calendar days from from to to.
func DaysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}

// Normalize de-duplicates the preference sets and derives MonthlyDays from
// the date range when both ends are set.
func (t *TripData) Normalize() {
	t.Interests = uniqueStrings(t.Interests)
	t.CustomInterests = uniqueStrings(t.CustomInterests)
	t.FoodPreferences = uniqueStrings(t.FoodPreferences)
	t.CustomFoodPreferences = uniqueStrings(t.CustomFoodPreferences)

	if t.FromDT != nil && t.ToDT != nil {
		t.MonthlyDays = DaysBetween(*t.FromDT, *t.ToDT) + 1
	}
	if t.MonthlyDays > MaxTripDays {
		t.MonthlyDays = MaxTripDays
	}
}

// AllInterests returns interests and custom interests as one trimmed list.
func (t TripData) AllInterests() []string {
	return trimAll(append(append([]string{}, t.Interests...), t.CustomInterests...))
}

// AllFoodPreferences returns food and custom food preferences as one trimmed list.
func (t TripData) AllFoodPreferences() []string {
	return trimAll(append(append([]string{}, t.FoodPreferences...), t.CustomFoodPreferences...))
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ItineraryPOIUpdate is the persisted scheduling record of one itinerary POI.
type ItineraryPOIUpdate struct {
	PointID   string `json:"PointID"`
	StartTime int    `json:"StartTime"`
	EndTime   int    `json:"EndTime"`
	TimeSlot  string `json:"timeSlot"`
	Day       int    `json:"day"`
	Duration  int    `json:"duration"`
}

// UnusedPOIUpdate references a POI in the unused pool.
type UnusedPOIUpdate struct {
	PointID string `json:"PointID"`
}

// Changeset is the difference between a locally edited itinerary and the
// last synced remote copy. NewlyAddedPOIs are placed items the trip did not
// hold before. UnusedPOIsState is the complete unused membership when
// present; a nil value means the pool the server ends up with after the
// moves already matches.
type Changeset struct {
	MovedToItinerary  []ItineraryPOIUpdate `json:"movedToItinerary"`
	MovedToUnused     []UnusedPOIUpdate    `json:"movedToUnused"`
	SchedulingUpdates []ItineraryPOIUpdate `json:"schedulingUpdates"`
	NewlyAddedPOIs    []ItineraryPOIUpdate `json:"newlyAddedPOIs"`
	UnusedPOIsState   []UnusedPOIUpdate    `json:"unusedPOIsState"`
}

// IsEmpty reports whether applying the changeset would change nothing. An
// empty but non-nil UnusedPOIsState still clears the unused pool.
func (c Changeset) IsEmpty() bool {
	return len(c.MovedToItinerary) == 0 &&
		len(c.MovedToUnused) == 0 &&
		len(c.SchedulingUpdates) == 0 &&
		len(c.NewlyAddedPOIs) == 0 &&
		c.UnusedPOIsState == nil
}

// TripDataUpdate carries the trip-level fields that can change after creation.
type TripDataUpdate struct {
	FromDT      *time.Time `json:"fromDT,omitempty"`
	ToDT        *time.Time `json:"toDT,omitempty"`
	MonthlyDays *int       `json:"monthlyDays,omitempty"`
}

// IsEmpty reports whether no field is set.
func (u *TripDataUpdate) IsEmpty() bool {
	return u == nil || (u.FromDT == nil && u.ToDT == nil && u.MonthlyDays == nil)
}

// TripUpdateRequest is the PUT body for a trip: a changeset plus optional
// trip-level changes.
type TripUpdateRequest struct {
	TripDataChanged *TripDataUpdate `json:"tripDataChanged,omitempty"`
	Changeset
}

// IsEmpty reports whether the request would change nothing.
func (r TripUpdateRequest) IsEmpty() bool {
	return r.TripDataChanged.IsEmpty() && r.Changeset.IsEmpty()
}

// SaveTripRequest creates a trip with its initial itinerary.
type SaveTripRequest struct {
	TripData      TripData             `json:"tripData"`
	ItineraryPOIs []ItineraryPOIUpdate `json:"itineraryPOIs"`
	UnusedPOIs    []UnusedPOIUpdate    `json:"unusedPOIs"`
}

// TripDetails is a stored trip with its itinerary and unused pool.
type TripDetails struct {
	TripID        string               `json:"tripId"`
	TripData      TripData             `json:"tripData"`
	ItineraryPOIs []ItineraryPOIUpdate `json:"itineraryPOIs"`
	UnusedPOIs    []UnusedPOIUpdate    `json:"unusedPOIs"`
	Version       int                  `json:"version"`
}

// UserTrip is the summary row shown in a user's list of trips.
type UserTrip struct {
	TripID      string     `json:"trip_doc_id"`
	City        string     `json:"city"`
	Country     string     `json:"country"`
	FromDT      *time.Time `json:"fromDT,omitempty"`
	ToDT        *time.Time `json:"toDT,omitempty"`
	MonthlyDays int        `json:"monthlyDays"`
	Status      bool       `json:"status"`
}

// GenerateTripRequest asks for a generated itinerary over the selected POIs.
type GenerateTripRequest struct {
	TripData       TripData `json:"tripData"`
	AttractionPOIs []POI    `json:"attractionPOIs"`
	FoodPOIs       []POI    `json:"foodPOIs"`
}
