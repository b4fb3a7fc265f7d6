package itinerary

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

var (
	ErrEmptyItinerary     = errors.New("empty itinerary")
	ErrMalformedItinerary = errors.New("malformed itinerary")
)

const unusedSection = "Unused"

// ParseResult is either ValidItinerary or MalformedItinerary.
type ParseResult interface {
	isParseResult()
}

// ValidItinerary is a generated itinerary that passed validation. Entries
// whose times could not be placed are listed in Demoted and moved to the
// unused pool when they reference a supplied POI.
type ValidItinerary struct {
	ItineraryPOIs []ItineraryPOI
	UnusedPOIs    []types.POI
	Demoted       []string
}

// MalformedItinerary is returned when the raw document does not have the
// expected shape. Every supplied POI ends up unused.
type MalformedItinerary struct {
	Err        error
	UnusedPOIs []types.POI
}

func (ValidItinerary) isParseResult()     {}
func (MalformedItinerary) isParseResult() {}

// Lists flattens a result into its itinerary and unused lists.
func Lists(r ParseResult) ([]ItineraryPOI, []types.POI) {
	switch v := r.(type) {
	case ValidItinerary:
		return v.ItineraryPOIs, v.UnusedPOIs
	case MalformedItinerary:
		return nil, v.UnusedPOIs
	}
	return nil, nil
}

// Parser validates generated itinerary documents. Days, when positive,
// bounds the accepted day numbers.
type Parser struct {
	Days int
}

// ParseItinerary parses raw without a day bound.
func ParseItinerary(raw string, food, attractions []types.POI) ParseResult {
	return Parser{}.Parse(raw, food, attractions)
}

type rawEntry struct {
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	StartTime   string            `json:"StartTime"`
	EndTime     string            `json:"EndTime"`
	Coordinates types.Coordinates `json:"coordinates"`
}

type rawSlot struct {
	POI map[string]rawEntry `json:"POI"`
}

type rawRef struct {
	PlaceID string `json:"place_id"`
	Name    string `json:"name"`
}

type rawUnused struct {
	Attractions []rawRef `json:"Attractions"`
	Restaurants []rawRef `json:"Restaurants"`
}

// Parse validates raw and merges it with the supplied POIs, which are
// matched by place id. Entries with unknown place ids become minimal
// suggested POIs. Supplied POIs that the document does not place end up
// unused.
func (p Parser) Parse(raw string, food, attractions []types.POI) ParseResult {
	supplied := dedupe(append(append([]types.POI{}, food...), attractions...))

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return MalformedItinerary{Err: ErrEmptyItinerary, UnusedPOIs: supplied}
	}

	var doc map[string]json.RawMessage
	if err := strictUnmarshal([]byte(raw), &doc); err != nil {
		return MalformedItinerary{Err: fmt.Errorf("%w: %v", ErrMalformedItinerary, err), UnusedPOIs: supplied}
	}

	byKey := make(map[string]types.POI, len(supplied))
	for _, poi := range supplied {
		byKey[poi.Key()] = poi
	}

	var (
		placed  []ItineraryPOI
		demoted []string
		unused  rawUnused
	)
	for key, value := range doc {
		if key == unusedSection {
			if err := strictUnmarshal(value, &unused); err != nil {
				return MalformedItinerary{Err: fmt.Errorf("%w: unused section: %v", ErrMalformedItinerary, err), UnusedPOIs: supplied}
			}
			continue
		}
		day, err := parseDayKey(key)
		if err != nil {
			return MalformedItinerary{Err: err, UnusedPOIs: supplied}
		}
		var slots map[string]rawSlot
		if err := strictUnmarshal(value, &slots); err != nil {
			return MalformedItinerary{Err: fmt.Errorf("%w: %s: %v", ErrMalformedItinerary, key, err), UnusedPOIs: supplied}
		}
		for label, slot := range slots {
			for placeID, entry := range slot.POI {
				sched, ok := p.schedule(day, label, entry)
				if !ok {
					demoted = append(demoted, placeID)
					continue
				}
				placed = append(placed, ItineraryPOI{POI: resolve(byKey, placeID, entry), Schedule: sched})
			}
		}
	}

	sort.Slice(placed, func(i, j int) bool {
		a, _ := placed[i].Placement()
		b, _ := placed[j].Placement()
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return placed[i].Key() < placed[j].Key()
	})
	sort.Strings(demoted)

	used := make(map[string]struct{}, len(placed))
	itinerary := make([]ItineraryPOI, 0, len(placed))
	for _, it := range placed {
		if _, dup := used[it.Key()]; dup {
			continue
		}
		used[it.Key()] = struct{}{}
		itinerary = append(itinerary, it)
	}

	unusedPOIs := make([]types.POI, 0, len(supplied))
	for _, ref := range append(append([]rawRef{}, unused.Attractions...), unused.Restaurants...) {
		poi, ok := byKey[ref.PlaceID]
		if !ok {
			continue
		}
		if _, dup := used[ref.PlaceID]; dup {
			continue
		}
		used[ref.PlaceID] = struct{}{}
		unusedPOIs = append(unusedPOIs, poi)
	}
	for _, poi := range supplied {
		if _, ok := used[poi.Key()]; ok {
			continue
		}
		used[poi.Key()] = struct{}{}
		unusedPOIs = append(unusedPOIs, poi)
	}

	return ValidItinerary{ItineraryPOIs: itinerary, UnusedPOIs: unusedPOIs, Demoted: demoted}
}

func (p Parser) schedule(day int, label string, e rawEntry) (Scheduled, bool) {
	start, err := ParseClock(e.StartTime)
	if err != nil {
		return Scheduled{}, false
	}
	end, err := ParseClock(e.EndTime)
	if err != nil {
		return Scheduled{}, false
	}
	slot, ok := ParseTimeSlot(label)
	if !ok {
		slot = TimeSlotFor(start)
	}
	s := Scheduled{Day: day, Start: start, End: end, Slot: slot}
	if s.Validate(p.Days) != nil {
		return Scheduled{}, false
	}
	return s, true
}

func resolve(byKey map[string]types.POI, placeID string, e rawEntry) types.POI {
	if poi, ok := byKey[placeID]; ok {
		return poi
	}
	t := types.POIType(strings.ToLower(e.Type))
	switch t {
	case types.POITypeAttraction, types.POITypeRestaurant, types.POITypeHotel, types.POITypeCafe:
	default:
		t = types.POITypeAttraction
	}
	return types.POI{
		ID:          placeID,
		PlaceID:     placeID,
		Name:        e.Name,
		Coordinates: e.Coordinates,
		Type:        t,
	}
}

func dedupe(pois []types.POI) []types.POI {
	seen := make(map[string]struct{}, len(pois))
	out := make([]types.POI, 0, len(pois))
	for _, poi := range pois {
		if _, ok := seen[poi.Key()]; ok {
			continue
		}
		seen[poi.Key()] = struct{}{}
		out = append(out, poi)
	}
	return out
}

func parseDayKey(key string) (int, error) {
	n, ok := strings.CutPrefix(key, "Day ")
	if !ok {
		return 0, fmt.Errorf("%w: unexpected key %q", ErrMalformedItinerary, key)
	}
	day, err := strconv.Atoi(strings.TrimSpace(n))
	if err != nil || day < 1 {
		return 0, fmt.Errorf("%w: bad day key %q", ErrMalformedItinerary, key)
	}
	return day, nil
}

// ParseClock converts an H:MM or HH:MM string to minutes since midnight.
func ParseClock(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("bad time %q", s)
	}
	hours, err := strconv.Atoi(h)
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("bad hour in %q", s)
	}
	minutes, err := strconv.Atoi(m)
	if err != nil || len(m) != 2 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("bad minute in %q", s)
	}
	return hours*60 + minutes, nil
}

func strictUnmarshal(data []byte, v any) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return errors.New("unexpected null")
	}
	return json.Unmarshal(data, v)
}
