package itinerary

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// Working window and placement duration, in minutes since midnight.
const (
	WindowStart       = 8 * 60
	WindowEnd         = 23 * 60
	PlacementDuration = 30

	afternoonStart = 12 * 60
	eveningStart   = 17 * 60
)

// TimeSlot is the part-of-day label shown for a scheduled item.
type TimeSlot string

const (
	Morning   TimeSlot = "Morning"
	Afternoon TimeSlot = "Afternoon"
	Evening   TimeSlot = "Evening"
	// Unused is the wire label of items that sit in the unused pool.
	Unused TimeSlot = "unused"
)

// TimeSlotFor derives the label from a start time.
func TimeSlotFor(start int) TimeSlot {
	switch {
	case start < afternoonStart:
		return Morning
	case start < eveningStart:
		return Afternoon
	default:
		return Evening
	}
}

// ParseTimeSlot accepts the three day-part labels.
func ParseTimeSlot(s string) (TimeSlot, bool) {
	switch TimeSlot(s) {
	case Morning, Afternoon, Evening:
		return TimeSlot(s), true
	}
	return "", false
}

var ErrInvalidSchedule = errors.New("invalid schedule")

// Schedule is either Scheduled or Unscheduled.
type Schedule interface {
	isSchedule()
}

// Scheduled places an item on a day between Start and End.
type Scheduled struct {
	Day   int
	Start int
	End   int
	Slot  TimeSlot
}

// Unscheduled marks an item that is not placed on any day.
type Unscheduled struct{}

func (Scheduled) isSchedule()   {}
func (Unscheduled) isSchedule() {}

// NewScheduled builds a Scheduled with the label derived from start.
func NewScheduled(day, start, end int) Scheduled {
	return Scheduled{Day: day, Start: start, End: end, Slot: TimeSlotFor(start)}
}

func (s Scheduled) Duration() int { return s.End - s.Start }

// Label returns the stored label or, when none is set, the derived one.
func (s Scheduled) Label() TimeSlot {
	if s.Slot == "" {
		return TimeSlotFor(s.Start)
	}
	return s.Slot
}

// Validate checks the placement against the working window and, when
// days > 0, the trip length.
func (s Scheduled) Validate(days int) error {
	if s.Start >= s.End {
		return fmt.Errorf("%w: start %d is not before end %d", ErrInvalidSchedule, s.Start, s.End)
	}
	if s.Start < WindowStart || s.End > WindowEnd {
		return fmt.Errorf("%w: %s-%s outside %s-%s", ErrInvalidSchedule,
			FormatClock(s.Start), FormatClock(s.End), FormatClock(WindowStart), FormatClock(WindowEnd))
	}
	if s.Day < 1 || (days > 0 && s.Day > days) {
		return fmt.Errorf("%w: day %d outside 1..%d", ErrInvalidSchedule, s.Day, days)
	}
	return nil
}

// Overlaps reports whether two placements on the same day intersect.
func (s Scheduled) Overlaps(o Scheduled) bool {
	return s.Day == o.Day && s.Start < o.End && o.Start < s.End
}

// FormatClock renders minutes since midnight as H:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%d:%02d", minutes/60, minutes%60)
}

// ItineraryPOI is a POI with its placement in the trip.
type ItineraryPOI struct {
	types.POI
	Schedule Schedule
}

// Placement returns the schedule when the item is placed on a day.
func (p ItineraryPOI) Placement() (Scheduled, bool) {
	s, ok := p.Schedule.(Scheduled)
	return s, ok
}

// ToUpdate renders the persisted scheduling record for the given backend point.
func (p ItineraryPOI) ToUpdate(pointID string) types.ItineraryPOIUpdate {
	w := toWire(p.Schedule)
	return types.ItineraryPOIUpdate{
		PointID:   pointID,
		StartTime: w.StartTime,
		EndTime:   w.EndTime,
		TimeSlot:  w.TimeSlot,
		Day:       w.Day,
		Duration:  int(w.Duration),
	}
}

// ScheduleFromUpdate converts a persisted record back to a Schedule.
func ScheduleFromUpdate(u types.ItineraryPOIUpdate) Schedule {
	return fromWire(wireSchedule{
		Day: u.Day, TimeSlot: u.TimeSlot, StartTime: u.StartTime, EndTime: u.EndTime,
	})
}

type wireSchedule struct {
	Day       int     `json:"day"`
	TimeSlot  string  `json:"timeSlot"`
	StartTime int     `json:"StartTime"`
	EndTime   int     `json:"EndTime"`
	Duration  float64 `json:"duration"`
}

func toWire(s Schedule) wireSchedule {
	if sc, ok := s.(Scheduled); ok {
		return wireSchedule{
			Day:       sc.Day,
			TimeSlot:  string(sc.Label()),
			StartTime: sc.Start,
			EndTime:   sc.End,
			Duration:  float64(sc.Duration()),
		}
	}
	return wireSchedule{Day: -1, TimeSlot: string(Unused), StartTime: -1, EndTime: -1}
}

func fromWire(w wireSchedule) Schedule {
	if w.Day < 1 || w.StartTime < 0 || w.EndTime < 0 || TimeSlot(w.TimeSlot) == Unused {
		return Unscheduled{}
	}
	slot, ok := ParseTimeSlot(w.TimeSlot)
	if !ok {
		slot = TimeSlotFor(w.StartTime)
	}
	return Scheduled{Day: w.Day, Start: w.StartTime, End: w.EndTime, Slot: slot}
}

type wireItineraryPOI struct {
	types.POI
	wireSchedule
}

func (p ItineraryPOI) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireItineraryPOI{POI: p.POI, wireSchedule: toWire(p.Schedule)})
}

func (p *ItineraryPOI) UnmarshalJSON(data []byte) error {
	w := wireItineraryPOI{wireSchedule: wireSchedule{Day: -1, StartTime: -1, EndTime: -1}}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	p.POI = w.POI
	p.Schedule = fromWire(w.wireSchedule)
	return nil
}
