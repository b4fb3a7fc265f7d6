package itinerary

import (
	"errors"
	"sort"
)

var ErrNoFreeSlot = errors.New("no free slot available")

// Slot is a candidate placement returned by the finder.
type Slot struct {
	StartTime int      `json:"startTime"`
	EndTime   int      `json:"endTime"`
	TimeSlot  TimeSlot `json:"timeSlot"`
}

// On returns the slot as a placement on the given day.
func (s Slot) On(day int) Scheduled {
	return Scheduled{Day: day, Start: s.StartTime, End: s.EndTime, Slot: s.TimeSlot}
}

// SlotFinder searches a day for the earliest gap of Duration minutes
// inside [Start, End].
type SlotFinder struct {
	Start    int
	End      int
	Duration int
}

// DefaultSlotFinder uses the 08:00-23:00 window and 30 minute placements.
func DefaultSlotFinder() SlotFinder {
	return SlotFinder{Start: WindowStart, End: WindowEnd, Duration: PlacementDuration}
}

type interval struct{ start, end int }

// FindFreeSlot returns the earliest free slot on day. Items on other days
// and unscheduled items are ignored; items is not modified. Bookings are
// assumed not to overlap.
func (f SlotFinder) FindFreeSlot(day int, items []ItineraryPOI) (Slot, error) {
	busy := make([]interval, 0, len(items))
	for _, it := range items {
		s, ok := it.Placement()
		if !ok || s.Day != day {
			continue
		}
		busy = append(busy, interval{start: s.Start, end: s.End})
	}
	sort.SliceStable(busy, func(i, j int) bool { return busy[i].start < busy[j].start })

	previousEnd := f.Start
	for _, b := range busy {
		if b.start-previousEnd >= f.Duration {
			return f.slotAt(previousEnd), nil
		}
		previousEnd = max(previousEnd, b.end)
	}
	if f.End-previousEnd >= f.Duration {
		return f.slotAt(previousEnd), nil
	}
	return Slot{}, ErrNoFreeSlot
}

func (f SlotFinder) slotAt(start int) Slot {
	return Slot{StartTime: start, EndTime: start + f.Duration, TimeSlot: TimeSlotFor(start)}
}

// FindFreeSlot runs the default finder.
func FindFreeSlot(day int, items []ItineraryPOI) (Slot, error) {
	return DefaultSlotFinder().FindFreeSlot(day, items)
}
