package timetable

import (
	"fmt"
	"time"
)

// DayTime is a wall-clock time of day, minute resolution.
type DayTime struct {
	Hour   int
	Minute int
}

func (t DayTime) Minutes() int { return t.Hour*60 + t.Minute }

// Before reports whether t is strictly before other.
func (t DayTime) Before(other DayTime) bool { return t.Minutes() < other.Minutes() }

func (t DayTime) String() string {
	return time.Date(0, 1, 1, t.Hour, t.Minute, 0, 0, time.UTC).Format("3:04 PM")
}

var dayTimeLayouts = []string{"15:04", "3:04 PM", "3:04PM"}

// ParseDayTime parses a wall-clock time in 24h ("15:04") or 12h ("3:04 PM") form.
func ParseDayTime(s string) (DayTime, error) {
	for _, layout := range dayTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DayTime{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return DayTime{}, fmt.Errorf("invalid time %q", s)
}

// Slot is one of the fixed daily time intervals.
type Slot struct {
	ID    int
	Start DayTime
	End   DayTime
}

// Overlaps applies the strict overlap predicate: both boundaries exclusive at
// equality, so a slot ending exactly at `start` (or starting at `end`) does
// not overlap.
func (s Slot) Overlaps(start, end DayTime) bool {
	return s.Start.Before(end) && start.Before(s.End)
}

func (s Slot) TimeRange() string {
	return s.Start.String() + " - " + s.End.String()
}

// NumSlots is the number of daily time slots.
const NumSlots = 11

// Slots is the fixed slot table. Slots are contiguous in ordinal but
// irregular in duration, with uncovered gaps (e.g. 08:50-09:20).
var Slots = [NumSlots]Slot{
	{1, DayTime{7, 10}, DayTime{8, 0}},
	{2, DayTime{8, 0}, DayTime{8, 50}},
	{3, DayTime{9, 20}, DayTime{10, 10}},
	{4, DayTime{10, 10}, DayTime{11, 0}},
	{5, DayTime{11, 10}, DayTime{12, 0}},
	{6, DayTime{12, 0}, DayTime{12, 50}},
	{7, DayTime{13, 0}, DayTime{13, 50}},
	{8, DayTime{13, 50}, DayTime{14, 40}},
	{9, DayTime{14, 50}, DayTime{15, 40}},
	{10, DayTime{15, 50}, DayTime{16, 40}},
	{11, DayTime{16, 40}, DayTime{17, 30}},
}

// SlotByID returns the slot with the given 1-based ordinal.
func SlotByID(id int) (Slot, bool) {
	if id < 1 || id > NumSlots {
		return Slot{}, false
	}
	return Slots[id-1], true
}

// OverlappingSlots returns the ids of all slots strictly overlapping the
// [start, end) window, in ascending order.
func OverlappingSlots(start, end DayTime) []int {
	ids := make([]int, 0, NumSlots)
	for _, s := range Slots {
		if s.Overlaps(start, end) {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// SlotSpan renders the wall-clock range covered from the start of slot first
// to the end of slot last.
func SlotSpan(first, last int) string {
	f, ok := SlotByID(first)
	if !ok {
		return "Unknown Time"
	}
	l, ok := SlotByID(last)
	if !ok {
		return "Unknown Time"
	}
	return f.Start.String() + " - " + l.End.String()
}
