package timetable

// Weekday is one of the fixed 6-value week used by timetables.
type Weekday string

const (
	Mon Weekday = "Mon"
	Tue Weekday = "Tue"
	Wed Weekday = "Wed"
	Thu Weekday = "Thu"
	Fri Weekday = "Fri"
	Sat Weekday = "Sat"
)

// Weekdays is the fixed reporting order.
var Weekdays = [6]Weekday{Mon, Tue, Wed, Thu, Fri, Sat}

// ValidWeekday reports whether day is in the fixed 6-value set.
func ValidWeekday(day Weekday) bool {
	for _, d := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// BusySlot is the persisted unit of truth: one (student, weekday, slot)
// occupation with its free-text class detail. At most one record exists per
// (StudentID, Day, Slot); re-uploads replace a student's whole set.
type BusySlot struct {
	StudentID    string  `json:"id"`
	StudentName  string  `json:"student_name"`
	Day          Weekday `json:"day"`
	Slot         int     `json:"time_slot"`
	ClassDetails string  `json:"class_details"`
}

// TimeRange renders the slot's wall-clock interval.
func (b BusySlot) TimeRange() string {
	s, ok := SlotByID(b.Slot)
	if !ok {
		return "Unknown Time"
	}
	return s.TimeRange()
}

// Batch classification: student ids map to a cohort by fixed prefix.
var batchPrefixes = []struct {
	prefix string
	batch  string
}{
	{"21000", "Y21"},
	{"22000", "Y22"},
	{"23000", "Y23"},
	{"24000", "Y24"},
}

const UnknownBatch = "Unknown"

// BatchForID classifies a student id by prefix; ids matching no known prefix
// classify as UnknownBatch.
func BatchForID(id string) string {
	for _, bp := range batchPrefixes {
		if len(id) >= len(bp.prefix) && id[:len(bp.prefix)] == bp.prefix {
			return bp.batch
		}
	}
	return UnknownBatch
}
