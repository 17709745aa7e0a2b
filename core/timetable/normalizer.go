package timetable

import (
	"fmt"

	"github.com/trezcool/ratiba/core"
)

// FreeMarker is the literal cell value marking a free slot in uploaded grids.
const FreeMarker = "-"

// Grid is the transient upload input: one row per weekday, first column the
// weekday text, columns 2..12 the per-slot cells. Discarded after
// normalization.
type Grid [][]string

// minColumns is weekday + one column per slot.
const minColumns = 1 + NumSlots

// Normalize converts a raw grid into the flat busy-slot ledger for one
// student. Pure; the caller owns persistence. A cell is busy unless it is
// empty or exactly the free marker; busy cells emit one record carrying the
// slot's 1-based ordinal and the cell text trimmed of surrounding whitespace.
func Normalize(grid Grid, studentID, studentName string) ([]BusySlot, error) {
	if studentID == "" {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "this field is required"})
	}
	if studentName == "" {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "student_name", Error: "this field is required"})
	}

	// guard against silently-wrong output from misshaped uploads
	for i, row := range grid {
		if len(row) < minColumns {
			return nil, core.NewValidationError(fmt.Errorf(
				"row %d has %d columns; expected at least %d (weekday followed by %d slot columns)",
				i+1, len(row), minColumns, NumSlots,
			))
		}
	}

	records := make([]BusySlot, 0, len(grid)*NumSlots)
	for _, row := range grid {
		day := Weekday(core.CleanString(row[0]))
		for slot := 1; slot <= NumSlots; slot++ {
			cell := row[slot]
			if cell == FreeMarker {
				continue
			}
			detail := core.CleanString(cell)
			if detail == "" {
				continue
			}
			records = append(records, BusySlot{
				StudentID:    studentID,
				StudentName:  studentName,
				Day:          day,
				Slot:         slot,
				ClassDetails: detail,
			})
		}
	}
	return records, nil
}
