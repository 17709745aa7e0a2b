package timetable

import (
	"context"
	"sort"
	"strconv"
	"strings"
)

// Report is a downloadable tabular export: a header row plus data rows.
// Encoding (CSV, XLSX) is the transport layer's concern.
type Report struct {
	Name   string     `json:"name"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// BatchReport lists every student known to the ledger with their inferred
// batch.
func (svc *Service) BatchReport(ctx context.Context) (Report, error) {
	records, err := svc.repo.GetAllBusySlots(ctx)
	if err != nil {
		return Report{}, err
	}

	names := make(map[string]string)
	for _, rec := range records {
		names[rec.StudentID] = rec.StudentName
	}
	ids := make([]string, 0, len(names))
	for id := range names {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	report := Report{
		Name:   "batch",
		Header: []string{"id", "student_name", "batch"},
		Rows:   make([][]string, 0, len(ids)),
	}
	for _, id := range ids {
		report.Rows = append(report.Rows, []string{id, names[id], BatchForID(id)})
	}
	return report, nil
}

// AvailabilityReport renders the population availability for a day/slot
// window as a flat export.
func (svc *Service) AvailabilityReport(ctx context.Context, day Weekday, fromSlot, toSlot int) (Report, error) {
	pop, err := svc.PopulationAvailability(ctx, day, fromSlot, toSlot)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Name:   "availability",
		Header: []string{"id", "student_name", "status", "classes", "batch"},
		Rows:   make([][]string, 0, len(pop.Free)+len(pop.Busy)),
	}
	for _, s := range pop.Free {
		report.Rows = append(report.Rows, []string{s.ID, s.Name, "Available", "", s.Batch})
	}
	for _, s := range pop.Busy {
		classes := make([]string, 0, len(s.Runs))
		for _, run := range s.Runs {
			classes = append(classes, run.CourseCode+" ("+run.TimeSpan+")")
		}
		report.Rows = append(report.Rows, []string{s.ID, s.Name, "Busy", strings.Join(classes, "; "), s.Batch})
	}
	return report, nil
}

// CourseReport exports every ledger record with its parsed class-detail
// fields. The raw detail is preserved alongside; parse fallbacks surface as
// "Unknown" fields, never as errors.
func (svc *Service) CourseReport(ctx context.Context) (Report, error) {
	records, err := svc.repo.GetAllBusySlots(ctx)
	if err != nil {
		return Report{}, err
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].StudentID != records[j].StudentID {
			return records[i].StudentID < records[j].StudentID
		}
		if records[i].Day != records[j].Day {
			return weekdayIndex(records[i].Day) < weekdayIndex(records[j].Day)
		}
		return records[i].Slot < records[j].Slot
	})

	report := Report{
		Name:   "courses",
		Header: []string{"course_code", "component", "section", "room", "class_details", "id", "student_name", "day", "time_slot", "batch"},
		Rows:   make([][]string, 0, len(records)),
	}
	for _, rec := range records {
		detail := ParseClassDetail(rec.ClassDetails)
		report.Rows = append(report.Rows, []string{
			detail.CourseCode,
			detail.Component,
			detail.Section,
			detail.Room,
			detail.Raw,
			rec.StudentID,
			rec.StudentName,
			string(rec.Day),
			strconv.Itoa(rec.Slot),
			BatchForID(rec.StudentID),
		})
	}
	return report, nil
}

func weekdayIndex(day Weekday) int {
	for i, d := range Weekdays {
		if d == day {
			return i
		}
	}
	return len(Weekdays)
}
