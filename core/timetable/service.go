package timetable

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/trezcool/ratiba/core"
)

var (
	// errors
	ErrNoSchedule = errors.New("no schedule found for this student")
)

// UploadIncompleteError signals the partial-failure state of a replace-upload:
// prior records were deleted but the new set could not be inserted, leaving
// the student with no schedule. Distinct from a generic failure so callers can
// tell the user their previous data is gone.
type UploadIncompleteError struct {
	Err error
}

func (e *UploadIncompleteError) Error() string {
	return "upload failed, prior data removed: " + e.Err.Error()
}

func (e *UploadIncompleteError) Cause() error  { return e.Err }
func (e *UploadIncompleteError) Unwrap() error { return e.Err }

type (
	Repository interface {
		// DeleteBusySlots removes all records for the student; idempotent.
		DeleteBusySlots(ctx context.Context, studentID string) error
		InsertBusySlots(ctx context.Context, records []BusySlot) error
		GetBusySlots(ctx context.Context, studentID string) ([]BusySlot, error)
		GetAllBusySlots(ctx context.Context) ([]BusySlot, error)
	}

	// ServiceInterface is the timetable service contract consumed by APIs.
	ServiceInterface interface {
		Upload(ctx context.Context, grid Grid, studentID, studentName string) ([]BusySlot, error)
		RangeAvailability(ctx context.Context, studentID string, day Weekday, start, end DayTime) (RangeResult, error)
		FullSchedule(ctx context.Context, studentID string) (ScheduleResult, error)
		PopulationAvailability(ctx context.Context, day Weekday, fromSlot, toSlot int) (PopulationReport, error)
		BatchReport(ctx context.Context) (Report, error)
		AvailabilityReport(ctx context.Context, day Weekday, fromSlot, toSlot int) (Report, error)
		CourseReport(ctx context.Context) (Report, error)
	}

	Service struct {
		repo Repository

		// per-student upload serialization; concurrent delete-then-insert
		// sequences for the same id would otherwise interleave.
		mu      sync.Mutex
		uploads map[string]*sync.Mutex
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{
		repo:    repo,
		uploads: make(map[string]*sync.Mutex),
	}
}

func (svc *Service) uploadLock(studentID string) *sync.Mutex {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	lock, ok := svc.uploads[studentID]
	if !ok {
		lock = new(sync.Mutex)
		svc.uploads[studentID] = lock
	}
	return lock
}

// Upload normalizes the grid and replaces the student's whole ledger:
// delete-then-insert as one logical operation, serialized per student id.
func (svc *Service) Upload(ctx context.Context, grid Grid, studentID, studentName string) ([]BusySlot, error) {
	studentID = core.CleanString(studentID)
	studentName = core.CleanString(studentName)

	records, err := Normalize(grid, studentID, studentName)
	if err != nil {
		return nil, err
	}

	lock := svc.uploadLock(studentID)
	lock.Lock()
	defer lock.Unlock()

	if err := svc.repo.DeleteBusySlots(ctx, studentID); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return records, nil
	}
	if err := svc.repo.InsertBusySlots(ctx, records); err != nil {
		return nil, &UploadIncompleteError{Err: err}
	}
	return records, nil
}

// RangeResult is a student's busy records overlapping a queried time window.
// An empty Classes list with a non-empty ledger means leisure time.
type RangeResult struct {
	StudentID   string     `json:"id"`
	StudentName string     `json:"student_name"`
	Day         Weekday    `json:"day"`
	Classes     []BusySlot `json:"classes"`
}

func (r RangeResult) IsFree() bool { return len(r.Classes) == 0 }

// RangeAvailability answers what a student is doing between start and end on
// the given day. A student with no ledger at all yields ErrNoSchedule, which
// is a different condition from being free during the window.
func (svc *Service) RangeAvailability(ctx context.Context, studentID string, day Weekday, start, end DayTime) (RangeResult, error) {
	if !ValidWeekday(day) {
		return RangeResult{}, core.NewValidationError(nil, core.FieldError{Field: "day", Error: "invalid weekday"})
	}
	if !start.Before(end) {
		return RangeResult{}, core.NewValidationError(nil, core.FieldError{Field: "end", Error: "end time must be after start time"})
	}

	records, err := svc.repo.GetBusySlots(ctx, studentID)
	if err != nil {
		return RangeResult{}, err
	}
	if len(records) == 0 {
		return RangeResult{}, ErrNoSchedule
	}

	overlapping := make(map[int]bool, NumSlots)
	for _, id := range OverlappingSlots(start, end) {
		overlapping[id] = true
	}

	res := RangeResult{
		StudentID:   studentID,
		StudentName: records[0].StudentName,
		Day:         day,
		Classes:     make([]BusySlot, 0, len(records)),
	}
	for _, rec := range records {
		if rec.Day == day && overlapping[rec.Slot] {
			res.Classes = append(res.Classes, rec)
		}
	}
	sort.Slice(res.Classes, func(i, j int) bool { return res.Classes[i].Slot < res.Classes[j].Slot })
	return res, nil
}

type (
	// DaySchedule lists a single weekday's classes; empty Classes means
	// "no class on that day" and is always reported, never omitted.
	DaySchedule struct {
		Day     Weekday    `json:"day"`
		Classes []BusySlot `json:"classes"`
	}

	ScheduleResult struct {
		StudentID   string        `json:"id"`
		StudentName string        `json:"student_name"`
		Days        []DaySchedule `json:"days"`
	}
)

// FullSchedule returns all of a student's records grouped by weekday in the
// fixed 6-day order, each day's classes ordered by ascending slot.
func (svc *Service) FullSchedule(ctx context.Context, studentID string) (ScheduleResult, error) {
	records, err := svc.repo.GetBusySlots(ctx, studentID)
	if err != nil {
		return ScheduleResult{}, err
	}
	if len(records) == 0 {
		return ScheduleResult{}, ErrNoSchedule
	}

	byDay := make(map[Weekday][]BusySlot, len(Weekdays))
	for _, rec := range records {
		byDay[rec.Day] = append(byDay[rec.Day], rec)
	}

	res := ScheduleResult{
		StudentID:   studentID,
		StudentName: records[0].StudentName,
		Days:        make([]DaySchedule, 0, len(Weekdays)),
	}
	for _, day := range Weekdays {
		classes := byDay[day]
		sort.Slice(classes, func(i, j int) bool { return classes[i].Slot < classes[j].Slot })
		if classes == nil {
			classes = []BusySlot{}
		}
		res.Days = append(res.Days, DaySchedule{Day: day, Classes: classes})
	}
	return res, nil
}

type (
	StudentInfo struct {
		ID    string `json:"id"`
		Name  string `json:"student_name"`
		Batch string `json:"batch"`
	}

	// Run is a consolidated stretch of adjacent slots sharing the same parsed
	// course code and room, rendered as a single time-span entry.
	Run struct {
		FirstSlot  int    `json:"first_slot"`
		LastSlot   int    `json:"last_slot"`
		CourseCode string `json:"course_code"`
		Room       string `json:"room"`
		TimeSpan   string `json:"time_span"`
	}

	BusyStudent struct {
		StudentInfo
		Runs []Run `json:"runs"`
	}

	PopulationReport struct {
		Day      Weekday       `json:"day"`
		FromSlot int           `json:"from_slot"`
		ToSlot   int           `json:"to_slot"`
		Free     []StudentInfo `json:"free"`
		Busy     []BusyStudent `json:"busy"`
	}
)

// PopulationAvailability partitions every student present in the ledger into
// fully available vs partially available for the day/slot window. Students
// with no ledger at all are indistinguishable from "never uploaded" and are
// not reported.
func (svc *Service) PopulationAvailability(ctx context.Context, day Weekday, fromSlot, toSlot int) (PopulationReport, error) {
	if !ValidWeekday(day) {
		return PopulationReport{}, core.NewValidationError(nil, core.FieldError{Field: "day", Error: "invalid weekday"})
	}
	if fromSlot < 1 || toSlot > NumSlots || fromSlot > toSlot {
		return PopulationReport{}, core.NewValidationError(nil, core.FieldError{Field: "from_slot", Error: "slot window must satisfy 1 <= from <= to <= 11"})
	}

	records, err := svc.repo.GetAllBusySlots(ctx)
	if err != nil {
		return PopulationReport{}, err
	}

	names := make(map[string]string)
	matching := make(map[string][]BusySlot)
	for _, rec := range records {
		names[rec.StudentID] = rec.StudentName
		if rec.Day == day && rec.Slot >= fromSlot && rec.Slot <= toSlot {
			matching[rec.StudentID] = append(matching[rec.StudentID], rec)
		}
	}

	report := PopulationReport{
		Day:      day,
		FromSlot: fromSlot,
		ToSlot:   toSlot,
		Free:     make([]StudentInfo, 0, len(names)),
		Busy:     make([]BusyStudent, 0, len(names)),
	}
	for id, name := range names {
		info := StudentInfo{ID: id, Name: name, Batch: BatchForID(id)}
		if recs := matching[id]; len(recs) == 0 {
			report.Free = append(report.Free, info)
		} else {
			report.Busy = append(report.Busy, BusyStudent{StudentInfo: info, Runs: Consolidate(recs)})
		}
	}
	sort.Slice(report.Free, func(i, j int) bool { return report.Free[i].ID < report.Free[j].ID })
	sort.Slice(report.Busy, func(i, j int) bool { return report.Busy[i].ID < report.Busy[j].ID })
	return report, nil
}

// Consolidate sorts records by slot id and greedily merges immediately
// adjacent records (slot gap of exactly 1) sharing the same parsed course
// code and room into single runs.
func Consolidate(records []BusySlot) []Run {
	if len(records) == 0 {
		return []Run{}
	}
	sorted := make([]BusySlot, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Slot < sorted[j].Slot })

	runs := make([]Run, 0, len(sorted))
	curr := newRun(sorted[0])
	for _, rec := range sorted[1:] {
		detail := ParseClassDetail(rec.ClassDetails)
		if rec.Slot == curr.LastSlot+1 && detail.CourseCode == curr.CourseCode && detail.Room == curr.Room {
			curr.LastSlot = rec.Slot
			continue
		}
		runs = append(runs, finishRun(curr))
		curr = newRun(rec)
	}
	runs = append(runs, finishRun(curr))
	return runs
}

func newRun(rec BusySlot) Run {
	detail := ParseClassDetail(rec.ClassDetails)
	return Run{
		FirstSlot:  rec.Slot,
		LastSlot:   rec.Slot,
		CourseCode: detail.CourseCode,
		Room:       detail.Room,
	}
}

func finishRun(r Run) Run {
	r.TimeSpan = SlotSpan(r.FirstSlot, r.LastSlot)
	return r
}
