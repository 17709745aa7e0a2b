package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/timetable"
)

type busySlotRow struct {
	StudentID    string `db:"student_id"`
	StudentName  string `db:"student_name"`
	Day          string `db:"day"`
	TimeSlot     int    `db:"time_slot"`
	ClassDetails string `db:"class_details"`
}

func (r busySlotRow) validate() error {
	if r.StudentID == "" || r.Day == "" || r.TimeSlot < 1 || r.TimeSlot > timetable.NumSlots {
		return errors.Errorf("malformed busy slot row: student_id=%q day=%q time_slot=%d", r.StudentID, r.Day, r.TimeSlot)
	}
	return nil
}

func (r busySlotRow) toBusySlot() timetable.BusySlot {
	return timetable.BusySlot{
		StudentID:    r.StudentID,
		StudentName:  r.StudentName,
		Day:          timetable.Weekday(r.Day),
		Slot:         r.TimeSlot,
		ClassDetails: r.ClassDetails,
	}
}

func toBusySlotRow(rec timetable.BusySlot) busySlotRow {
	return busySlotRow{
		StudentID:    rec.StudentID,
		StudentName:  rec.StudentName,
		Day:          string(rec.Day),
		TimeSlot:     rec.Slot,
		ClassDetails: rec.ClassDetails,
	}
}

type TimetableRepository struct {
	db *sqlx.DB
}

var _ timetable.Repository = (*TimetableRepository)(nil) // interface compliance check

func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (repo TimetableRepository) DeleteBusySlots(ctx context.Context, studentID string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM busy_slot WHERE student_id = $1`, studentID)
	return errors.Wrap(err, "deleting busy slots")
}

func (repo TimetableRepository) InsertBusySlots(ctx context.Context, records []timetable.BusySlot) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]busySlotRow, 0, len(records))
	for _, rec := range records {
		row := toBusySlotRow(rec)
		if err := row.validate(); err != nil {
			return err
		}
		rows = append(rows, row)
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO busy_slot (student_id, student_name, day, time_slot, class_details)
		VALUES (:student_id, :student_name, :day, :time_slot, :class_details)`, rows)
	return errors.Wrap(err, "inserting busy slots")
}

func (repo TimetableRepository) GetBusySlots(ctx context.Context, studentID string) ([]timetable.BusySlot, error) {
	return repo.query(ctx, `SELECT * FROM busy_slot WHERE student_id = $1 ORDER BY student_id, day, time_slot`, studentID)
}

func (repo TimetableRepository) GetAllBusySlots(ctx context.Context) ([]timetable.BusySlot, error) {
	return repo.query(ctx, `SELECT * FROM busy_slot ORDER BY student_id, day, time_slot`)
}

func (repo TimetableRepository) query(ctx context.Context, query string, args ...interface{}) ([]timetable.BusySlot, error) {
	var rows []busySlotRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying busy slots")
	}
	records := make([]timetable.BusySlot, 0, len(rows))
	for _, row := range rows {
		if err := row.validate(); err != nil {
			return nil, err
		}
		records = append(records, row.toBusySlot())
	}
	return records, nil
}
