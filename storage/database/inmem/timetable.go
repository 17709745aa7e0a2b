package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/ratiba/core/timetable"
)

type timetableRepository struct {
	db *busySlotTable
}

func NewTimetableRepository(db *DB) timetable.Repository {
	return &timetableRepository{db: db.busySlots}
}

func (repo *timetableRepository) DeleteBusySlots(ctx context.Context, studentID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.table, studentID)
	return nil
}

func (repo *timetableRepository) InsertBusySlots(ctx context.Context, records []timetable.BusySlot) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, rec := range records {
		repo.db.table[rec.StudentID] = append(repo.db.table[rec.StudentID], rec)
	}
	return nil
}

func (repo *timetableRepository) GetBusySlots(ctx context.Context, studentID string) ([]timetable.BusySlot, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	records := make([]timetable.BusySlot, len(repo.db.table[studentID]))
	copy(records, repo.db.table[studentID])
	sortBusySlots(records)
	return records, nil
}

func (repo *timetableRepository) GetAllBusySlots(ctx context.Context) ([]timetable.BusySlot, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var records []timetable.BusySlot
	for _, recs := range repo.db.table {
		records = append(records, recs...)
	}
	sortBusySlots(records)
	return records, nil
}

func sortBusySlots(records []timetable.BusySlot) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].StudentID != records[j].StudentID {
			return records[i].StudentID < records[j].StudentID
		}
		if records[i].Day != records[j].Day {
			return records[i].Day < records[j].Day
		}
		return records[i].Slot < records[j].Slot
	})
}
