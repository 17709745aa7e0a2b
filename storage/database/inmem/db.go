// Package inmemdb provides in-memory repository implementations,
// used by tests and local development.
package inmemdb

import (
	"sync"

	"github.com/trezcool/ratiba/core/timetable"
	"github.com/trezcool/ratiba/core/user"
)

type userTable struct {
	mutex sync.RWMutex
	table map[string]*user.User // keyed by user ID
}

type busySlotTable struct {
	mutex sync.RWMutex
	table map[string][]timetable.BusySlot // keyed by student ID
}

type DB struct {
	user      *userTable
	busySlots *busySlotTable
}

func NewDB() *DB {
	return &DB{
		user:      &userTable{table: make(map[string]*user.User)},
		busySlots: &busySlotTable{table: make(map[string][]timetable.BusySlot)},
	}
}
