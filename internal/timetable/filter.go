package timetable

import "github.com/noah-isme/timetable-api/internal/models"

// Filter decides hard feasibility of a cell for a unit.
type Filter struct {
	grid  *Grid
	rooms []models.Room
	opts  Options
}

// NewFilter builds a filter over the room reference list, kept in its given order.
func NewFilter(grid *Grid, rooms []models.Room, opts Options) *Filter {
	return &Filter{grid: grid, rooms: rooms, opts: opts}
}

// SlotAvailable checks teacher and batch conflicts plus teacher availability.
func (f *Filter) SlotAvailable(unit SessionUnit, day, slot int) bool {
	if f.opts.isLunch(slot) {
		return false
	}
	cell := f.grid.Cell(day, slot)
	if cell == nil {
		return false
	}
	if cell.HasTeacher(unit.Teacher.ID) {
		return false
	}
	if cell.blocksBatch(unit.Batch.ID, unit.Group, f.opts.BatchPolicy) {
		return false
	}
	return unit.AvailableOn(f.opts.Days[day])
}

// RoomEligible checks capacity, room kind and room occupancy.
func (f *Filter) RoomEligible(unit SessionUnit, room models.Room, cell *Cell) bool {
	if room.Capacity < unit.GroupSize {
		return false
	}
	if unit.IsLab && room.Kind != models.RoomKindLab {
		return false
	}
	return !cell.HasRoom(room.ID)
}

// EligibleRooms returns rooms usable by the unit in the cell, in reference order.
// A nil result means the cell is infeasible.
func (f *Filter) EligibleRooms(unit SessionUnit, day, slot int) []models.Room {
	if !f.SlotAvailable(unit, day, slot) {
		return nil
	}
	cell := f.grid.Cell(day, slot)
	var eligible []models.Room
	for _, room := range f.rooms {
		if f.RoomEligible(unit, room, cell) {
			eligible = append(eligible, room)
		}
	}
	return eligible
}
