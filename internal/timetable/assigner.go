package timetable

import "github.com/noah-isme/timetable-api/internal/models"

// Assignment is a committed placement of one unit.
type Assignment struct {
	Unit SessionUnit
	Day  int
	Slot int
	Room models.Room
	Cost CostBreakdown
}

// Assigner searches the grid for the cheapest feasible cell of each unit.
type Assigner struct {
	grid      *Grid
	filter    *Filter
	evaluator *Evaluator
}

// NewAssigner wires an assigner over a fresh grid.
func NewAssigner(grid *Grid, rooms []models.Room, opts Options) *Assigner {
	return &Assigner{
		grid:      grid,
		filter:    NewFilter(grid, rooms, opts),
		evaluator: NewEvaluator(grid, opts),
	}
}

// Best scans days then slots in canonical order and returns the lowest-cost
// feasible cell. Ties keep the first cell seen. ok is false when nothing fits.
func (a *Assigner) Best(unit SessionUnit) (best Assignment, ok bool) {
	minCost := 0
	for day := 0; day < a.grid.Days(); day++ {
		for slot := 0; slot < a.grid.Slots(); slot++ {
			rooms := a.filter.EligibleRooms(unit, day, slot)
			if len(rooms) == 0 {
				continue
			}
			cost := a.evaluator.Evaluate(unit, day, slot, len(rooms))
			if !ok || cost.Total() < minCost {
				minCost = cost.Total()
				best = Assignment{Unit: unit, Day: day, Slot: slot, Room: rooms[0], Cost: cost}
				ok = true
			}
		}
	}
	return best, ok
}

// Place commits the best cell for unit, if any.
func (a *Assigner) Place(unit SessionUnit) (Assignment, bool) {
	best, ok := a.Best(unit)
	if !ok {
		return Assignment{}, false
	}
	a.grid.Commit(best.Day, best.Slot, unit, best.Room.ID)
	return best, true
}
