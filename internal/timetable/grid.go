package timetable

// Cell is the occupancy ledger of one (day, slot) pair.
type Cell struct {
	rooms    map[string]struct{}
	teachers map[string]struct{}
	// batch id -> occupying lab groups; "" marks a whole-batch session
	batches map[string]map[string]struct{}
}

func newCell() Cell {
	return Cell{
		rooms:    make(map[string]struct{}),
		teachers: make(map[string]struct{}),
		batches:  make(map[string]map[string]struct{}),
	}
}

// HasRoom reports whether the room is booked in this cell.
func (c *Cell) HasRoom(roomID string) bool {
	_, ok := c.rooms[roomID]
	return ok
}

// HasTeacher reports whether the teacher is booked in this cell.
func (c *Cell) HasTeacher(teacherID string) bool {
	_, ok := c.teachers[teacherID]
	return ok
}

// HasBatch reports whether any unit of the batch is booked in this cell.
func (c *Cell) HasBatch(batchID string) bool {
	return len(c.batches[batchID]) > 0
}

// Empty reports whether nothing is booked in this cell.
func (c *Cell) Empty() bool {
	return len(c.rooms) == 0 && len(c.teachers) == 0 && len(c.batches) == 0
}

// blocksBatch applies the batch policy for a unit of batchID/group.
func (c *Cell) blocksBatch(batchID, group string, policy BatchPolicy) bool {
	groups := c.batches[batchID]
	if len(groups) == 0 {
		return false
	}
	if policy != ParallelLabGroups || group == "" {
		return true
	}
	if _, whole := groups[""]; whole {
		return true
	}
	_, same := groups[group]
	return same
}

func (c *Cell) add(teacherID, batchID, group, roomID string) {
	c.teachers[teacherID] = struct{}{}
	c.rooms[roomID] = struct{}{}
	groups, ok := c.batches[batchID]
	if !ok {
		groups = make(map[string]struct{})
		c.batches[batchID] = groups
	}
	groups[group] = struct{}{}
}

// Grid is the per-run occupancy state indexed by (day, slot).
type Grid struct {
	days  int
	slots int
	cells []Cell
}

// NewGrid allocates an empty grid.
func NewGrid(days, slots int) *Grid {
	cells := make([]Cell, days*slots)
	for i := range cells {
		cells[i] = newCell()
	}
	return &Grid{days: days, slots: slots, cells: cells}
}

// Days returns the number of days in the grid.
func (g *Grid) Days() int { return g.days }

// Slots returns the number of time slots per day, lunch included.
func (g *Grid) Slots() int { return g.slots }

// Cell returns the ledger at (day, slot), or nil when out of range.
func (g *Grid) Cell(day, slot int) *Cell {
	if day < 0 || day >= g.days || slot < 0 || slot >= g.slots {
		return nil
	}
	return &g.cells[day*g.slots+slot]
}

// Commit books the unit's teacher, batch and room into the cell.
// It is the only way the grid changes.
func (g *Grid) Commit(day, slot int, unit SessionUnit, roomID string) {
	cell := g.Cell(day, slot)
	if cell == nil {
		panic("timetable: commit outside grid")
	}
	cell.add(unit.Teacher.ID, unit.Batch.ID, unit.Group, roomID)
}
