package timetable

// CostBreakdown itemises the soft cost of placing a unit in a cell.
type CostBreakdown struct {
	Base            int `json:"base"`
	Continuity      int `json:"continuity"`
	UndesirableTime int `json:"undesirableTime"`
	LateDayGap      int `json:"lateDayGap"`
	ScarceResource  int `json:"scarceResource"`
}

// Total sums every component.
func (b CostBreakdown) Total() int {
	return b.Base + b.Continuity + b.UndesirableTime + b.LateDayGap + b.ScarceResource
}

// Evaluator scores feasible cells against the current grid.
type Evaluator struct {
	grid *Grid
	opts Options
}

// NewEvaluator builds an evaluator reading from grid.
func NewEvaluator(grid *Grid, opts Options) *Evaluator {
	return &Evaluator{grid: grid, opts: opts}
}

// Evaluate computes the cost of the cell; eligibleRooms is the size of the filter's room list.
func (e *Evaluator) Evaluate(unit SessionUnit, day, slot, eligibleRooms int) CostBreakdown {
	w := e.opts.Weights
	cost := CostBreakdown{Base: w.Base}

	teacherRun, batchRun := e.precedingRun(unit, day, slot)
	if window := e.opts.ContinuityWindow; window > 0 {
		if teacherRun == window {
			cost.Continuity += w.ContinuousClass
		}
		if batchRun == window {
			cost.Continuity += w.ContinuousClass
		}
	}

	if slot == e.opts.EarlySlotIndex || slot >= e.opts.LateSlotFrom {
		cost.UndesirableTime = w.UndesirableTime
	}

	if slot >= e.opts.LateStartFrom && !e.batchBusyBefore(unit.Batch.ID, day, slot) {
		cost.LateDayGap = w.LateDayGap * w.LateDayGapMultiplier
	}

	if unit.IsLab && eligibleRooms <= e.opts.ScarceRoomThreshold {
		cost.ScarceResource = w.ScarceResource
	}
	return cost
}

// precedingRun counts, over the ContinuityWindow slots right before slot, the
// non-lunch cells already holding the teacher and the batch. Lunch cells are
// never counted, so a run broken by lunch never reaches the window size.
func (e *Evaluator) precedingRun(unit SessionUnit, day, slot int) (teacher, batch int) {
	for i := 1; i <= e.opts.ContinuityWindow; i++ {
		prev := slot - i
		if prev < 0 {
			break
		}
		if e.opts.isLunch(prev) {
			continue
		}
		cell := e.grid.Cell(day, prev)
		if cell.HasTeacher(unit.Teacher.ID) {
			teacher++
		}
		if cell.HasBatch(unit.Batch.ID) {
			batch++
		}
	}
	return teacher, batch
}

func (e *Evaluator) batchBusyBefore(batchID string, day, slot int) bool {
	for prev := 0; prev < slot; prev++ {
		if e.opts.isLunch(prev) {
			continue
		}
		if e.grid.Cell(day, prev).HasBatch(batchID) {
			return true
		}
	}
	return false
}
