package timetable

import (
	"fmt"

	"github.com/noah-isme/timetable-api/internal/models"
)

// Result is the outcome of a completed generation run.
type Result struct {
	Success                bool                    `json:"success"`
	Timetable              []models.TimetableEntry `json:"timetable"`
	FailedAssignmentsCount int                     `json:"failedAssignmentsCount"`
	TotalUnits             int                     `json:"totalUnits"`
	Backlog                []SessionUnit           `json:"-"`
	Placements             []Assignment            `json:"-"`
}

// EntryID derives the deterministic identifier of a placed session.
func EntryID(day, slot, batchID, courseID, group string) string {
	if group == "" {
		group = "none"
	}
	return fmt.Sprintf("tt-%s-%s-%s-%s-%s", day, slot, batchID, courseID, group)
}

// ResultBuilder accumulates placements and backlog in commit order.
type ResultBuilder struct {
	opts   Options
	result Result
}

// NewResultBuilder starts an empty result.
func NewResultBuilder(opts Options) *ResultBuilder {
	return &ResultBuilder{
		opts:   opts,
		result: Result{Timetable: make([]models.TimetableEntry, 0)},
	}
}

// Placed records a committed assignment.
func (b *ResultBuilder) Placed(a Assignment) {
	day := b.opts.Days[a.Day]
	slot := b.opts.TimeSlots[a.Slot]
	unit := a.Unit

	var group *string
	if unit.Group != "" {
		g := unit.Group
		group = &g
	}
	b.result.Timetable = append(b.result.Timetable, models.TimetableEntry{
		ID:          EntryID(day, slot, unit.Batch.ID, unit.Course.ID, unit.Group),
		BatchID:     unit.Batch.ID,
		CourseID:    unit.Course.ID,
		TeacherID:   unit.Teacher.ID,
		RoomID:      a.Room.ID,
		Day:         day,
		TimeSlot:    slot,
		Group:       group,
		GroupSize:   unit.GroupSize,
		CourseCode:  unit.Course.Code,
		CourseName:  unit.Course.Title,
		BatchName:   unit.Batch.Code,
		TeacherName: unit.Teacher.Label(),
		RoomNumber:  a.Room.Number,
	})
	b.result.Placements = append(b.result.Placements, a)
	b.result.TotalUnits++
}

// Deferred records a unit that found no feasible cell.
func (b *ResultBuilder) Deferred(unit SessionUnit) {
	b.result.Backlog = append(b.result.Backlog, unit)
	b.result.TotalUnits++
}

// Build finalises the result.
func (b *ResultBuilder) Build() *Result {
	res := b.result
	res.Success = true
	res.FailedAssignmentsCount = len(res.Backlog)
	return &res
}
