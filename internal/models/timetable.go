package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TimetableEntry is one placed weekly session.
type TimetableEntry struct {
	ID          string    `db:"id" json:"id"`
	RunID       string    `db:"run_id" json:"run_id,omitempty"`
	BatchID     string    `db:"batch_id" json:"batch_id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	RoomID      string    `db:"room_id" json:"room_id"`
	Day         string    `db:"day" json:"day"`
	TimeSlot    string    `db:"time_slot" json:"time_slot"`
	Group       *string   `db:"group_name" json:"group"`
	GroupSize   int       `db:"group_size" json:"group_size"`
	CourseCode  string    `db:"course_code" json:"course_code"`
	CourseName  string    `db:"course_name" json:"course_name"`
	BatchName   string    `db:"batch_name" json:"batch_name"`
	TeacherName string    `db:"teacher_name" json:"teacher_name"`
	RoomNumber  string    `db:"room_number" json:"room_number"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// GroupLabel returns the lab group name or "none" for whole-batch sessions.
func (e TimetableEntry) GroupLabel() string {
	if e.Group == nil || *e.Group == "" {
		return "none"
	}
	return *e.Group
}

// TimetableFilter narrows timetable listings.
type TimetableFilter struct {
	BatchID   string `form:"batchId" json:"batchId"`
	TeacherID string `form:"teacherId" json:"teacherId"`
	RoomID    string `form:"roomId" json:"roomId"`
	Day       string `form:"day" json:"day"`
}

// GenerationRunStatus tracks the lifecycle of one generation run.
type GenerationRunStatus string

const (
	GenerationRunStatusQueued    GenerationRunStatus = "QUEUED"
	GenerationRunStatusRunning   GenerationRunStatus = "RUNNING"
	GenerationRunStatusCompleted GenerationRunStatus = "COMPLETED"
	GenerationRunStatusFailed    GenerationRunStatus = "FAILED"
)

// GenerationRun records the outcome of a timetable generation.
type GenerationRun struct {
	ID          string              `db:"id" json:"id"`
	Status      GenerationRunStatus `db:"status" json:"status"`
	TotalUnits  int                 `db:"total_units" json:"total_units"`
	PlacedCount int                 `db:"placed_count" json:"placed_count"`
	FailedCount int                 `db:"failed_count" json:"failed_count"`
	Message     *string             `db:"message" json:"message,omitempty"`
	Meta        types.JSONText      `db:"meta" json:"meta"`
	StartedAt   time.Time           `db:"started_at" json:"started_at"`
	FinishedAt  *time.Time          `db:"finished_at" json:"finished_at,omitempty"`
	CreatedAt   time.Time           `db:"created_at" json:"created_at"`
}

// RoomUtilization summarises how many teachable cells a room occupies.
type RoomUtilization struct {
	RoomID     string   `json:"room_id"`
	RoomNumber string   `json:"room_number"`
	Kind       RoomKind `json:"kind"`
	UsedSlots  int      `json:"used_slots"`
	TotalSlots int      `json:"total_slots"`
	Percentage float64  `json:"percentage"`
}

// UtilizationReport aggregates room usage with reference data counts.
type UtilizationReport struct {
	Rooms         []RoomUtilization `json:"rooms"`
	TotalCourses  int               `json:"total_courses"`
	TotalTeachers int               `json:"total_teachers"`
	TotalRooms    int               `json:"total_rooms"`
	TotalBatches  int               `json:"total_batches"`
	GeneratedAt   time.Time         `json:"generated_at"`
}
