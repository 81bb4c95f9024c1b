package dto

import (
	"time"

	"github.com/noah-isme/timetable-api/internal/models"
)

// CostWeightsRequest overrides individual soft penalty weights. Nil fields keep the configured value.
type CostWeightsRequest struct {
	Base                 *int `json:"base" validate:"omitempty,min=0"`
	ContinuousClass      *int `json:"continuousClass" validate:"omitempty,min=0"`
	UndesirableTime      *int `json:"undesirableTime" validate:"omitempty,min=0"`
	LateDayGap           *int `json:"lateDayGap" validate:"omitempty,min=0"`
	LateDayGapMultiplier *int `json:"lateDayGapMultiplier" validate:"omitempty,min=0"`
	ScarceResource       *int `json:"scarceResource" validate:"omitempty,min=0"`
}

// GenerateTimetableRequest tunes a single generation run.
type GenerateTimetableRequest struct {
	BatchPolicy string              `json:"batchPolicy" validate:"omitempty,oneof=exclusive parallel_lab_groups"`
	Weights     *CostWeightsRequest `json:"weights" validate:"omitempty"`
	Note        string              `json:"note" validate:"omitempty,max=255"`
}

// GenerateTimetableResponse mirrors the engine outcome plus run bookkeeping.
type GenerateTimetableResponse struct {
	RunID                  string                  `json:"runId,omitempty"`
	Success                bool                    `json:"success"`
	Message                string                  `json:"message,omitempty"`
	Timetable              []models.TimetableEntry `json:"timetable"`
	FailedAssignmentsCount int                     `json:"failedAssignmentsCount"`
	TotalUnits             int                     `json:"totalUnits"`
	Unplaced               []UnplacedUnit          `json:"unplaced,omitempty"`
	DurationMs             int64                   `json:"durationMs"`
}

// UnplacedUnit describes one session left in the backlog.
type UnplacedUnit struct {
	BatchID    string  `json:"batchId"`
	CourseID   string  `json:"courseId"`
	TeacherID  string  `json:"teacherId"`
	Group      *string `json:"group"`
	Occurrence int     `json:"occurrence"`
}

// GenerationRunResponse is returned for queued and completed runs.
type GenerationRunResponse struct {
	RunID       string                     `json:"runId"`
	Status      models.GenerationRunStatus `json:"status"`
	Message     string                     `json:"message,omitempty"`
	TotalUnits  int                        `json:"totalUnits"`
	PlacedCount int                        `json:"placedCount"`
	FailedCount int                        `json:"failedCount"`
	StartedAt   time.Time                  `json:"startedAt"`
	FinishedAt  *time.Time                 `json:"finishedAt,omitempty"`
}

// ExportTimetableRequest selects the entries and format of a download.
type ExportTimetableRequest struct {
	Format    string `json:"format" validate:"required,oneof=csv pdf"`
	BatchID   string `json:"batchId"`
	TeacherID string `json:"teacherId"`
	RoomID    string `json:"roomId"`
	Day       string `json:"day"`
}

// ExportTimetableResponse carries the signed download link.
type ExportTimetableResponse struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	Format    string    `json:"format"`
	Entries   int       `json:"entries"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ImportReferenceRequest upserts reference data in one transaction.
type ImportReferenceRequest struct {
	Courses     []models.Course      `json:"courses" validate:"omitempty,dive"`
	Teachers    []models.Teacher     `json:"teachers" validate:"omitempty,dive"`
	Rooms       []models.Room        `json:"rooms" validate:"omitempty,dive"`
	Batches     []models.Batch       `json:"batches" validate:"omitempty,dive"`
	Assignments []models.BatchCourse `json:"assignments" validate:"omitempty,dive"`
}

// ImportReferenceResponse counts the rows written per collection.
type ImportReferenceResponse struct {
	Courses     int `json:"courses"`
	Teachers    int `json:"teachers"`
	Rooms       int `json:"rooms"`
	Batches     int `json:"batches"`
	Assignments int `json:"assignments"`
}
