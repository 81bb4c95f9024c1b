package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type referenceManager interface {
	Snapshot(ctx context.Context) (timetable.Snapshot, error)
	Import(ctx context.Context, req dto.ImportReferenceRequest) (*dto.ImportReferenceResponse, error)
}

type referenceSnapshotResponse struct {
	Courses     []models.Course      `json:"courses"`
	Teachers    []models.Teacher     `json:"teachers"`
	Rooms       []models.Room        `json:"rooms"`
	Batches     []models.Batch       `json:"batches"`
	Assignments []models.BatchCourse `json:"assignments"`
}

// ReferenceHandler serves the generator's input collections.
type ReferenceHandler struct {
	service referenceManager
}

// NewReferenceHandler constructs the handler.
func NewReferenceHandler(svc referenceManager) *ReferenceHandler {
	return &ReferenceHandler{service: svc}
}

// Snapshot godoc
// @Summary Current reference data
// @Description Courses, teachers, rooms, batches and batch-course links as the generator sees them
// @Tags Reference
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reference/snapshot [get]
func (h *ReferenceHandler) Snapshot(c *gin.Context) {
	snap, err := h.service.Snapshot(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, referenceSnapshotResponse{
		Courses:     nonNil(snap.Courses),
		Teachers:    nonNil(snap.Teachers),
		Rooms:       nonNil(snap.Rooms),
		Batches:     nonNil(snap.Batches),
		Assignments: nonNil(snap.Assignments),
	})
}

// Import godoc
// @Summary Import reference data
// @Description Upserts every supplied collection in a single transaction
// @Tags Reference
// @Accept json
// @Produce json
// @Param payload body dto.ImportReferenceRequest true "Reference data"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reference/import [post]
func (h *ReferenceHandler) Import(c *gin.Context) {
	var req dto.ImportReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid reference payload"))
		return
	}
	res, err := h.service.Import(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
