package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	GenerateAsync(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerationRunResponse, error)
	Preview(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	GetRun(ctx context.Context, id string) (*dto.GenerationRunResponse, error)
	ListRuns(ctx context.Context, limit int) ([]dto.GenerationRunResponse, error)
	ListCached(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, bool, error)
	Utilization(ctx context.Context) (*models.UtilizationReport, error)
}

type timetableExporter interface {
	ExportTimetable(ctx context.Context, req dto.ExportTimetableRequest) (*dto.ExportTimetableResponse, error)
	Resolve(token string) (*service.ExportDownload, error)
}

// TimetableHandler exposes generation, listing and export endpoints.
type TimetableHandler struct {
	service timetableGenerator
	exports timetableExporter
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc timetableGenerator, exports timetableExporter) *TimetableHandler {
	return &TimetableHandler{service: svc, exports: exports}
}

// Generate godoc
// @Summary Generate the weekly timetable
// @Description Runs the greedy generator over stored reference data and replaces the stored timetable. With async=true the run is queued and 202 is returned.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param async query bool false "Queue the run"
// @Param payload body dto.GenerateTimetableRequest false "Policy overrides"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /timetable/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	req, ok := bindGenerateRequest(c)
	if !ok {
		return
	}

	if async, _ := strconv.ParseBool(c.Query("async")); async {
		run, err := h.service.GenerateAsync(c.Request.Context(), req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Accepted(c, run, map[string]interface{}{"mode": "async"})
		return
	}

	res, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["mode"] = "sync"
	response.JSON(c, http.StatusOK, res, meta)
}

// Preview godoc
// @Summary Preview a timetable without saving it
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest false "Policy overrides"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /timetable/preview [post]
func (h *TimetableHandler) Preview(c *gin.Context) {
	req, ok := bindGenerateRequest(c)
	if !ok {
		return
	}
	res, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, map[string]interface{}{"mode": "preview"})
}

// List godoc
// @Summary List stored timetable entries
// @Tags Timetable
// @Produce json
// @Param batchId query string false "Batch filter"
// @Param teacherId query string false "Teacher filter"
// @Param roomId query string false "Room filter"
// @Param day query string false "Day filter"
// @Success 200 {object} response.Envelope
// @Router /timetable [get]
func (h *TimetableHandler) List(c *gin.Context) {
	var filter models.TimetableFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid query parameters"))
		return
	}
	entries, hit, err := h.service.ListCached(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, entries, middleware.ExtractMeta(c))
}

// GetRun godoc
// @Summary Get generation run status
// @Tags Timetable
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/runs/{id} [get]
func (h *TimetableHandler) GetRun(c *gin.Context) {
	run, err := h.service.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run)
}

// ListRuns godoc
// @Summary List recent generation runs
// @Tags Timetable
// @Produce json
// @Param limit query int false "Maximum runs (default 20)"
// @Success 200 {object} response.Envelope
// @Router /timetable/runs [get]
func (h *TimetableHandler) ListRuns(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	runs, err := h.service.ListRuns(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs)
}

// Utilization godoc
// @Summary Room utilization of the stored timetable
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/utilization [get]
func (h *TimetableHandler) Utilization(c *gin.Context) {
	report, err := h.service.Utilization(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// Export godoc
// @Summary Export the timetable as CSV or PDF
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.ExportTimetableRequest true "Export request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /timetable/export [post]
func (h *TimetableHandler) Export(c *gin.Context) {
	var req dto.ExportTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid export payload"))
		return
	}
	res, err := h.exports.ExportTimetable(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Download godoc
// @Summary Download a rendered export
// @Tags Timetable
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Router /timetable/export/download [get]
func (h *TimetableHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	download, err := h.exports.Resolve(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	size := int64(-1)
	if info, err := download.File.Stat(); err == nil {
		size = info.Size()
	}
	response.Attachment(c, download.Filename, download.ContentType, size, download.File)
}

// bindGenerateRequest accepts an empty body as "use configured defaults".
func bindGenerateRequest(c *gin.Context) (dto.GenerateTimetableRequest, bool) {
	var req dto.GenerateTimetableRequest
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid generation payload"))
		return req, false
	}
	return req, true
}
