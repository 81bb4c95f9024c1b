package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/export"
	"github.com/noah-isme/timetable-api/pkg/storage"
)

const (
	exportFormatCSV = "csv"
	exportFormatPDF = "pdf"
)

type timetableLister interface {
	List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type gridRenderer interface {
	RenderGrid(sheets []export.GridSheet) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	Options         timetable.Options
}

// ExportDownload aggregates resolved download data.
type ExportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// ExportService renders the stored timetable and hands out signed download links.
type ExportService struct {
	entries   timetableLister
	storage   fileStorage
	csv       csvRenderer
	pdf       gridRenderer
	signer    *storage.SignedURLSigner
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(entries timetableLister, storage fileStorage, signer *storage.SignedURLSigner, metrics *MetricsService, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf gridRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	if len(cfg.Options.Days) == 0 {
		cfg.Options = timetable.DefaultOptions()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		entries:   entries,
		storage:   storage,
		csv:       csv,
		pdf:       pdf,
		signer:    signer,
		metrics:   metrics,
		validator: validator.New(),
		logger:    logger,
		cfg:       cfg,
	}
}

// ExportTimetable renders the filtered timetable and stores the file behind a signed token.
func (s *ExportService) ExportTimetable(ctx context.Context, req dto.ExportTimetableRequest) (*dto.ExportTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid export payload")
	}
	filter := models.TimetableFilter{BatchID: req.BatchID, TeacherID: req.TeacherID, RoomID: req.RoomID, Day: req.Day}
	entries, err := s.entries.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	payload, err := s.Render(req.Format, entries)
	if err != nil {
		return nil, err
	}

	exportID := uuid.NewString()
	relPath, err := s.storage.Save(buildExportFilename(exportID, filter, req.Format, time.Now().UTC()), payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.metrics.RecordExport(req.Format)
	s.logger.Info("timetable exported", zap.String("format", req.Format), zap.Int("entries", len(entries)), zap.String("path", relPath))
	return &dto.ExportTimetableResponse{
		Token:     token,
		URL:       fmt.Sprintf("%s/timetable/export/download?token=%s", prefix, token),
		Format:    req.Format,
		Entries:   len(entries),
		ExpiresAt: expiresAt,
	}, nil
}

// Resolve validates a download token and opens the stored file.
func (s *ExportService) Resolve(token string) (*ExportDownload, error) {
	_, relPath, expiresAt, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.ErrExportExpired
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export")
	}
	contentType := "text/csv"
	if strings.EqualFold(filepath.Ext(relPath), ".pdf") {
		contentType = "application/pdf"
	}
	return &ExportDownload{
		File:        file,
		Filename:    filepath.Base(relPath),
		ContentType: contentType,
		ExpiresAt:   expiresAt,
	}, nil
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// StartCleanup removes expired exports every CleanupInterval until ctx is done.
func (s *ExportService) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.Cleanup(0)
				if err != nil {
					s.logger.Warn("export cleanup failed", zap.Error(err))
					continue
				}
				if len(removed) > 0 {
					s.logger.Info("export cleanup removed files", zap.Int("count", len(removed)))
				}
			}
		}
	}()
}

// Render sorts entries canonically and encodes them as csv rows or per-batch pdf grids.
func (s *ExportService) Render(format string, entries []models.TimetableEntry) ([]byte, error) {
	entries = s.sortEntries(entries)
	var (
		payload []byte
		err     error
	)
	switch format {
	case exportFormatCSV:
		payload, err = s.csv.Render(s.BuildDataset(entries))
	case exportFormatPDF:
		if len(entries) == 0 {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no timetable entries to export")
		}
		payload, err = s.pdf.RenderGrid(s.BuildSheets(entries))
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", format)).
			WithDetails(map[string]interface{}{"supported": []string{"csv", "pdf"}})
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return payload, nil
}

// BuildDataset flattens entries into one CSV row each.
func (s *ExportService) BuildDataset(entries []models.TimetableEntry) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"Day", "Time Slot", "Batch", "Course Code", "Course", "Group", "Group Size", "Teacher", "Room"},
	}
	for _, e := range entries {
		group := ""
		if e.Group != nil {
			group = *e.Group
		}
		dataset.Append(map[string]string{
			"Day":         e.Day,
			"Time Slot":   e.TimeSlot,
			"Batch":       e.BatchName,
			"Course Code": e.CourseCode,
			"Course":      e.CourseName,
			"Group":       group,
			"Group Size":  strconv.Itoa(e.GroupSize),
			"Teacher":     e.TeacherName,
			"Room":        e.RoomNumber,
		})
	}
	return dataset
}

// BuildSheets lays entries out as one day-by-slot grid per batch, in first-seen batch order.
func (s *ExportService) BuildSheets(entries []models.TimetableEntry) []export.GridSheet {
	opts := s.cfg.Options
	dayIndex := indexOf(opts.Days)
	slotIndex := indexOf(opts.TimeSlots)

	var order []string
	sheets := make(map[string]*export.GridSheet)
	for _, e := range entries {
		sheet, ok := sheets[e.BatchID]
		if !ok {
			sheet = newSheet(fmt.Sprintf("Timetable %s", e.BatchName), opts)
			sheets[e.BatchID] = sheet
			order = append(order, e.BatchID)
		}
		d, okDay := dayIndex[strings.ToLower(e.Day)]
		t, okSlot := slotIndex[strings.ToLower(e.TimeSlot)]
		if !okDay || !okSlot {
			continue
		}
		text := fmt.Sprintf("%s\n%s\n%s", e.CourseCode, e.RoomNumber, e.TeacherName)
		if e.Group != nil {
			text = fmt.Sprintf("%s (%s)", text, *e.Group)
		}
		if existing := sheet.Cells[d][t]; existing != "" {
			text = existing + "\n" + text
		}
		sheet.Cells[d][t] = text
	}

	out := make([]export.GridSheet, 0, len(order))
	for _, id := range order {
		out = append(out, *sheets[id])
	}
	return out
}

func newSheet(title string, opts timetable.Options) *export.GridSheet {
	cells := make([][]string, len(opts.Days))
	for d := range cells {
		cells[d] = make([]string, len(opts.TimeSlots))
		for t, slot := range opts.TimeSlots {
			if slot == opts.LunchSlot {
				cells[d][t] = slot
			}
		}
	}
	return &export.GridSheet{
		Title:     title,
		Columns:   append([]string(nil), opts.TimeSlots...),
		RowLabels: append([]string(nil), opts.Days...),
		Cells:     cells,
	}
}

// sortEntries orders entries by batch, then canonical day and slot position.
func (s *ExportService) sortEntries(entries []models.TimetableEntry) []models.TimetableEntry {
	return sortForGrid(entries, s.cfg.Options)
}

// sortForGrid returns a copy of entries ordered by batch name, then by the
// position of day and slot in opts. Unknown days or slots sort first.
func sortForGrid(entries []models.TimetableEntry, opts timetable.Options) []models.TimetableEntry {
	dayIndex := indexOf(opts.Days)
	slotIndex := indexOf(opts.TimeSlots)
	sorted := append([]models.TimetableEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.BatchName != b.BatchName {
			return a.BatchName < b.BatchName
		}
		if da, db := dayIndex[strings.ToLower(a.Day)], dayIndex[strings.ToLower(b.Day)]; da != db {
			return da < db
		}
		return slotIndex[strings.ToLower(a.TimeSlot)] < slotIndex[strings.ToLower(b.TimeSlot)]
	})
	return sorted
}

func indexOf(values []string) map[string]int {
	idx := make(map[string]int, len(values))
	for i, v := range values {
		idx[strings.ToLower(v)] = i
	}
	return idx
}

func buildExportFilename(exportID string, filter models.TimetableFilter, format string, now time.Time) string {
	scope := "all"
	switch {
	case filter.BatchID != "":
		scope = "batch_" + sanitizeFilename(filter.BatchID)
	case filter.TeacherID != "":
		scope = "teacher_" + sanitizeFilename(filter.TeacherID)
	case filter.RoomID != "":
		scope = "room_" + sanitizeFilename(filter.RoomID)
	}
	if len(exportID) > 8 {
		exportID = exportID[:8]
	}
	return fmt.Sprintf("timetable_%s_%s_%s.%s", scope, now.Format("20060102_150405"), exportID, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
