package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/timetable"
	"github.com/noah-isme/timetable-api/pkg/config"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/jobs"
)

const (
	generationModeSync    = "sync"
	generationModeAsync   = "async"
	generationModePreview = "preview"

	timetableCachePrefix = "timetable:"
	generationJobType    = "timetable.generate"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type snapshotReader interface {
	Snapshot(ctx context.Context) (timetable.Snapshot, error)
}

type timetableEntryStore interface {
	ReplaceAll(ctx context.Context, exec sqlx.ExtContext, runID string, entries []models.TimetableEntry) error
	List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, error)
}

type generationRunStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, run *models.GenerationRun) error
	FindByID(ctx context.Context, id string) (*models.GenerationRun, error)
	ListRecent(ctx context.Context, limit int) ([]models.GenerationRun, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// TimetableServiceConfig governs generation policy and run bookkeeping.
// MaxRetries follows jobs.QueueConfig: zero means 3, negative disables retries.
type TimetableServiceConfig struct {
	Options    timetable.Options
	RunTTL     time.Duration
	CacheTTL   time.Duration
	MaxRetries int
}

// TimetableOptions converts environment configuration into an engine policy.
func TimetableOptions(cfg config.TimetableConfig) timetable.Options {
	opts := timetable.DefaultOptions()
	if len(cfg.Days) > 0 {
		opts.Days = cfg.Days
	}
	if len(cfg.TimeSlots) > 0 {
		opts.TimeSlots = cfg.TimeSlots
	}
	if cfg.LunchSlot != "" {
		opts.LunchSlot = cfg.LunchSlot
	}
	if cfg.TermWeeks > 0 {
		opts.TermWeeks = cfg.TermWeeks
	}
	if cfg.LabSplitThreshold > 0 {
		opts.LabSplitThreshold = cfg.LabSplitThreshold
	}
	if cfg.ScarceRoomThreshold > 0 {
		opts.ScarceRoomThreshold = cfg.ScarceRoomThreshold
	}
	if cfg.ParallelLabGroups {
		opts.BatchPolicy = timetable.ParallelLabGroups
	}
	return opts
}

// TimetableService runs the generator against stored reference data and persists the outcome.
type TimetableService struct {
	reference snapshotReader
	entries   timetableEntryStore
	runs      generationRunStore
	tx        txProvider
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       TimetableServiceConfig

	queue   jobDispatcher
	running atomic.Bool
	store   *runStore
	now     func() time.Time
}

// NewTimetableService wires generation collaborators.
func NewTimetableService(
	reference snapshotReader,
	entries timetableEntryStore,
	runs generationRunStore,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Options.Days) == 0 {
		cfg.Options = timetable.DefaultOptions()
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = time.Hour
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = 3
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	return &TimetableService{
		reference: reference,
		entries:   entries,
		runs:      runs,
		tx:        tx,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		store:     newRunStore(cfg.RunTTL),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AttachQueue enables asynchronous generation through the provided dispatcher.
func (s *TimetableService) AttachQueue(queue jobDispatcher) {
	s.queue = queue
}

// Generate runs the engine and replaces the stored timetable with the result.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	opts, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, appErrors.ErrRunInProgress
	}
	defer s.running.Store(false)

	run := s.newRun(models.GenerationRunStatusRunning)
	resp, err := s.execute(ctx, generationModeSync, run, opts, true)
	if resp != nil {
		resp.RunID = run.ID
	}
	return resp, err
}

// Preview runs the engine without touching stored entries.
func (s *TimetableService) Preview(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	opts, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	run := s.newRun(models.GenerationRunStatusRunning)
	return s.execute(ctx, generationModePreview, run, opts, false)
}

// GenerateAsync queues a run and returns its id immediately.
func (s *TimetableService) GenerateAsync(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerationRunResponse, error) {
	if _, err := s.prepare(req); err != nil {
		return nil, err
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "generation queue unavailable")
	}
	if s.running.Load() {
		return nil, appErrors.ErrRunInProgress
	}

	run := s.newRun(models.GenerationRunStatusQueued)
	s.store.Save(runRecord{Run: run, Request: req, UpdatedAt: s.now()})
	if err := s.queue.Enqueue(jobs.Job{ID: run.ID, Type: generationJobType, Payload: req}); err != nil {
		s.store.Delete(run.ID)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue generation run")
	}
	s.logger.Info("timetable generation queued", zap.String("run_id", run.ID))
	return runResponse(run), nil
}

// HandleJob executes a queued run. A busy lock or a persistence failure is returned so the queue retries it.
func (s *TimetableService) HandleJob(ctx context.Context, job jobs.Job) error {
	record, ok := s.store.Get(job.ID)
	if !ok {
		s.logger.Warn("generation run expired before execution", zap.String("run_id", job.ID))
		return nil
	}
	lastAttempt := job.Attempt >= s.cfg.MaxRetries

	if !s.running.CompareAndSwap(false, true) {
		if lastAttempt {
			s.finishQueued(record, models.GenerationRunStatusFailed, appErrors.ErrRunInProgress.Message)
			return nil
		}
		return appErrors.ErrRunInProgress
	}
	defer s.running.Store(false)

	opts, err := s.prepare(record.Request)
	if err != nil {
		s.finishQueued(record, models.GenerationRunStatusFailed, err.Error())
		return nil
	}

	run := record.Run
	run.Status = models.GenerationRunStatusRunning
	run.StartedAt = s.now()
	s.store.Save(runRecord{Run: run, Request: record.Request, UpdatedAt: s.now()})

	_, err = s.execute(ctx, generationModeAsync, run, opts, true)
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) && appErr.Code == appErrors.ErrInternal.Code && !lastAttempt {
		record.Run.Status = models.GenerationRunStatusQueued
		s.store.Save(runRecord{Run: record.Run, Request: record.Request, UpdatedAt: s.now()})
		return err
	}
	return nil
}

// GetRun returns a run from the in-memory store, falling back to persisted history.
func (s *TimetableService) GetRun(ctx context.Context, id string) (*dto.GenerationRunResponse, error) {
	if record, ok := s.store.Get(id); ok {
		return runResponse(record.Run), nil
	}
	run, err := s.runs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "generation run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load generation run")
	}
	return runResponse(*run), nil
}

// ListRuns returns the most recent persisted runs.
func (s *TimetableService) ListRuns(ctx context.Context, limit int) ([]dto.GenerationRunResponse, error) {
	runs, err := s.runs.ListRecent(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list generation runs")
	}
	resp := make([]dto.GenerationRunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, *runResponse(run))
	}
	return resp, nil
}

// List returns stored entries, served from cache when possible.
func (s *TimetableService) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, error) {
	entries, _, err := s.ListCached(ctx, filter)
	return entries, err
}

// ListCached is List that also reports whether the cache answered.
func (s *TimetableService) ListCached(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, bool, error) {
	filter = s.normalizeFilter(filter)
	return Cached(ctx, s.cache, listCacheKey(filter), s.cfg.CacheTTL, func(ctx context.Context) ([]models.TimetableEntry, error) {
		entries, err := s.entries.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable")
		}
		if entries == nil {
			return []models.TimetableEntry{}, nil
		}
		return sortForGrid(entries, s.cfg.Options), nil
	})
}

// Utilization reports per-room occupancy of the stored timetable.
func (s *TimetableService) Utilization(ctx context.Context) (*models.UtilizationReport, error) {
	snap, err := s.reference.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.List(ctx, models.TimetableFilter{})
	if err != nil {
		return nil, err
	}
	return &models.UtilizationReport{
		Rooms:         timetable.RoomUtilization(entries, snap.Rooms, s.cfg.Options),
		TotalCourses:  len(snap.Courses),
		TotalTeachers: len(snap.Teachers),
		TotalRooms:    len(snap.Rooms),
		TotalBatches:  len(snap.Batches),
		GeneratedAt:   s.now(),
	}, nil
}

// prepare validates the request and layers its overrides on top of the configured policy.
func (s *TimetableService) prepare(req dto.GenerateTimetableRequest) (timetable.Options, error) {
	if err := s.validator.Struct(req); err != nil {
		return timetable.Options{}, appErrors.Invalid(err, "invalid generation payload")
	}
	opts := s.cfg.Options
	if req.BatchPolicy != "" {
		opts.BatchPolicy = timetable.BatchPolicy(req.BatchPolicy)
	}
	if w := req.Weights; w != nil {
		applyWeight(&opts.Weights.Base, w.Base)
		applyWeight(&opts.Weights.ContinuousClass, w.ContinuousClass)
		applyWeight(&opts.Weights.UndesirableTime, w.UndesirableTime)
		applyWeight(&opts.Weights.LateDayGap, w.LateDayGap)
		applyWeight(&opts.Weights.LateDayGapMultiplier, w.LateDayGapMultiplier)
		applyWeight(&opts.Weights.ScarceResource, w.ScarceResource)
	}
	if err := opts.Validate(); err != nil {
		return timetable.Options{}, appErrors.Wrap(err, appErrors.ErrInvalidWeights.Code, appErrors.ErrInvalidWeights.Status, err.Error())
	}
	return opts, nil
}

func applyWeight(dst *int, override *int) {
	if override != nil {
		*dst = *override
	}
}

// execute is one atomic unit of work: read snapshot, generate, then persist everything or nothing.
func (s *TimetableService) execute(ctx context.Context, mode string, run models.GenerationRun, opts timetable.Options, persist bool) (*dto.GenerateTimetableResponse, error) {
	started := time.Now()
	logger := s.logger.With(zap.String("run_id", run.ID), zap.String("mode", mode))

	fail := func(err error, placed, failed int) (*dto.GenerateTimetableResponse, error) {
		appErr := appErrors.FromError(err)
		s.metrics.ObserveGeneration(mode, string(models.GenerationRunStatusFailed), placed, failed, time.Since(started))
		if persist {
			s.recordFailure(run, appErr.Message)
		}
		logger.Warn("timetable generation failed", zap.String("code", appErr.Code), zap.Error(err))
		return nil, appErr
	}

	if err := ctx.Err(); err != nil {
		return fail(appErrors.Wrap(err, appErrors.ErrRunCancelled.Code, appErrors.ErrRunCancelled.Status, appErrors.ErrRunCancelled.Message), 0, 0)
	}

	snap, err := s.reference.Snapshot(ctx)
	if err != nil {
		return fail(err, 0, 0)
	}

	engine, err := timetable.New(opts)
	if err != nil {
		return fail(appErrors.Wrap(err, appErrors.ErrInvalidWeights.Code, appErrors.ErrInvalidWeights.Status, err.Error()), 0, 0)
	}
	result, err := engine.Generate(snap)
	if err != nil {
		switch {
		case errors.Is(err, timetable.ErrMissingPrerequisites):
			return fail(appErrors.Wrap(err, appErrors.ErrPreconditionFailed.Code, appErrors.ErrPreconditionFailed.Status, err.Error()), 0, 0)
		default:
			return fail(appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "timetable generation failed"), 0, 0)
		}
	}

	// A run cancelled while the engine was working is discarded whole.
	if err := ctx.Err(); err != nil {
		return fail(appErrors.Wrap(err, appErrors.ErrRunCancelled.Code, appErrors.ErrRunCancelled.Status, appErrors.ErrRunCancelled.Message), 0, 0)
	}

	placed := len(result.Timetable)
	failed := result.FailedAssignmentsCount
	if persist {
		finished := s.now()
		run.Status = models.GenerationRunStatusCompleted
		run.TotalUnits = result.TotalUnits
		run.PlacedCount = placed
		run.FailedCount = failed
		run.FinishedAt = &finished
		run.Meta = runMeta(opts, snap)

		if err := s.persist(ctx, &run, result.Timetable); err != nil {
			return fail(err, placed, failed)
		}
		s.store.Save(runRecord{Run: run, UpdatedAt: finished})
		if err := s.cache.Invalidate(ctx, timetableCachePrefix+"*"); err != nil {
			logger.Warn("failed to invalidate timetable cache", zap.Error(err))
		}
	}

	duration := time.Since(started)
	s.metrics.ObserveGeneration(mode, string(models.GenerationRunStatusCompleted), placed, failed, duration)
	logger.Info("timetable generation completed",
		zap.Int("units", result.TotalUnits),
		zap.Int("placed", placed),
		zap.Int("failed", failed),
		zap.Duration("duration", duration),
	)

	return &dto.GenerateTimetableResponse{
		Success:                result.Success,
		Timetable:              result.Timetable,
		FailedAssignmentsCount: failed,
		TotalUnits:             result.TotalUnits,
		Unplaced:               unplacedUnits(result.Backlog),
		DurationMs:             duration.Milliseconds(),
	}, nil
}

func (s *TimetableService) persist(ctx context.Context, run *models.GenerationRun, entries []models.TimetableEntry) (err error) {
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.runs.Create(ctx, tx, run); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record generation run")
	}
	if err = s.entries.ReplaceAll(ctx, tx, run.ID, entries); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store timetable")
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable")
	}
	return nil
}

// recordFailure keeps failed runs visible through GetRun. Stored entries are left untouched.
func (s *TimetableService) recordFailure(run models.GenerationRun, message string) {
	finished := s.now()
	run.Status = models.GenerationRunStatusFailed
	run.Message = &message
	run.FinishedAt = &finished
	s.store.Save(runRecord{Run: run, UpdatedAt: finished})
}

func (s *TimetableService) finishQueued(record runRecord, status models.GenerationRunStatus, message string) {
	finished := s.now()
	record.Run.Status = status
	record.Run.Message = &message
	record.Run.FinishedAt = &finished
	record.UpdatedAt = finished
	s.store.Save(record)
}

func (s *TimetableService) newRun(status models.GenerationRunStatus) models.GenerationRun {
	now := s.now()
	return models.GenerationRun{
		ID:        uuid.NewString(),
		Status:    status,
		StartedAt: now,
		CreatedAt: now,
	}
}

func runMeta(opts timetable.Options, snap timetable.Snapshot) types.JSONText {
	payload := map[string]any{
		"batchPolicy": opts.BatchPolicy,
		"weights":     opts.Weights,
		"termWeeks":   opts.TermWeeks,
		"days":        opts.Days,
		"timeSlots":   opts.TimeSlots,
		"algorithm":   "greedy_v1",
		"inputs": map[string]int{
			"courses":     len(snap.Courses),
			"teachers":    len(snap.Teachers),
			"rooms":       len(snap.Rooms),
			"batches":     len(snap.Batches),
			"assignments": len(snap.Assignments),
		},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return types.JSONText("{}")
	}
	return types.JSONText(raw)
}

func unplacedUnits(backlog []timetable.SessionUnit) []dto.UnplacedUnit {
	if len(backlog) == 0 {
		return nil
	}
	out := make([]dto.UnplacedUnit, 0, len(backlog))
	for _, unit := range backlog {
		var group *string
		if unit.Group != "" {
			g := unit.Group
			group = &g
		}
		out = append(out, dto.UnplacedUnit{
			BatchID:    unit.Batch.ID,
			CourseID:   unit.Course.ID,
			TeacherID:  unit.Teacher.ID,
			Group:      group,
			Occurrence: unit.Occurrence,
		})
	}
	return out
}

func runResponse(run models.GenerationRun) *dto.GenerationRunResponse {
	resp := &dto.GenerationRunResponse{
		RunID:       run.ID,
		Status:      run.Status,
		TotalUnits:  run.TotalUnits,
		PlacedCount: run.PlacedCount,
		FailedCount: run.FailedCount,
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
	}
	if run.Message != nil {
		resp.Message = *run.Message
	}
	return resp
}

// normalizeFilter trims every field and maps Day onto the configured day name
// it matches case-insensitively. The result is what both the cache key and the
// repository query see.
func (s *TimetableService) normalizeFilter(filter models.TimetableFilter) models.TimetableFilter {
	filter.BatchID = strings.TrimSpace(filter.BatchID)
	filter.TeacherID = strings.TrimSpace(filter.TeacherID)
	filter.RoomID = strings.TrimSpace(filter.RoomID)
	filter.Day = strings.TrimSpace(filter.Day)
	for _, day := range s.cfg.Options.Days {
		if strings.EqualFold(day, filter.Day) {
			filter.Day = day
			break
		}
	}
	return filter
}

// listCacheKey encodes filter verbatim; callers normalize first.
func listCacheKey(filter models.TimetableFilter) string {
	parts := []string{filter.BatchID, filter.TeacherID, filter.RoomID, filter.Day}
	return fmt.Sprintf("%slist:%s", timetableCachePrefix, strings.Join(parts, ":"))
}

type runRecord struct {
	Run       models.GenerationRun
	Request   dto.GenerateTimetableRequest
	UpdatedAt time.Time
}

type runStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]runRecord
}

func newRunStore(ttl time.Duration) *runStore {
	return &runStore{
		ttl:   ttl,
		items: make(map[string]runRecord),
	}
}

func (s *runStore) Save(record runRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[record.Run.ID] = record
}

func (s *runStore) Get(id string) (runRecord, bool) {
	s.mu.RLock()
	record, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return runRecord{}, false
	}
	if time.Since(record.UpdatedAt) > s.ttl {
		s.Delete(id)
		return runRecord{}, false
	}
	return record, true
}

func (s *runStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}
