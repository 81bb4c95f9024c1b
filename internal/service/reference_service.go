package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type courseStore interface {
	ListAll(ctx context.Context) ([]models.Course, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, course *models.Course) error
}

type teacherStore interface {
	ListAll(ctx context.Context) ([]models.Teacher, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, teacher *models.Teacher) error
}

type roomStore interface {
	ListAll(ctx context.Context) ([]models.Room, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, room *models.Room) error
}

type batchStore interface {
	ListAll(ctx context.Context) ([]models.Batch, error)
	ListAssignments(ctx context.Context) ([]models.BatchCourse, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, batch *models.Batch) error
	LinkCourse(ctx context.Context, exec sqlx.ExtContext, link *models.BatchCourse) error
}

// ReferenceService reads and writes the courses, teachers, rooms and batches a run is built from.
type ReferenceService struct {
	courses   courseStore
	teachers  teacherStore
	rooms     roomStore
	batches   batchStore
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReferenceService wires reference data repositories.
func NewReferenceService(courses courseStore, teachers teacherStore, rooms roomStore, batches batchStore, tx txProvider, validate *validator.Validate, logger *zap.Logger) *ReferenceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferenceService{
		courses:   courses,
		teachers:  teachers,
		rooms:     rooms,
		batches:   batches,
		tx:        tx,
		validator: validate,
		logger:    logger,
	}
}

// Snapshot materialises every reference collection in repository order.
func (s *ReferenceService) Snapshot(ctx context.Context) (timetable.Snapshot, error) {
	var snap timetable.Snapshot
	var err error
	if snap.Courses, err = s.courses.ListAll(ctx); err != nil {
		return snap, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	if snap.Teachers, err = s.teachers.ListAll(ctx); err != nil {
		return snap, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	if snap.Rooms, err = s.rooms.ListAll(ctx); err != nil {
		return snap, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	if snap.Batches, err = s.batches.ListAll(ctx); err != nil {
		return snap, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batches")
	}
	if snap.Assignments, err = s.batches.ListAssignments(ctx); err != nil {
		return snap, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch courses")
	}
	return snap, nil
}

// Import upserts the supplied records atomically. Links are written last so they can reference new rows.
func (s *ReferenceService) Import(ctx context.Context, req dto.ImportReferenceRequest) (*dto.ImportReferenceResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid reference payload")
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i := range req.Teachers {
		if err = s.teachers.Upsert(ctx, tx, &req.Teachers[i]); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upsert teacher")
		}
	}
	for i := range req.Courses {
		if err = s.courses.Upsert(ctx, tx, &req.Courses[i]); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upsert course")
		}
	}
	for i := range req.Rooms {
		if err = s.rooms.Upsert(ctx, tx, &req.Rooms[i]); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upsert room")
		}
	}
	for i := range req.Batches {
		if err = s.batches.Upsert(ctx, tx, &req.Batches[i]); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upsert batch")
		}
	}
	for i := range req.Assignments {
		if err = s.batches.LinkCourse(ctx, tx, &req.Assignments[i]); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link batch course")
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit reference import")
	}

	resp := &dto.ImportReferenceResponse{
		Courses:     len(req.Courses),
		Teachers:    len(req.Teachers),
		Rooms:       len(req.Rooms),
		Batches:     len(req.Batches),
		Assignments: len(req.Assignments),
	}
	s.logger.Info("reference data imported",
		zap.Int("courses", resp.Courses),
		zap.Int("teachers", resp.Teachers),
		zap.Int("rooms", resp.Rooms),
		zap.Int("batches", resp.Batches),
		zap.Int("assignments", resp.Assignments),
	)
	return resp, nil
}
