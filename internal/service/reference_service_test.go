package service

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type courseStoreStub struct {
	items    []models.Course
	upserted []string
	err      error
}

func (s *courseStoreStub) ListAll(ctx context.Context) ([]models.Course, error) {
	return s.items, s.err
}

func (s *courseStoreStub) Upsert(ctx context.Context, exec sqlx.ExtContext, course *models.Course) error {
	if s.err != nil {
		return s.err
	}
	s.upserted = append(s.upserted, course.ID)
	return nil
}

type teacherStoreStub struct {
	items    []models.Teacher
	upserted []string
}

func (s *teacherStoreStub) ListAll(ctx context.Context) ([]models.Teacher, error) {
	return s.items, nil
}

func (s *teacherStoreStub) Upsert(ctx context.Context, exec sqlx.ExtContext, teacher *models.Teacher) error {
	s.upserted = append(s.upserted, teacher.ID)
	return nil
}

type roomStoreStub struct {
	items    []models.Room
	upserted []string
}

func (s *roomStoreStub) ListAll(ctx context.Context) ([]models.Room, error) {
	return s.items, nil
}

func (s *roomStoreStub) Upsert(ctx context.Context, exec sqlx.ExtContext, room *models.Room) error {
	s.upserted = append(s.upserted, room.ID)
	return nil
}

type batchStoreStub struct {
	items    []models.Batch
	links    []models.BatchCourse
	upserted []string
	linked   []string
}

func (s *batchStoreStub) ListAll(ctx context.Context) ([]models.Batch, error) {
	return s.items, nil
}

func (s *batchStoreStub) ListAssignments(ctx context.Context) ([]models.BatchCourse, error) {
	return s.links, nil
}

func (s *batchStoreStub) Upsert(ctx context.Context, exec sqlx.ExtContext, batch *models.Batch) error {
	s.upserted = append(s.upserted, batch.ID)
	return nil
}

func (s *batchStoreStub) LinkCourse(ctx context.Context, exec sqlx.ExtContext, link *models.BatchCourse) error {
	s.linked = append(s.linked, link.BatchID+"/"+link.CourseID)
	return nil
}

type referenceFixture struct {
	svc      *ReferenceService
	courses  *courseStoreStub
	teachers *teacherStoreStub
	rooms    *roomStoreStub
	batches  *batchStoreStub
}

func newReferenceFixture(tx txProvider) referenceFixture {
	snap := sampleSnapshot()
	f := referenceFixture{
		courses:  &courseStoreStub{items: snap.Courses},
		teachers: &teacherStoreStub{items: snap.Teachers},
		rooms:    &roomStoreStub{items: snap.Rooms},
		batches:  &batchStoreStub{items: snap.Batches, links: snap.Assignments},
	}
	f.svc = NewReferenceService(f.courses, f.teachers, f.rooms, f.batches, tx, validator.New(), zap.NewNop())
	return f
}

func TestReferenceServiceSnapshot(t *testing.T) {
	f := newReferenceFixture(noopTxProvider{})

	snap, err := f.svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), snap)

	f.courses.err = errors.New("db down")
	_, err = f.svc.Snapshot(context.Background())
	requireAppError(t, err, appErrors.ErrInternal.Code)
}

func TestReferenceServiceImportCommits(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	f := newReferenceFixture(tx)

	resp, err := f.svc.Import(context.Background(), dto.ImportReferenceRequest{
		Courses:     []models.Course{{ID: "c-9", Code: "MAT201", Kind: models.CourseKindTheory, ContactHours: 30}},
		Teachers:    []models.Teacher{{ID: "t-9", Name: "Grace Hopper"}},
		Rooms:       []models.Room{{ID: "r-9", Number: "201", Kind: models.RoomKindClass, Capacity: 50}},
		Batches:     []models.Batch{{ID: "b-9", Code: "MAT-2025", StudentCount: 45}},
		Assignments: []models.BatchCourse{{BatchID: "b-9", CourseID: "c-9"}},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, dto.ImportReferenceResponse{Courses: 1, Teachers: 1, Rooms: 1, Batches: 1, Assignments: 1}, *resp)
	assert.Equal(t, []string{"c-9"}, f.courses.upserted)
	assert.Equal(t, []string{"b-9/c-9"}, f.batches.linked)
}

func TestReferenceServiceImportRollsBack(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	f := newReferenceFixture(tx)
	f.courses.err = errors.New("duplicate code")

	_, err := f.svc.Import(context.Background(), dto.ImportReferenceRequest{
		Courses: []models.Course{{ID: "c-9", Code: "MAT201", Kind: models.CourseKindTheory}},
	})
	requireAppError(t, err, appErrors.ErrInternal.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceServiceImportValidation(t *testing.T) {
	f := newReferenceFixture(noopTxProvider{})

	_, err := f.svc.Import(context.Background(), dto.ImportReferenceRequest{
		Rooms: []models.Room{{ID: "r-1", Kind: "Auditorium"}},
	})
	requireAppError(t, err, appErrors.ErrValidation.Code)
}
