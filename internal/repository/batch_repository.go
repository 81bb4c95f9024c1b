package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// BatchRepository manages persistence for student batches and their course links.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository constructs a BatchRepository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func (r *BatchRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListAll returns every batch ordered by code.
func (r *BatchRepository) ListAll(ctx context.Context) ([]models.Batch, error) {
	const query = `SELECT id, batch_code, year, semester, student_count, created_at, updated_at FROM batches ORDER BY batch_code ASC, id ASC`
	var batches []models.Batch
	if err := r.db.SelectContext(ctx, &batches, query); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}

// ListAssignments returns every batch-course link in insertion order.
func (r *BatchRepository) ListAssignments(ctx context.Context) ([]models.BatchCourse, error) {
	const query = `SELECT id, batch_id, course_id, created_at FROM batch_courses ORDER BY created_at ASC, id ASC`
	var links []models.BatchCourse
	if err := r.db.SelectContext(ctx, &links, query); err != nil {
		return nil, fmt.Errorf("list batch courses: %w", err)
	}
	return links, nil
}

// Upsert inserts a batch or refreshes it when the id already exists.
func (r *BatchRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, batch *models.Batch) error {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = now
	}
	batch.UpdatedAt = now

	const query = `INSERT INTO batches (id, batch_code, year, semester, student_count, created_at, updated_at)
VALUES (:id, :batch_code, :year, :semester, :student_count, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET batch_code = EXCLUDED.batch_code, year = EXCLUDED.year,
    semester = EXCLUDED.semester, student_count = EXCLUDED.student_count, updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, batch); err != nil {
		return fmt.Errorf("upsert batch: %w", err)
	}
	return nil
}

// LinkCourse records that a batch attends a course; duplicate links are ignored.
func (r *BatchRepository) LinkCourse(ctx context.Context, exec sqlx.ExtContext, link *models.BatchCourse) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO batch_courses (id, batch_id, course_id, created_at)
VALUES (:id, :batch_id, :course_id, :created_at)
ON CONFLICT (batch_id, course_id) DO NOTHING`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, link); err != nil {
		return fmt.Errorf("link batch course: %w", err)
	}
	return nil
}
