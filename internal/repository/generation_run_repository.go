package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

const runColumns = `id, status, total_units, placed_count, failed_count, message, meta, started_at, finished_at, created_at`

// GenerationRunRepository records the outcome of every generation.
type GenerationRunRepository struct {
	db *sqlx.DB
}

// NewGenerationRunRepository constructs a GenerationRunRepository.
func NewGenerationRunRepository(db *sqlx.DB) *GenerationRunRepository {
	return &GenerationRunRepository{db: db}
}

func (r *GenerationRunRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a run record.
func (r *GenerationRunRepository) Create(ctx context.Context, exec sqlx.ExtContext, run *models.GenerationRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if len(run.Meta) == 0 {
		run.Meta = []byte("{}")
	}
	const query = `INSERT INTO generation_runs (id, status, total_units, placed_count, failed_count, message, meta, started_at, finished_at, created_at)
VALUES (:id, :status, :total_units, :placed_count, :failed_count, :message, :meta, :started_at, :finished_at, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, run); err != nil {
		return fmt.Errorf("create generation run: %w", err)
	}
	return nil
}

// FindByID fetches a run by id.
func (r *GenerationRunRepository) FindByID(ctx context.Context, id string) (*models.GenerationRun, error) {
	query := `SELECT ` + runColumns + ` FROM generation_runs WHERE id = $1`
	var run models.GenerationRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find generation run: %w", err)
	}
	return &run, nil
}

// ListRecent returns the newest runs first.
func (r *GenerationRunRepository) ListRecent(ctx context.Context, limit int) ([]models.GenerationRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := `SELECT ` + runColumns + ` FROM generation_runs ORDER BY created_at DESC LIMIT $1`
	var runs []models.GenerationRun
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("list generation runs: %w", err)
	}
	return runs, nil
}
