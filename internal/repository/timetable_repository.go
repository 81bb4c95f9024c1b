package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

const timetableColumns = `id, run_id, batch_id, course_id, teacher_id, room_id, day, time_slot, group_name, group_size,
course_code, course_name, batch_name, teacher_name, room_number, created_at`

// insertChunk keeps a multi-row insert well under the postgres bind parameter limit.
const insertChunk = 500

// TimetableRepository stores the current generated timetable.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs a TimetableRepository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ReplaceAll deletes the stored timetable and bulk-inserts entries.
// Callers pass a transaction so readers never observe a half-written grid.
func (r *TimetableRepository) ReplaceAll(ctx context.Context, exec sqlx.ExtContext, runID string, entries []models.TimetableEntry) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM timetable_entries`); err != nil {
		return fmt.Errorf("clear timetable: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]models.TimetableEntry, len(entries))
	for i, entry := range entries {
		entry.RunID = runID
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		rows[i] = entry
	}

	const query = `INSERT INTO timetable_entries (id, run_id, batch_id, course_id, teacher_id, room_id, day, time_slot, group_name, group_size,
course_code, course_name, batch_name, teacher_name, room_number, created_at)
VALUES (:id, :run_id, :batch_id, :course_id, :teacher_id, :room_id, :day, :time_slot, :group_name, :group_size,
:course_code, :course_name, :batch_name, :teacher_name, :room_number, :created_at)`
	for start := 0; start < len(rows); start += insertChunk {
		end := start + insertChunk
		if end > len(rows) {
			end = len(rows)
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, rows[start:end]); err != nil {
			return fmt.Errorf("insert timetable entries: %w", err)
		}
	}
	return nil
}

// List returns stored entries matching filter. Rows come back in text order of
// batch name, day and slot; callers that need week order sort by position.
func (r *TimetableRepository) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, error) {
	var conditions []string
	var args []interface{}
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("batch_id", filter.BatchID)
	add("teacher_id", filter.TeacherID)
	add("room_id", filter.RoomID)
	add("day", filter.Day)

	query := `SELECT ` + timetableColumns + ` FROM timetable_entries`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY batch_name ASC, day ASC, time_slot ASC, id ASC"

	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list timetable entries: %w", err)
	}
	return entries, nil
}
