package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Migration is one forward-only schema step.
type Migration struct {
	Version    string
	Statements []string
}

// Migrations is the ordered schema of the timetable service.
var Migrations = []Migration{
	{
		Version: "001_reference",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS teachers (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	short_name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	availability TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
			`CREATE TABLE IF NOT EXISTS courses (
	id TEXT PRIMARY KEY,
	code TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	kind TEXT NOT NULL CHECK (kind IN ('Theory', 'Lab')),
	credits NUMERIC(4,2) NOT NULL DEFAULT 0,
	contact_hours INTEGER NOT NULL DEFAULT 0,
	marks INTEGER NOT NULL DEFAULT 0,
	teacher_id TEXT REFERENCES teachers(id) ON DELETE SET NULL,
	year INTEGER NOT NULL DEFAULT 0,
	semester INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
			`CREATE TABLE IF NOT EXISTS rooms (
	id TEXT PRIMARY KEY,
	number TEXT NOT NULL,
	kind TEXT NOT NULL CHECK (kind IN ('Class', 'Lab')),
	capacity INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
			`CREATE TABLE IF NOT EXISTS batches (
	id TEXT PRIMARY KEY,
	batch_code TEXT NOT NULL,
	year INTEGER NOT NULL DEFAULT 0,
	semester INTEGER NOT NULL DEFAULT 0,
	student_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
			`CREATE TABLE IF NOT EXISTS batch_courses (
	id TEXT PRIMARY KEY,
	batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (batch_id, course_id)
)`,
		},
	},
	{
		Version: "002_timetable",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS generation_runs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	total_units INTEGER NOT NULL DEFAULT 0,
	placed_count INTEGER NOT NULL DEFAULT 0,
	failed_count INTEGER NOT NULL DEFAULT 0,
	message TEXT,
	meta JSONB NOT NULL DEFAULT '{}',
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
			`CREATE TABLE IF NOT EXISTS timetable_entries (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL DEFAULT '',
	batch_id TEXT NOT NULL,
	course_id TEXT NOT NULL,
	teacher_id TEXT NOT NULL,
	room_id TEXT NOT NULL,
	day TEXT NOT NULL,
	time_slot TEXT NOT NULL,
	group_name TEXT,
	group_size INTEGER NOT NULL DEFAULT 0,
	course_code TEXT NOT NULL DEFAULT '',
	course_name TEXT NOT NULL DEFAULT '',
	batch_name TEXT NOT NULL DEFAULT '',
	teacher_name TEXT NOT NULL DEFAULT '',
	room_number TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
			`CREATE INDEX IF NOT EXISTS idx_timetable_entries_batch ON timetable_entries (batch_id, day)`,
			`CREATE INDEX IF NOT EXISTS idx_timetable_entries_teacher ON timetable_entries (teacher_id, day)`,
			`CREATE INDEX IF NOT EXISTS idx_timetable_entries_room ON timetable_entries (room_id, day)`,
		},
	},
	{
		Version: "003_users",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	full_name TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	last_login TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
		},
	},
}

// Migrate applies every migration not yet recorded in schema_migrations.
// Each migration runs in its own transaction. It returns the versions applied.
func Migrate(ctx context.Context, db *sqlx.DB, migrations []Migration) ([]string, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	var applied []string
	for _, m := range migrations {
		var exists bool
		if err := db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, m.Version); err != nil {
			return applied, fmt.Errorf("check migration %s: %w", m.Version, err)
		}
		if exists {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return applied, err
		}
		applied = append(applied, m.Version)
	}
	return applied, nil
}

func apply(ctx context.Context, db *sqlx.DB, m Migration) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", m.Version, err)
	}
	for _, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %s: %w", m.Version, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %s: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", m.Version, err)
	}
	return nil
}
