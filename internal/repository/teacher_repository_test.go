package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func TestTeacherRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "short_name", "email", "availability", "created_at", "updated_at"}).
		AddRow("t1", "Teacher A", "TA", "a@example.com", "{Sunday,Monday}", now, now).
		AddRow("t2", "Teacher B", "", "b@example.com", "{}", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, short_name, email, availability, created_at, updated_at FROM teachers ORDER BY name ASC, id ASC")).
		WillReturnRows(rows)

	teachers, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, teachers, 2)
	assert.Equal(t, pq.StringArray{"Sunday", "Monday"}, teachers[0].Availability)
	assert.Empty(t, teachers[1].Availability)
	assert.Equal(t, "Teacher B", teachers[1].Label())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectExec("INSERT INTO teachers .* ON CONFLICT \\(id\\) DO UPDATE").
		WithArgs(sqlmock.AnyArg(), "Teacher A", "TA", "a@example.com", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	teacher := &models.Teacher{Name: "Teacher A", ShortName: "TA", Email: "a@example.com", Availability: pq.StringArray{"Monday"}}
	require.NoError(t, repo.Upsert(context.Background(), nil, teacher))
	assert.NotEmpty(t, teacher.ID)
	assert.False(t, teacher.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
