package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type noopTxProvider struct{}

func (noopTxProvider) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider unavailable")
}

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func strPtr(v string) *string {
	return &v
}

// sampleSnapshot holds one batch taking a theory course twice a week and a lab split into two groups.
func sampleSnapshot() timetable.Snapshot {
	return timetable.Snapshot{
		Courses: []models.Course{
			{ID: "c-theory", Code: "CSE101", Title: "Programming", Kind: models.CourseKindTheory, ContactHours: 40, TeacherID: strPtr("t-1")},
			{ID: "c-lab", Code: "CSE102", Title: "Programming Lab", Kind: models.CourseKindLab, ContactHours: 20, TeacherID: strPtr("t-2")},
		},
		Teachers: []models.Teacher{
			{ID: "t-1", Name: "Ada Lovelace", ShortName: "AL"},
			{ID: "t-2", Name: "Alan Turing", ShortName: "AT", Availability: pq.StringArray{"Monday", "Tuesday"}},
		},
		Rooms: []models.Room{
			{ID: "r-1", Number: "101", Kind: models.RoomKindClass, Capacity: 40},
			{ID: "r-lab", Number: "L1", Kind: models.RoomKindLab, Capacity: 20},
		},
		Batches: []models.Batch{
			{ID: "b-1", Code: "CSE-2024", StudentCount: 30},
		},
		Assignments: []models.BatchCourse{
			{ID: "bc-1", BatchID: "b-1", CourseID: "c-theory"},
			{ID: "bc-2", BatchID: "b-1", CourseID: "c-lab"},
		},
	}
}

type snapshotStub struct {
	snap  timetable.Snapshot
	err   error
	calls int
}

func (s *snapshotStub) Snapshot(ctx context.Context) (timetable.Snapshot, error) {
	s.calls++
	return s.snap, s.err
}

type entryStoreStub struct {
	mu         sync.Mutex
	replaced   []models.TimetableEntry
	replaceRun string
	replaceErr error
	listed     []models.TimetableEntry
	listCalls  int
}

func (s *entryStoreStub) ReplaceAll(ctx context.Context, exec sqlx.ExtContext, runID string, entries []models.TimetableEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.replaceRun = runID
	s.replaced = append([]models.TimetableEntry(nil), entries...)
	return nil
}

func (s *entryStoreStub) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	var out []models.TimetableEntry
	for _, e := range s.listed {
		if filter.BatchID != "" && e.BatchID != filter.BatchID {
			continue
		}
		if filter.RoomID != "" && e.RoomID != filter.RoomID {
			continue
		}
		if filter.TeacherID != "" && e.TeacherID != filter.TeacherID {
			continue
		}
		if filter.Day != "" && e.Day != filter.Day {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type runRepoStub struct {
	mu      sync.Mutex
	created []models.GenerationRun
	byID    map[string]models.GenerationRun
}

func (s *runRepoStub) Create(ctx context.Context, exec sqlx.ExtContext, run *models.GenerationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, *run)
	return nil
}

func (s *runRepoStub) FindByID(ctx context.Context, id string) (*models.GenerationRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &run, nil
}

func (s *runRepoStub) ListRecent(ctx context.Context, limit int) ([]models.GenerationRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.GenerationRun(nil), s.created...), nil
}

// memoryCacheRepo stores JSON payloads in a map, mirroring the redis repository contract.
type memoryCacheRepo struct {
	mu          sync.Mutex
	items       map[string][]byte
	invalidated []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, pattern)
	m.items = make(map[string][]byte)
	return nil
}
