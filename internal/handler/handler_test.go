package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type authServiceMock struct {
	resp *models.LoginResponse
	err  error
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	return m.resp, m.err
}

type referenceServiceMock struct {
	snapshot timetable.Snapshot
	imported dto.ImportReferenceRequest
	err      error
}

func (m *referenceServiceMock) Snapshot(ctx context.Context) (timetable.Snapshot, error) {
	return m.snapshot, m.err
}

func (m *referenceServiceMock) Import(ctx context.Context, req dto.ImportReferenceRequest) (*dto.ImportReferenceResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.imported = req
	return &dto.ImportReferenceResponse{Courses: len(req.Courses), Rooms: len(req.Rooms)}, nil
}

func TestAuthHandlerLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&authServiceMock{resp: &models.LoginResponse{AccessToken: "token", ExpiresIn: 3600}})

	payload, _ := json.Marshal(models.LoginRequest{Email: "admin@example.com", Password: "secret"})
	c, w := newGinContext(http.MethodPost, "/auth/login", payload)
	handler.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"access_token":"token"`)
}

func TestAuthHandlerLoginFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&authServiceMock{err: appErrors.ErrInvalidCredentials})

	payload, _ := json.Marshal(models.LoginRequest{Email: "admin@example.com", Password: "wrong"})
	c, w := newGinContext(http.MethodPost, "/auth/login", payload)
	handler.Login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerMe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&authServiceMock{})

	c, w := newGinContext(http.MethodGet, "/auth/me", nil)
	handler.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodGet, "/auth/me", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u-1", Email: "admin@example.com", Role: models.RoleAdmin})
	handler.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"ADMIN"`)
}

func TestReferenceHandlerSnapshotUsesEmptyCollections(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &referenceServiceMock{snapshot: timetable.Snapshot{
		Rooms: []models.Room{{ID: "r-1", Number: "101", Kind: models.RoomKindClass, Capacity: 40}},
	}}
	handler := NewReferenceHandler(svc)

	c, w := newGinContext(http.MethodGet, "/reference/snapshot", nil)
	handler.Snapshot(c)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"courses":[]`)
	assert.Contains(t, body, `"r-1"`)
}

func TestReferenceHandlerImport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &referenceServiceMock{}
	handler := NewReferenceHandler(svc)

	payload, _ := json.Marshal(dto.ImportReferenceRequest{
		Courses: []models.Course{{ID: "c-1", Code: "CS101", Kind: models.CourseKindTheory, ContactHours: 40}},
	})
	c, w := newGinContext(http.MethodPost, "/reference/import", payload)
	handler.Import(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.imported.Courses, 1)
	assert.Equal(t, "CS101", svc.imported.Courses[0].Code)
}

func TestReferenceHandlerImportValidationError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReferenceHandler(&referenceServiceMock{err: appErrors.Clone(appErrors.ErrValidation, "invalid reference data")})

	c, w := newGinContext(http.MethodPost, "/reference/import", []byte(`{"courses":[]}`))
	handler.Import(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	healthy := PingerFunc(func(ctx context.Context) error { return nil })
	broken := PingerFunc(func(ctx context.Context) error { return errors.New("connection refused") })

	handler := NewMetricsHandler(service.NewMetricsService(), map[string]Pinger{"database": healthy})
	c, w := newGinContext(http.MethodGet, "/ready", nil)
	handler.Ready(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ready"`)

	handler = NewMetricsHandler(service.NewMetricsService(), map[string]Pinger{"database": healthy, "redis": broken})
	c, w = newGinContext(http.MethodGet, "/ready", nil)
	handler.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	metrics.ObserveGeneration("sync", "completed", 10, 0, 50*time.Millisecond)
	handler := NewMetricsHandler(metrics, nil)

	c, w := newGinContext(http.MethodGet, "/metrics", nil)
	handler.Prometheus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "timetable_generation_runs_total")
}
