package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/booking-calendar-api/internal/handler"
	"github.com/noah-isme/booking-calendar-api/internal/models"
	"github.com/noah-isme/booking-calendar-api/internal/repository"
	"github.com/noah-isme/booking-calendar-api/internal/service"
	"github.com/noah-isme/booking-calendar-api/pkg/config"
	"github.com/noah-isme/booking-calendar-api/pkg/database"
	appErrors "github.com/noah-isme/booking-calendar-api/pkg/errors"
)

const testSecret = "router-test-secret"

type memoryCounter struct {
	hits map[string]int64
}

func (m *memoryCounter) Hit(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.hits[key]++
	return m.hits[key], nil
}

func newTestRouter(t *testing.T, rateLimit int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Env:       config.EnvDevelopment,
		APIPrefix: "/api/v1",
		Database:  config.DatabaseConfig{Driver: config.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "router.db")},
		Auth:      config.AuthConfig{Secret: testSecret, SignInURL: "/login"},
		Public:    config.PublicConfig{RateLimit: rateLimit, RateWindow: time.Minute},
		Formatter: config.FormatterConfig{Locale: "ru"},
	}

	db, err := database.Open(cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(db, cfg.Database.Driver, nil))

	metrics := service.NewMetricsService()
	cache := service.NewCacheService(repository.NewCacheRepository(nil, nil), metrics, time.Minute, nil, false)
	events := service.NewEventService(repository.NewEventRepository(db, metrics), nil, cache, metrics, nil)
	schedules := service.NewScheduleService(repository.NewScheduleRepository(db, metrics), nil, cache, metrics, nil)
	identity, err := service.NewIdentityService(cfg.Auth, nil)
	require.NoError(t, err)

	return NewRouter(cfg, Dependencies{
		Events:    handler.NewEventHandler(events, service.NewExportService(events, cfg.Formatter.Locale, nil)),
		Schedules: handler.NewScheduleHandler(schedules),
		Public:    handler.NewPublicHandler(events, service.NewCalendarFeedService(schedules, nil)),
		Ops:       handler.NewMetricsHandler(metrics, map[string]handler.Pinger{"database": db}, nil),
		Verifier:  identity,
		Limiter:   &memoryCounter{hits: map[string]int64{}},
		Metrics:   metrics,
	})
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, models.IdentityClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func do(r *gin.Engine, method, path, auth string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details []appErrors.FieldError `json:"details"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestPrivateRoutesRequireIdentity(t *testing.T) {
	r := newTestRouter(t, 100)

	w := do(r, http.MethodGet, "/api/v1/events", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "/login", decode(t, w).Meta["sign_in_url"])

	w = do(r, http.MethodPost, "/api/v1/events", "Bearer forged", `{"name":"x","isActive":true,"durationInMinutes":10}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEventLifecycleThroughRouter(t *testing.T) {
	r := newTestRouter(t, 100)
	alice, bob := bearer(t, "user_alice"), bearer(t, "user_bob")

	w := do(r, http.MethodPost, "/api/v1/events", alice, `{"name":"Intro","isActive":true,"durationInMinutes":"90"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Event
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))
	assert.Equal(t, "user_alice", created.ClerkUserID)

	w = do(r, http.MethodPost, "/api/v1/events", alice, `{"name":"Hidden","isActive":false,"durationInMinutes":15}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodPost, "/api/v1/events", alice, `{"name":"","isActive":true,"durationInMinutes":721}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w).Error.Code)

	w = do(r, http.MethodPut, "/api/v1/events/"+created.ID, bob, `{"name":"Mine now","isActive":true,"durationInMinutes":30}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/api/v1/book/user_alice", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var public []models.PublicEvent
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &public))
	require.Len(t, public, 1)
	assert.Equal(t, "Intro", public[0].Name)

	w = do(r, http.MethodGet, "/api/v1/book/user_alice/"+created.ID, "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/v1/events/export?format=csv", alice, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Intro,1 час 30 минут,90,true")

	w = do(r, http.MethodDelete, "/api/v1/events/"+created.ID, alice, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodGet, "/api/v1/events/"+created.ID, alice, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUncoercibleDurationGoesThroughEventActions(t *testing.T) {
	r := newTestRouter(t, 100)
	alice := bearer(t, "user_alice")

	w := do(r, http.MethodPost, "/api/v1/events", alice, `{"name":"Call","isActive":true,"durationInMinutes":30}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Event
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))

	w = do(r, http.MethodPost, "/api/v1/events", alice, `{"name":"Call","isActive":true,"durationInMinutes":"abc"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, "failed to create event: invalid event payload", env.Error.Message)
	require.Len(t, env.Error.Details, 1)
	assert.Equal(t, appErrors.FieldError{Field: "durationInMinutes", Rule: "int", Message: "Expected number, received abc"}, env.Error.Details[0])

	w = do(r, http.MethodPut, "/api/v1/events/"+created.ID, alice, `{"name":"Call","isActive":true,"durationInMinutes":1.5}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	env = decode(t, w)
	assert.Equal(t, "failed to update event: invalid event payload", env.Error.Message)
	require.Len(t, env.Error.Details, 1)
	assert.Equal(t, "Expected integer, received 1.5", env.Error.Details[0].Message)

	metrics := do(r, http.MethodGet, "/metrics", "", "").Body.String()
	assert.Contains(t, metrics, `view_revalidations_total{path="/events"} 3`)
	assert.Contains(t, metrics, `view_revalidations_total{path="/book/:userId"} 3`)
	assert.Contains(t, metrics, `booking_mutations_total{action="event.create",outcome="rejected"} 1`)
	assert.Contains(t, metrics, `booking_mutations_total{action="event.update",outcome="rejected"} 1`)
}

func TestScheduleAndFeedThroughRouter(t *testing.T) {
	r := newTestRouter(t, 100)
	alice := bearer(t, "user_alice")

	w := do(r, http.MethodGet, "/api/v1/book/user_alice/availability.ics", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPut, "/api/v1/schedule", alice, `{"timezone":"Europe/Moscow","availabilities":[{"dayOfWeek":"monday","startTime":"09:00","endTime":"12:00"},{"dayOfWeek":"monday","startTime":"11:00","endTime":"13:00"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPut, "/api/v1/schedule", alice, `{"timezone":"Europe/Moscow","availabilities":[{"dayOfWeek":"tuesday","startTime":"09:00","endTime":"12:00"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, http.MethodGet, "/api/v1/book/user_alice/availability.ics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, strings.Count(w.Body.String(), "BEGIN:VEVENT"))
	assert.Contains(t, w.Body.String(), "RRULE:FREQ=WEEKLY;BYDAY=TU")
}

func TestPublicRoutesAreRateLimited(t *testing.T) {
	r := newTestRouter(t, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, do(r, http.MethodGet, "/api/v1/book/user_alice", "", "").Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/book/user_alice", bearer(t, "user_bob"), "").Code)
}

func TestOpsRoutes(t *testing.T) {
	r := newTestRouter(t, 100)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ready", "", "").Code)

	do(r, http.MethodGet, "/api/v1/book/user_alice", "", "")
	w := do(r, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",path="/api/v1/book/:userId",status="200"} 1`)
}
