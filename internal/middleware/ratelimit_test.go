package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/booking-calendar-api/internal/service"
)

type memoryCounter struct {
	hits map[string]int64
	err  error
}

func (m *memoryCounter) Hit(_ context.Context, key string, _ time.Duration) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	if m.hits == nil {
		m.hits = make(map[string]int64)
	}
	m.hits[key]++
	return m.hits[key], nil
}

func serveN(r *gin.Engine, n int) []int {
	codes := make([]int, 0, n)
	for i := 0; i < n; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/book/u1", nil))
		codes = append(codes, w.Code)
	}
	return codes
}

func TestRateLimitRejectsAboveLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.GET("/book/:userId", RateLimit(&memoryCounter{}, 2, time.Minute, metrics, nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, []int{200, 200, 429, 429}, serveN(r, 4))

	expected := `
# HELP public_rate_limited_total Public booking requests rejected by the rate limiter
# TYPE public_rate_limited_total counter
public_rate_limited_total 2
`
	assert.NoError(t, testutil.GatherAndCompare(metrics.Registry(), strings.NewReader(expected), "public_rate_limited_total"))
}

func TestRateLimitFailsOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/book/:userId", RateLimit(&memoryCounter{err: assert.AnError}, 1, time.Minute, nil, nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, []int{200, 200, 200}, serveN(r, 3))
}

func TestRateLimitCountsSignedInVisitorsSeparately(t *testing.T) {
	gin.SetMode(gin.TestMode)
	counter := &memoryCounter{}
	r := gin.New()
	r.GET("/book/:userId",
		OptionalIdentity(stubVerifier{"tok": "user_1"}),
		RateLimit(counter, 1, time.Minute, nil, nil),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	serve := func(auth string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/book/u1", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, serve(""))
	assert.Equal(t, http.StatusTooManyRequests, serve(""))
	assert.Equal(t, http.StatusOK, serve("Bearer tok"))
	assert.Equal(t, http.StatusTooManyRequests, serve("Bearer tok"))
	assert.Equal(t, http.StatusTooManyRequests, serve("Bearer forged"))

	assert.Equal(t, int64(2), counter.hits["rate_limit:user:user_1:/book/:userId"])
}
