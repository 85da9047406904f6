package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/booking-calendar-api/internal/service"
	appErrors "github.com/noah-isme/booking-calendar-api/pkg/errors"
	"github.com/noah-isme/booking-calendar-api/pkg/response"
)

// HitCounter counts requests in a fixed window, usually backed by Redis.
type HitCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimit caps requests per client and route within window. Signed-in
// visitors are counted by user id, everyone else by IP. Counter failures let
// the request through.
func RateLimit(counter HitCounter, limit int, window time.Duration, metrics *service.MetricsService, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		if counter == nil || limit <= 0 {
			c.Next()
			return
		}

		key := "rate_limit:" + clientKey(c) + ":" + c.FullPath()
		count, err := counter.Hit(c.Request.Context(), key, window)
		if err != nil {
			log.Warn("rate limit counter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		if count > int64(limit) {
			metrics.RecordRateLimited()
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}

		c.Next()
	}
}

func clientKey(c *gin.Context) string {
	if caller := CallerFrom(c); caller.Authenticated() {
		return "user:" + caller.UserID
	}
	return "ip:" + c.ClientIP()
}
