package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/booking-calendar-api/pkg/errors"
)

// Cached view paths. A revalidation of a path drops every key under view:<path>:.
const (
	PathEvents   = "/events"
	PathSchedule = "/schedule"
	pathBook     = "/book/"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) (int, error)
}

// CacheService orchestrates the view cache and related metrics.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// BookPath is the public booking page path of owner.
func BookPath(ownerID string) string {
	return pathBook + ownerID
}

// ViewKey builds the cache key of a view rendered under path.
func ViewKey(path, suffix string) string {
	return "view:" + path + ":" + suffix
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get attempts to retrieve a cached entry. It returns true when the cache was hit.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	s.metrics.RecordCacheOperation(true, duration)
	return true, nil
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate removes cached values for the provided pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if _, err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// Revalidate marks every view cached under the given paths as stale. It never
// fails the caller: problems are logged and the next read goes to the database.
func (s *CacheService) Revalidate(ctx context.Context, paths ...string) {
	if s == nil {
		return
	}
	for _, path := range paths {
		s.metrics.RecordRevalidation(revalidationLabel(path))
		if !s.Enabled() {
			s.logger.Debug("cache disabled, revalidation skipped", zap.String("path", path))
			continue
		}
		// Revalidation follows a mutation whose own context may already be cancelled.
		_ = s.Invalidate(context.WithoutCancel(ctx), ViewKey(path, "*"))
	}
}

func revalidationLabel(path string) string {
	if strings.HasPrefix(path, pathBook) {
		return pathBook + ":userId"
	}
	return path
}
