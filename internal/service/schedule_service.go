package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/noah-isme/booking-calendar-api/internal/dto"
	"github.com/noah-isme/booking-calendar-api/internal/models"
	"github.com/noah-isme/booking-calendar-api/internal/validation"
	appErrors "github.com/noah-isme/booking-calendar-api/pkg/errors"
)

type scheduleRepository interface {
	FindByOwner(ctx context.Context, ownerID string) (*models.Schedule, error)
	Save(ctx context.Context, ownerID string, input models.ScheduleInput) (*models.Schedule, error)
}

// ScheduleService manages the weekly availability of a user.
type ScheduleService struct {
	repo    scheduleRepository
	schema  *validation.Schema
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewScheduleService constructs a ScheduleService. cache and metrics may be nil.
func NewScheduleService(repo scheduleRepository, schema *validation.Schema, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *ScheduleService {
	if schema == nil {
		schema = validation.New(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, schema: schema, cache: cache, metrics: metrics, logger: logger}
}

// Get returns the schedule of ownerID. A user without a schedule yields found=false.
func (s *ScheduleService) Get(ctx context.Context, ownerID string) (*models.Schedule, bool, error) {
	if ownerID == "" {
		return nil, false, nil
	}
	schedule, err := s.repo.FindByOwner(ctx, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return schedule, true, nil
}

// Save replaces the caller's schedule and availability windows.
func (s *ScheduleService) Save(ctx context.Context, caller models.Caller, form dto.ScheduleForm) (schedule *models.Schedule, err error) {
	defer func() {
		if caller.Authenticated() {
			s.cache.Revalidate(ctx, PathSchedule, BookPath(caller.UserID))
		} else {
			s.cache.Revalidate(ctx, PathSchedule)
		}
		if err == nil {
			s.metrics.RecordMutation("schedule.save", OutcomeSuccess)
			return
		}
		prefixed := appErrors.Prefix(err, "failed to save schedule")
		if prefixed.Status >= http.StatusInternalServerError {
			s.metrics.RecordMutation("schedule.save", OutcomeFailed)
			s.logger.Error("schedule save failed", zap.String("caller_id", caller.UserID), zap.Error(err))
		} else {
			s.metrics.RecordMutation("schedule.save", OutcomeRejected)
		}
		err = prefixed
	}()

	if !caller.Authenticated() {
		return nil, errSignInRequired
	}
	input, err := s.schema.Schedule(form)
	if err != nil {
		return nil, err
	}
	return s.repo.Save(ctx, caller.UserID, input)
}
