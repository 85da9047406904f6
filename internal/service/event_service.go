package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/booking-calendar-api/internal/dto"
	"github.com/noah-isme/booking-calendar-api/internal/models"
	"github.com/noah-isme/booking-calendar-api/internal/validation"
	appErrors "github.com/noah-isme/booking-calendar-api/pkg/errors"
)

type eventRepository interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	FindByOwner(ctx context.Context, ownerID, id string) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) (int64, error)
	Delete(ctx context.Context, ownerID, id string) (int64, error)
}

var (
	errSignInRequired = appErrors.Clone(appErrors.ErrUnauthorized, "sign in required")
	errEventNotOwned  = appErrors.Clone(appErrors.ErrNotFound, "event not found or not owned by caller")
)

// EventService implements the event actions: owner scoped mutations and cached listings.
type EventService struct {
	repo    eventRepository
	schema  *validation.Schema
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewEventService constructs an EventService. cache and metrics may be nil.
func NewEventService(repo eventRepository, schema *validation.Schema, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *EventService {
	if schema == nil {
		schema = validation.New(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{repo: repo, schema: schema, cache: cache, metrics: metrics, logger: logger}
}

// Create validates form and stores a new event owned by caller.
func (s *EventService) Create(ctx context.Context, caller models.Caller, form dto.EventForm) (_ *models.Event, err error) {
	defer s.complete(ctx, "create", caller, &err)

	if !caller.Authenticated() {
		return nil, errSignInRequired
	}
	input, err := s.schema.Event(form)
	if err != nil {
		return nil, err
	}

	event := &models.Event{ClerkUserID: caller.UserID}
	input.Apply(event)
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// Update rewrites an event the caller owns. Events owned by someone else are reported as not found.
func (s *EventService) Update(ctx context.Context, caller models.Caller, id string, form dto.EventForm) (_ *models.Event, err error) {
	defer s.complete(ctx, "update", caller, &err)

	if !caller.Authenticated() {
		return nil, errSignInRequired
	}
	input, err := s.schema.Event(form)
	if err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, errEventNotOwned
	}

	event := &models.Event{ID: id, ClerkUserID: caller.UserID}
	input.Apply(event)
	affected, err := s.repo.Update(ctx, event)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, errEventNotOwned
	}

	stored, err := s.repo.FindByOwner(ctx, caller.UserID, id)
	if err != nil {
		s.logger.Warn("reload updated event", zap.String("event_id", id), zap.Error(err))
		return event, nil
	}
	return stored, nil
}

// Delete removes an event the caller owns.
func (s *EventService) Delete(ctx context.Context, caller models.Caller, id string) (err error) {
	defer s.complete(ctx, "delete", caller, &err)

	if !caller.Authenticated() {
		return errSignInRequired
	}
	if !validID(id) {
		return errEventNotOwned
	}

	affected, err := s.repo.Delete(ctx, caller.UserID, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return errEventNotOwned
	}
	return nil
}

// List returns every event of ownerID ordered case-insensitively by name.
func (s *EventService) List(ctx context.Context, ownerID string) ([]models.Event, error) {
	key := ViewKey(PathEvents, ownerID)
	var events []models.Event
	if hit, _ := s.cache.Get(ctx, key, &events); hit {
		return events, nil
	}

	events, err := s.repo.List(ctx, models.EventFilter{OwnerID: ownerID})
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, events, 0)
	return events, nil
}

// Get returns one event of ownerID. Absence is reported through found, never as an error.
func (s *EventService) Get(ctx context.Context, ownerID, id string) (*models.Event, bool, error) {
	if !validID(id) {
		return nil, false, nil
	}
	event, err := s.repo.FindByOwner(ctx, ownerID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return event, true, nil
}

// ListPublic returns the active events of ownerID for the booking page.
func (s *EventService) ListPublic(ctx context.Context, ownerID string) ([]models.PublicEvent, error) {
	key := ViewKey(BookPath(ownerID), "events")
	var public []models.PublicEvent
	if hit, _ := s.cache.Get(ctx, key, &public); hit {
		return public, nil
	}

	events, err := s.repo.List(ctx, models.EventFilter{OwnerID: ownerID, ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	public = make([]models.PublicEvent, 0, len(events))
	for _, event := range events {
		if p, ok := models.NewPublicEvent(event); ok {
			public = append(public, p)
		}
	}
	_ = s.cache.Set(ctx, key, public, 0)
	return public, nil
}

// GetPublic returns one active event of ownerID. Inactive events are not found.
func (s *EventService) GetPublic(ctx context.Context, ownerID, id string) (*models.PublicEvent, bool, error) {
	event, found, err := s.Get(ctx, ownerID, id)
	if err != nil || !found {
		return nil, false, err
	}
	public, ok := models.NewPublicEvent(*event)
	if !ok {
		return nil, false, nil
	}
	return &public, true, nil
}

// complete runs after every mutation whatever its outcome: cached views are
// revalidated and a failure is re-raised as one descriptive error.
func (s *EventService) complete(ctx context.Context, action string, caller models.Caller, errp *error) {
	paths := []string{PathEvents}
	if caller.Authenticated() {
		paths = append(paths, BookPath(caller.UserID))
	}
	s.cache.Revalidate(ctx, paths...)

	if *errp == nil {
		s.metrics.RecordMutation("event."+action, OutcomeSuccess)
		return
	}

	prefixed := appErrors.Prefix(*errp, "failed to "+action+" event")
	if prefixed.Status >= http.StatusInternalServerError {
		s.metrics.RecordMutation("event."+action, OutcomeFailed)
		s.logger.Error("event mutation failed", zap.String("action", action), zap.String("caller_id", caller.UserID), zap.Error(*errp))
	} else {
		s.metrics.RecordMutation("event."+action, OutcomeRejected)
	}
	*errp = prefixed
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
