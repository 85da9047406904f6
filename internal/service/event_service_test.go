package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/booking-calendar-api/internal/dto"
	"github.com/noah-isme/booking-calendar-api/internal/models"
	appErrors "github.com/noah-isme/booking-calendar-api/pkg/errors"
)

type mockEventRepo struct {
	events    map[string]models.Event
	listCalls int
	createErr error
	updateErr error
}

func newMockEventRepo(events ...models.Event) *mockEventRepo {
	repo := &mockEventRepo{events: make(map[string]models.Event)}
	for _, e := range events {
		repo.events[e.ID] = e
	}
	return repo
}

func (m *mockEventRepo) List(_ context.Context, filter models.EventFilter) ([]models.Event, error) {
	m.listCalls++
	out := make([]models.Event, 0)
	for _, e := range m.events {
		if e.ClerkUserID != filter.OwnerID || (filter.ActiveOnly && !e.IsActive) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

func (m *mockEventRepo) FindByOwner(_ context.Context, ownerID, id string) (*models.Event, error) {
	e, ok := m.events[id]
	if !ok || e.ClerkUserID != ownerID {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (m *mockEventRepo) Create(_ context.Context, event *models.Event) error {
	if m.createErr != nil {
		return m.createErr
	}
	event.ID = uuid.NewString()
	event.CreatedAt = time.Now().UTC()
	event.UpdatedAt = event.CreatedAt
	m.events[event.ID] = *event
	return nil
}

func (m *mockEventRepo) Update(_ context.Context, event *models.Event) (int64, error) {
	if m.updateErr != nil {
		return 0, m.updateErr
	}
	existing, ok := m.events[event.ID]
	if !ok || existing.ClerkUserID != event.ClerkUserID {
		return 0, nil
	}
	existing.Name = event.Name
	existing.Description = event.Description
	existing.DurationInMinutes = event.DurationInMinutes
	existing.IsActive = event.IsActive
	existing.UpdatedAt = time.Now().UTC()
	m.events[event.ID] = existing
	return 1, nil
}

func (m *mockEventRepo) Delete(_ context.Context, ownerID, id string) (int64, error) {
	existing, ok := m.events[id]
	if !ok || existing.ClerkUserID != ownerID {
		return 0, nil
	}
	delete(m.events, id)
	return 1, nil
}

func boolPtr(v bool) *bool { return &v }

func eventForm(name string, minutes int, active bool) dto.EventForm {
	return dto.EventForm{Name: name, IsActive: boolPtr(active), DurationInMinutes: dto.IntOf(minutes)}
}

func newEventServiceForTest(repo *mockEventRepo) (*EventService, *stubCacheRepo) {
	cacheRepo := &stubCacheRepo{}
	cache := NewCacheService(cacheRepo, NewMetricsService(), time.Minute, zap.NewNop(), true)
	return NewEventService(repo, nil, cache, NewMetricsService(), zap.NewNop()), cacheRepo
}

var alice = models.Caller{UserID: "user_alice"}

func TestEventServiceCreateAssignsOwner(t *testing.T) {
	repo := newMockEventRepo()
	svc, cacheRepo := newEventServiceForTest(repo)

	event, err := svc.Create(context.Background(), alice, eventForm("Intro call", 30, true))
	require.NoError(t, err)
	assert.Equal(t, "user_alice", event.ClerkUserID)
	assert.NotEmpty(t, event.ID)
	assert.Len(t, repo.events, 1)
	assert.Equal(t, []string{"view:/events:*", "view:/book/user_alice:*"}, cacheRepo.patterns)
}

func TestEventServiceCreateWithoutCallerInsertsNothing(t *testing.T) {
	repo := newMockEventRepo()
	svc, cacheRepo := newEventServiceForTest(repo)

	_, err := svc.Create(context.Background(), models.Caller{}, eventForm("Intro call", 30, true))
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
	assert.Equal(t, "failed to create event: sign in required", appErrors.FromError(err).Message)
	assert.Empty(t, repo.events)
	assert.Equal(t, []string{"view:/events:*"}, cacheRepo.patterns)
}

func TestEventServiceCreateRejectsInvalidForm(t *testing.T) {
	repo := newMockEventRepo()
	svc, cacheRepo := newEventServiceForTest(repo)

	_, err := svc.Create(context.Background(), alice, eventForm("", 0, true))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.True(t, strings.HasPrefix(appErr.Message, "failed to create event: "))
	assert.Len(t, appErr.Details, 2)
	assert.Empty(t, repo.events)
	assert.NotEmpty(t, cacheRepo.patterns)
}

func TestEventServiceCreateStorageFailureRevalidates(t *testing.T) {
	repo := newMockEventRepo()
	repo.createErr = assert.AnError
	svc, cacheRepo := newEventServiceForTest(repo)

	_, err := svc.Create(context.Background(), alice, eventForm("Intro call", 30, true))
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "failed to create event")
	assert.Contains(t, err.Error(), assert.AnError.Error())
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.NotEmpty(t, cacheRepo.patterns)
}

func TestEventServiceUpdateScopesToOwner(t *testing.T) {
	id := uuid.NewString()
	repo := newMockEventRepo(models.Event{ID: id, Name: "Original", DurationInMinutes: 15, ClerkUserID: "user_bob", IsActive: true})
	svc, cacheRepo := newEventServiceForTest(repo)

	_, err := svc.Update(context.Background(), alice, id, eventForm("Hijacked", 60, false))
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Equal(t, "Original", repo.events[id].Name)
	assert.NotEmpty(t, cacheRepo.patterns)

	updated, err := svc.Update(context.Background(), models.Caller{UserID: "user_bob"}, id, eventForm("Renamed", 60, false))
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.False(t, updated.IsActive)
}

func TestEventServiceUpdateMalformedIDIsNotFound(t *testing.T) {
	svc, _ := newEventServiceForTest(newMockEventRepo())

	_, err := svc.Update(context.Background(), alice, "not-a-uuid", eventForm("Name", 30, true))
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestEventServiceDelete(t *testing.T) {
	id := uuid.NewString()
	repo := newMockEventRepo(models.Event{ID: id, Name: "Call", DurationInMinutes: 15, ClerkUserID: "user_alice", IsActive: true})
	svc, cacheRepo := newEventServiceForTest(repo)
	ctx := context.Background()

	err := svc.Delete(ctx, models.Caller{UserID: "user_bob"}, id)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Len(t, repo.events, 1)

	require.NoError(t, svc.Delete(ctx, alice, id))
	assert.Empty(t, repo.events)

	err = svc.Delete(ctx, alice, id)
	require.Error(t, err)
	assert.Equal(t, "failed to delete event: event not found or not owned by caller", appErrors.FromError(err).Message)

	err = svc.Delete(ctx, models.Caller{}, id)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
	assert.Len(t, cacheRepo.patterns, 7)
}

func TestEventServiceListOrdersAndCaches(t *testing.T) {
	repo := newMockEventRepo(
		models.Event{ID: uuid.NewString(), Name: "zeta", ClerkUserID: "user_alice", IsActive: true},
		models.Event{ID: uuid.NewString(), Name: "Alpha", ClerkUserID: "user_alice"},
		models.Event{ID: uuid.NewString(), Name: "beta", ClerkUserID: "user_alice", IsActive: true},
		models.Event{ID: uuid.NewString(), Name: "aaa", ClerkUserID: "user_bob", IsActive: true},
	)
	svc, _ := newEventServiceForTest(repo)
	ctx := context.Background()

	events, err := svc.List(ctx, "user_alice")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []string{"Alpha", "beta", "zeta"}, []string{events[0].Name, events[1].Name, events[2].Name})

	_, err = svc.List(ctx, "user_alice")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)

	_, err = svc.Create(ctx, alice, eventForm("gamma", 30, true))
	require.NoError(t, err)
	events, err = svc.List(ctx, "user_alice")
	require.NoError(t, err)
	assert.Len(t, events, 4)
	assert.Equal(t, 2, repo.listCalls)
}

func TestEventServiceListPublicFiltersInactive(t *testing.T) {
	repo := newMockEventRepo(
		models.Event{ID: uuid.NewString(), Name: "Hidden", ClerkUserID: "user_alice", IsActive: false},
		models.Event{ID: uuid.NewString(), Name: "b visible", ClerkUserID: "user_alice", IsActive: true},
		models.Event{ID: uuid.NewString(), Name: "A visible", ClerkUserID: "user_alice", IsActive: true},
	)
	svc, _ := newEventServiceForTest(repo)

	public, err := svc.ListPublic(context.Background(), "user_alice")
	require.NoError(t, err)
	require.Len(t, public, 2)
	assert.Equal(t, "A visible", public[0].Name)
	for _, e := range public {
		assert.True(t, e.IsActive())
	}

	empty, err := svc.ListPublic(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestEventServiceGet(t *testing.T) {
	activeID, inactiveID := uuid.NewString(), uuid.NewString()
	repo := newMockEventRepo(
		models.Event{ID: activeID, Name: "Open", ClerkUserID: "user_alice", IsActive: true},
		models.Event{ID: inactiveID, Name: "Closed", ClerkUserID: "user_alice", IsActive: false},
	)
	svc, _ := newEventServiceForTest(repo)
	ctx := context.Background()

	event, found, err := svc.Get(ctx, "user_alice", inactiveID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Closed", event.Name)

	_, found, err = svc.Get(ctx, "user_bob", activeID)
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = svc.Get(ctx, "user_alice", "garbage")
	require.NoError(t, err)
	assert.False(t, found)

	public, found, err := svc.GetPublic(ctx, "user_alice", activeID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Open", public.Name)

	_, found, err = svc.GetPublic(ctx, "user_alice", inactiveID)
	require.NoError(t, err)
	assert.False(t, found)
}
