package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/booking-calendar-api/internal/models"
)

const eventColumns = "id, name, description, duration_in_minutes, clerk_user_id, is_active, created_at, updated_at"

// EventRepository handles persistence for events.
type EventRepository struct {
	db  *sqlx.DB
	obs QueryObserver
}

// NewEventRepository instantiates an event repository. obs may be nil.
func NewEventRepository(db *sqlx.DB, obs QueryObserver) *EventRepository {
	return &EventRepository{db: db, obs: observerOrNop(obs)}
}

// List returns the owner's events ordered case-insensitively by name.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	defer observe(r.obs, "events.list", time.Now())

	query := "SELECT " + eventColumns + " FROM events WHERE clerk_user_id = ?"
	args := []interface{}{filter.OwnerID}
	if filter.ActiveOnly {
		query += " AND is_active = ?"
		args = append(args, true)
	}
	query += " ORDER BY LOWER(name) ASC"

	events := make([]models.Event, 0)
	if err := r.db.SelectContext(ctx, &events, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// FindByOwner loads one event belonging to ownerID. It returns sql.ErrNoRows when absent.
func (r *EventRepository) FindByOwner(ctx context.Context, ownerID, id string) (*models.Event, error) {
	defer observe(r.obs, "events.find", time.Now())

	query := r.db.Rebind("SELECT " + eventColumns + " FROM events WHERE id = ? AND clerk_user_id = ?")
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id, ownerID); err != nil {
		return nil, err
	}
	return &event, nil
}

// Create inserts a new event row.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	defer observe(r.obs, "events.create", time.Now())

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now

	const query = `INSERT INTO events (id, name, description, duration_in_minutes, clerk_user_id, is_active, created_at, updated_at) VALUES (:id, :name, :description, :duration_in_minutes, :clerk_user_id, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of an event the owner holds and reports rows affected.
// Zero rows means the event does not exist or belongs to someone else.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) (int64, error) {
	defer observe(r.obs, "events.update", time.Now())

	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE events SET name = :name, description = :description, duration_in_minutes = :duration_in_minutes, is_active = :is_active, updated_at = :updated_at WHERE id = :id AND clerk_user_id = :clerk_user_id`
	res, err := r.db.NamedExecContext(ctx, query, event)
	if err != nil {
		return 0, fmt.Errorf("update event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update event rows affected: %w", err)
	}
	return affected, nil
}

// Delete removes an event the owner holds and reports rows affected.
func (r *EventRepository) Delete(ctx context.Context, ownerID, id string) (int64, error) {
	defer observe(r.obs, "events.delete", time.Now())

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM events WHERE id = ? AND clerk_user_id = ?`), id, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete event rows affected: %w", err)
	}
	return affected, nil
}
