package models

import "time"

// MaxEventDurationMinutes caps a single event at twelve hours.
const MaxEventDurationMinutes = 60 * 12

// Event is a bookable meeting type owned by one user of the identity provider.
type Event struct {
	ID                string    `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	Description       *string   `db:"description" json:"description,omitempty"`
	DurationInMinutes int       `db:"duration_in_minutes" json:"durationInMinutes"`
	ClerkUserID       string    `db:"clerk_user_id" json:"clerkUserId"`
	IsActive          bool      `db:"is_active" json:"isActive"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`
}

// EventInput is a validated, normalized event payload.
type EventInput struct {
	Name              string
	Description       *string
	DurationInMinutes int
	IsActive          bool
}

// Apply copies the input onto the event.
func (in EventInput) Apply(event *Event) {
	event.Name = in.Name
	event.Description = in.Description
	event.DurationInMinutes = in.DurationInMinutes
	event.IsActive = in.IsActive
}

// PublicEvent is an event that is visible on a booking page. It can only be built
// from an active event, so holders never need to re-check the flag.
type PublicEvent struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Description       *string `json:"description,omitempty"`
	DurationInMinutes int     `json:"durationInMinutes"`
	ClerkUserID       string  `json:"clerkUserId"`
}

// NewPublicEvent narrows event to a PublicEvent. ok is false for inactive events.
func NewPublicEvent(event Event) (PublicEvent, bool) {
	if !event.IsActive {
		return PublicEvent{}, false
	}
	return PublicEvent{
		ID:                event.ID,
		Name:              event.Name,
		Description:       event.Description,
		DurationInMinutes: event.DurationInMinutes,
		ClerkUserID:       event.ClerkUserID,
	}, true
}

// IsActive is always true for a public event.
func (PublicEvent) IsActive() bool { return true }

// EventFilter narrows event listings.
type EventFilter struct {
	OwnerID    string
	ActiveOnly bool
}
