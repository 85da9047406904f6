package models

import "time"

// DayOfWeek enumerates the weekdays an availability window can fall on.
type DayOfWeek string

const (
	Monday    DayOfWeek = "monday"
	Tuesday   DayOfWeek = "tuesday"
	Wednesday DayOfWeek = "wednesday"
	Thursday  DayOfWeek = "thursday"
	Friday    DayOfWeek = "friday"
	Saturday  DayOfWeek = "saturday"
	Sunday    DayOfWeek = "sunday"
)

// DaysOfWeekInOrder lists the weekdays starting on Monday.
var DaysOfWeekInOrder = []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Valid reports whether d is one of the seven weekdays.
func (d DayOfWeek) Valid() bool {
	return d.Index() >= 0
}

// Index returns the Monday based position of d, or -1.
func (d DayOfWeek) Index() int {
	for i, day := range DaysOfWeekInOrder {
		if day == d {
			return i
		}
	}
	return -1
}

// Weekday converts d to the time package representation.
func (d DayOfWeek) Weekday() time.Weekday {
	return time.Weekday((d.Index() + 1) % 7)
}

// Schedule holds a user's timezone and weekly availability.
type Schedule struct {
	ID             string                 `db:"id" json:"id"`
	Timezone       string                 `db:"timezone" json:"timezone"`
	ClerkUserID    string                 `db:"clerk_user_id" json:"clerkUserId"`
	CreatedAt      time.Time              `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time              `db:"updated_at" json:"updatedAt"`
	Availabilities []ScheduleAvailability `db:"-" json:"availabilities"`
}

// ScheduleAvailability is a single weekly window such as monday 09:00-17:00.
type ScheduleAvailability struct {
	ID         string    `db:"id" json:"id"`
	ScheduleID string    `db:"schedule_id" json:"scheduleId"`
	StartTime  string    `db:"start_time" json:"startTime"`
	EndTime    string    `db:"end_time" json:"endTime"`
	DayOfWeek  DayOfWeek `db:"day_of_week" json:"dayOfWeek"`
}

// ScheduleInput is a validated schedule payload.
type ScheduleInput struct {
	Timezone       string
	Availabilities []AvailabilityInput
}

// AvailabilityInput is a validated availability window.
type AvailabilityInput struct {
	DayOfWeek DayOfWeek
	StartTime string
	EndTime   string
}
