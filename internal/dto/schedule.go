package dto

// ScheduleForm is the raw schedule payload.
type ScheduleForm struct {
	Timezone       string             `json:"timezone" validate:"required,timezone"`
	Availabilities []AvailabilityForm `json:"availabilities" validate:"dive"`
}

// AvailabilityForm is one submitted weekly window.
type AvailabilityForm struct {
	DayOfWeek string `json:"dayOfWeek" validate:"required,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	StartTime string `json:"startTime" validate:"required,clock"`
	EndTime   string `json:"endTime" validate:"required,clock"`
}
