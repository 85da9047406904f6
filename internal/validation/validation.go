// Package validation turns raw form payloads into normalized domain input.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	_ "time/tzdata" // timezone checks must not depend on the host zoneinfo

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/booking-calendar-api/internal/dto"
	"github.com/noah-isme/booking-calendar-api/internal/models"
	appErrors "github.com/noah-isme/booking-calendar-api/pkg/errors"
)

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Messages shown to the form, keyed by "<field>.<rule>" with a "<rule>" fallback.
var messages = map[string]string{
	"durationInMinutes.gt":  "Duration must be greater than 0",
	"durationInMinutes.lte": fmt.Sprintf("Duration must be less than 12 hours (%d minutes)", models.MaxEventDurationMinutes),
	"timezone.timezone":     "Invalid timezone",
	"dayOfWeek.oneof":       "Invalid day of week",
	"required":              "Required",
	"clock":                 "Time must be in HH:MM format",
}

// Schema validates event and schedule forms.
type Schema struct {
	validate *validator.Validate
}

// New wires the custom rules into validate. A nil validator gets a fresh instance.
func New(validate *validator.Validate) *Schema {
	if validate == nil {
		validate = validator.New()
	}
	validate.RegisterTagNameFunc(jsonFieldName)
	_ = validate.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		return clockPattern.MatchString(fl.Field().String())
	})
	validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
		if f, ok := v.Interface().(dto.FlexibleInt); ok {
			return f.Value
		}
		return nil
	}, dto.FlexibleInt{})
	return &Schema{validate: validate}
}

// Event checks an event form and returns the normalized input.
// A duration that could not be coerced to an integer replaces its bound violations.
func (s *Schema) Event(form dto.EventForm) (models.EventInput, error) {
	details, err := fieldErrors(s.validate.Struct(form))
	if err != nil {
		return models.EventInput{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if duration := form.DurationInMinutes; !duration.Valid() {
		details = append(withoutField(details, "durationInMinutes"), coercionFailure("durationInMinutes", duration))
	}
	if len(details) > 0 {
		return models.EventInput{}, appErrors.Validation("invalid event payload", details)
	}

	return models.EventInput{
		Name:              form.Name,
		Description:       form.Description,
		DurationInMinutes: form.DurationInMinutes.Int(),
		IsActive:          *form.IsActive,
	}, nil
}

// Schedule checks a schedule form, including ordering and overlap of windows on the same day.
func (s *Schema) Schedule(form dto.ScheduleForm) (models.ScheduleInput, error) {
	if err := s.validate.Struct(form); err != nil {
		return models.ScheduleInput{}, s.failure("invalid schedule payload", err)
	}

	var details []appErrors.FieldError
	for i, window := range form.Availabilities {
		if window.StartTime >= window.EndTime {
			details = append(details, appErrors.FieldError{
				Field:   fmt.Sprintf("availabilities[%d].endTime", i),
				Rule:    "after_start",
				Message: "End time must be after start time",
			})
		}
	}
	details = append(details, overlaps(form.Availabilities)...)
	if len(details) > 0 {
		return models.ScheduleInput{}, appErrors.Validation("invalid schedule payload", details)
	}

	input := models.ScheduleInput{Timezone: form.Timezone}
	for _, window := range form.Availabilities {
		input.Availabilities = append(input.Availabilities, models.AvailabilityInput{
			DayOfWeek: models.DayOfWeek(window.DayOfWeek),
			StartTime: window.StartTime,
			EndTime:   window.EndTime,
		})
	}
	return input, nil
}

// overlaps flags every window that intersects an earlier window on the same day.
// HH:MM strings compare lexically in time order.
func overlaps(windows []dto.AvailabilityForm) []appErrors.FieldError {
	byDay := make(map[string][]int)
	for i, w := range windows {
		if w.StartTime < w.EndTime {
			byDay[w.DayOfWeek] = append(byDay[w.DayOfWeek], i)
		}
	}

	var flagged []int
	for _, idx := range byDay {
		sort.Slice(idx, func(a, b int) bool { return windows[idx[a]].StartTime < windows[idx[b]].StartTime })
		latestEnd := ""
		for _, i := range idx {
			if latestEnd != "" && windows[i].StartTime < latestEnd {
				flagged = append(flagged, i)
			}
			if windows[i].EndTime > latestEnd {
				latestEnd = windows[i].EndTime
			}
		}
	}
	sort.Ints(flagged)

	details := make([]appErrors.FieldError, 0, len(flagged))
	for _, i := range flagged {
		details = append(details, appErrors.FieldError{
			Field:   fmt.Sprintf("availabilities[%d]", i),
			Rule:    "overlap",
			Message: "Availability overlaps with another",
		})
	}
	return details
}

func (s *Schema) failure(message string, err error) error {
	details, err := fieldErrors(err)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	return appErrors.Validation(message, details)
}

// fieldErrors maps validator violations to field details. Any other error is returned as is.
func fieldErrors(err error) ([]appErrors.FieldError, error) {
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}

	details := make([]appErrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, appErrors.FieldError{
			Field:   fieldPath(fe),
			Rule:    fe.Tag(),
			Message: messageFor(fe.Field(), fe.Tag()),
		})
	}
	return details, nil
}

func withoutField(details []appErrors.FieldError, field string) []appErrors.FieldError {
	kept := details[:0]
	for _, d := range details {
		if d.Field != field {
			kept = append(kept, d)
		}
	}
	return kept
}

func coercionFailure(field string, value dto.FlexibleInt) appErrors.FieldError {
	message := fmt.Sprintf("Expected number, received %s", value.Raw)
	if value.Issue == dto.IssueNotInteger {
		message = fmt.Sprintf("Expected integer, received %s", value.Raw)
	}
	return appErrors.FieldError{Field: field, Rule: "int", Message: message}
}

func messageFor(field, rule string) string {
	if msg, ok := messages[field+"."+rule]; ok {
		return msg
	}
	if msg, ok := messages[rule]; ok {
		return msg
	}
	return "Invalid value"
}

// fieldPath drops the struct name so errors read "availabilities[0].startTime".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}
