package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/noah-isme/booking-calendar-api/internal/models"
)

const (
	feedProductID  = "-//booking-calendar-api//availability//EN"
	icsLocalLayout = "20060102T150405"
	// Offset transitions are published this far past the schedule's last change.
	feedTimezoneHorizon = 10
)

var rruleWeekdays = map[models.DayOfWeek]rrule.Weekday{
	models.Monday:    rrule.MO,
	models.Tuesday:   rrule.TU,
	models.Wednesday: rrule.WE,
	models.Thursday:  rrule.TH,
	models.Friday:    rrule.FR,
	models.Saturday:  rrule.SA,
	models.Sunday:    rrule.SU,
}

type scheduleReader interface {
	Get(ctx context.Context, ownerID string) (*models.Schedule, bool, error)
}

// CalendarFeedService renders weekly availability as an iCalendar feed.
type CalendarFeedService struct {
	schedules scheduleReader
	logger    *zap.Logger
}

// NewCalendarFeedService constructs a CalendarFeedService.
func NewCalendarFeedService(schedules scheduleReader, logger *zap.Logger) *CalendarFeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarFeedService{schedules: schedules, logger: logger}
}

// Feed returns the availability of ownerID as text/calendar. Every window is one
// VEVENT repeating weekly in the schedule's timezone. found is false when the
// owner has no schedule.
func (s *CalendarFeedService) Feed(ctx context.Context, ownerID string) ([]byte, bool, error) {
	schedule, found, err := s.schedules.Get(ctx, ownerID)
	if err != nil || !found {
		return nil, found, err
	}

	loc, err := time.LoadLocation(schedule.Timezone)
	if err != nil {
		return nil, false, fmt.Errorf("load schedule timezone %q: %w", schedule.Timezone, err)
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(feedProductID)
	cal.SetXWRCalName("Availability")
	cal.SetXWRTimezone(schedule.Timezone)

	anchor := schedule.CreatedAt
	if anchor.IsZero() {
		anchor = time.Now()
	}
	anchor = anchor.In(loc)
	anchor = time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, loc)
	stamp := schedule.UpdatedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}

	until := anchor
	if stamp.After(until) {
		until = stamp
	}
	addTimezone(cal, schedule.Timezone, anchor, until.AddDate(feedTimezoneHorizon, 0, 0))

	for _, window := range schedule.Availabilities {
		if err := addWindow(cal, window, anchor, stamp, schedule.Timezone); err != nil {
			s.logger.Warn("skip availability window in feed", zap.String("availability_id", window.ID), zap.Error(err))
		}
	}

	return []byte(cal.Serialize()), true, nil
}

func addWindow(cal *ics.Calendar, window models.ScheduleAvailability, anchor, stamp time.Time, tz string) error {
	weekday, ok := rruleWeekdays[window.DayOfWeek]
	if !ok {
		return fmt.Errorf("unknown day of week %q", window.DayOfWeek)
	}
	startH, startM, err := parseClock(window.StartTime)
	if err != nil {
		return err
	}
	endH, endM, err := parseClock(window.EndTime)
	if err != nil {
		return err
	}

	opt := rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   anchor,
		Byweekday: []rrule.Weekday{weekday},
		Byhour:    []int{startH},
		Byminute:  []int{startM},
		Bysecond:  []int{0},
	}
	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return fmt.Errorf("build weekly rule: %w", err)
	}
	start := rule.After(anchor, true)
	if start.IsZero() {
		return fmt.Errorf("no occurrence for %s", window.DayOfWeek)
	}
	end := time.Date(start.Year(), start.Month(), start.Day(), endH, endM, 0, 0, start.Location())

	tzid := &ics.KeyValues{Key: string(ics.ParameterTzid), Value: []string{tz}}
	event := cal.AddEvent(window.ID + "@booking-calendar-api")
	event.SetDtStampTime(stamp)
	event.SetSummary("Available")
	event.SetProperty(ics.ComponentPropertyDtStart, start.Format(icsLocalLayout), tzid)
	event.SetProperty(ics.ComponentPropertyDtEnd, end.Format(icsLocalLayout), tzid)
	event.AddProperty(ics.ComponentPropertyRrule, (&rrule.ROption{Freq: rrule.WEEKLY, Byweekday: []rrule.Weekday{weekday}}).RRuleString())
	return nil
}

type tzObservance struct {
	daylight   bool
	name       string
	offsetFrom int
	offsetTo   int
}

// addTimezone writes the VTIMEZONE referenced by TZID. Each distinct observance
// starts at its first onset and lists later onsets as RDATEs.
func addTimezone(cal *ics.Calendar, tzid string, from, until time.Time) {
	name, offset := from.Zone()
	first := tzObservance{daylight: from.IsDST(), name: name, offsetFrom: offset, offsetTo: offset}
	order := []tzObservance{first}
	onsets := map[tzObservance][]string{first: {from.Format(icsLocalLayout)}}

	for t := from; ; {
		_, end := t.ZoneBounds()
		if end.IsZero() || !end.Before(until) {
			break
		}
		_, before := t.Zone()
		name, after := end.Zone()
		key := tzObservance{daylight: end.IsDST(), name: name, offsetFrom: before, offsetTo: after}
		if _, seen := onsets[key]; !seen {
			order = append(order, key)
		}
		// Onsets are written in the local time that was in effect before the change.
		onsets[key] = append(onsets[key], end.UTC().Add(time.Duration(before)*time.Second).Format(icsLocalLayout))
		t = end
	}

	tz := cal.AddTimezone(tzid)
	for _, obs := range order {
		var component *ics.ComponentBase
		if obs.daylight {
			daylight := &ics.Daylight{}
			tz.Components = append(tz.Components, daylight)
			component = &daylight.ComponentBase
		} else {
			component = &tz.AddStandard().ComponentBase
		}

		dates := onsets[obs]
		component.SetProperty(ics.ComponentPropertyDtStart, dates[0])
		for _, date := range dates[1:] {
			component.AddRdate(date)
		}
		component.SetProperty(ics.ComponentProperty(ics.PropertyTzoffsetfrom), icsOffset(obs.offsetFrom))
		component.SetProperty(ics.ComponentProperty(ics.PropertyTzoffsetto), icsOffset(obs.offsetTo))
		if obs.name != "" {
			component.SetProperty(ics.ComponentProperty(ics.PropertyTzname), obs.name)
		}
	}
}

func icsOffset(seconds int) string {
	sign := "+"
	if seconds < 0 {
		sign, seconds = "-", -seconds
	}
	return fmt.Sprintf("%s%02d%02d", sign, seconds/3600, seconds%3600/60)
}

func parseClock(value string) (int, int, error) {
	hh, mm, ok := strings.Cut(value, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid clock %q", value)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock %q: %w", value, err)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock %q: %w", value, err)
	}
	return hour, minute, nil
}
