package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/booking-calendar-api/internal/models"
)

const scheduleColumns = "id, timezone, clerk_user_id, created_at, updated_at"

// ScheduleRepository persists schedules and their weekly availability windows.
type ScheduleRepository struct {
	db  *sqlx.DB
	obs QueryObserver
}

// NewScheduleRepository instantiates a schedule repository. obs may be nil.
func NewScheduleRepository(db *sqlx.DB, obs QueryObserver) *ScheduleRepository {
	return &ScheduleRepository{db: db, obs: observerOrNop(obs)}
}

// FindByOwner loads the owner's schedule with availabilities. It returns sql.ErrNoRows when absent.
func (r *ScheduleRepository) FindByOwner(ctx context.Context, ownerID string) (*models.Schedule, error) {
	defer observe(r.obs, "schedules.find", time.Now())

	var schedule models.Schedule
	query := r.db.Rebind("SELECT " + scheduleColumns + " FROM schedules WHERE clerk_user_id = ?")
	if err := r.db.GetContext(ctx, &schedule, query, ownerID); err != nil {
		return nil, err
	}

	availabilities, err := r.listAvailabilities(ctx, r.db, schedule.ID)
	if err != nil {
		return nil, err
	}
	schedule.Availabilities = availabilities
	return &schedule, nil
}

// Save upserts the owner's schedule and replaces its availability windows in one transaction.
func (r *ScheduleRepository) Save(ctx context.Context, ownerID string, input models.ScheduleInput) (_ *models.Schedule, err error) {
	defer observe(r.obs, "schedules.save", time.Now())

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin save schedule tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	upsert := tx.Rebind(`INSERT INTO schedules (id, timezone, clerk_user_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (clerk_user_id) DO UPDATE SET timezone = excluded.timezone, updated_at = excluded.updated_at`)
	if _, err = tx.ExecContext(ctx, upsert, uuid.NewString(), input.Timezone, ownerID, now, now); err != nil {
		return nil, fmt.Errorf("upsert schedule: %w", err)
	}

	var schedule models.Schedule
	if err = tx.GetContext(ctx, &schedule, tx.Rebind("SELECT "+scheduleColumns+" FROM schedules WHERE clerk_user_id = ?"), ownerID); err != nil {
		return nil, fmt.Errorf("load saved schedule: %w", err)
	}

	if _, err = tx.ExecContext(ctx, tx.Rebind(`DELETE FROM schedule_availabilities WHERE schedule_id = ?`), schedule.ID); err != nil {
		return nil, fmt.Errorf("clear availabilities: %w", err)
	}

	schedule.Availabilities = make([]models.ScheduleAvailability, 0, len(input.Availabilities))
	if len(input.Availabilities) > 0 {
		for _, window := range input.Availabilities {
			schedule.Availabilities = append(schedule.Availabilities, models.ScheduleAvailability{
				ID:         uuid.NewString(),
				ScheduleID: schedule.ID,
				DayOfWeek:  window.DayOfWeek,
				StartTime:  window.StartTime,
				EndTime:    window.EndTime,
			})
		}
		const insert = `INSERT INTO schedule_availabilities (id, schedule_id, start_time, end_time, day_of_week) VALUES (:id, :schedule_id, :start_time, :end_time, :day_of_week)`
		if _, err = tx.NamedExecContext(ctx, insert, schedule.Availabilities); err != nil {
			return nil, fmt.Errorf("insert availabilities: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit save schedule tx: %w", err)
	}

	sortAvailabilities(schedule.Availabilities)
	return &schedule, nil
}

func (r *ScheduleRepository) listAvailabilities(ctx context.Context, q sqlx.QueryerContext, scheduleID string) ([]models.ScheduleAvailability, error) {
	query := r.db.Rebind(`SELECT id, schedule_id, start_time, end_time, day_of_week FROM schedule_availabilities WHERE schedule_id = ?`)
	availabilities := make([]models.ScheduleAvailability, 0)
	if err := sqlx.SelectContext(ctx, q, &availabilities, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list availabilities: %w", err)
	}
	sortAvailabilities(availabilities)
	return availabilities, nil
}

// sortAvailabilities orders windows Monday first, then by start time.
func sortAvailabilities(items []models.ScheduleAvailability) {
	sort.SliceStable(items, func(i, j int) bool {
		di, dj := items[i].DayOfWeek.Index(), items[j].DayOfWeek.Index()
		if di != dj {
			return di < dj
		}
		return items[i].StartTime < items[j].StartTime
	})
}
