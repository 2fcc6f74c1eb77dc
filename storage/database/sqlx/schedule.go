package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core/schedule"
)

type scheduleRepository struct {
	db *sqlx.DB
}

var _ schedule.Repository = (*scheduleRepository)(nil)

func NewScheduleRepository(db *sqlx.DB) schedule.Repository {
	return &scheduleRepository{db: db}
}

func (repo *scheduleRepository) GetSchedule(ctx context.Context) (schedule.Schedule, error) {
	var s schedule.Schedule
	err := getOne(ctx, repo.db, &s, schedule.ErrNotSet, `SELECT start_date, end_date FROM evaluation_schedule WHERE id = 1`)
	return s, err
}

// SaveSchedule upserts the single schedule row.
func (repo *scheduleRepository) SaveSchedule(ctx context.Context, s schedule.Schedule) (schedule.Schedule, error) {
	q := `
	INSERT INTO evaluation_schedule (id, start_date, end_date, updated_at) VALUES (1, $1, $2, now())
	ON CONFLICT (id) DO UPDATE SET start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date, updated_at = now()
	RETURNING start_date, end_date`
	var saved schedule.Schedule
	if err := repo.db.GetContext(ctx, &saved, q, s.StartDate, s.EndDate); err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "saving schedule")
	}
	saved.StartDate = saved.StartDate.UTC()
	saved.EndDate = saved.EndDate.UTC()
	return saved, nil
}
