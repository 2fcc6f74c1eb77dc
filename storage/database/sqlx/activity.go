package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core/activity"
)

type activityRepository struct {
	db *sqlx.DB
}

var _ activity.Repository = (*activityRepository)(nil)

func NewActivityRepository(db *sqlx.DB) activity.Repository {
	return &activityRepository{db: db}
}

func (repo *activityRepository) CreateLog(ctx context.Context, log activity.Log) (activity.Log, error) {
	q := `
	WITH l AS (
		INSERT INTO activity_logs (user_id, activity_type, description, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, activity_type, description, created_at
	)
	SELECT l.*, u.name AS user_name, u.role AS user_role FROM l JOIN users u ON u.id = l.user_id`
	var created activity.Log
	if err := repo.db.GetContext(ctx, &created, q, log.UserID, log.ActivityType, log.Description, log.CreatedAt); err != nil {
		return activity.Log{}, mapError(err, "activity_logs", "inserting activity log", nil)
	}
	return created, nil
}

func (repo *activityRepository) QueryLogs(ctx context.Context, filter activity.Filter) ([]activity.Log, error) {
	q := `
	SELECT l.id, l.user_id, l.activity_type, l.description, l.created_at, u.name AS user_name, u.role AS user_role
	FROM activity_logs l
	JOIN users u ON u.id = l.user_id
	WHERE ($1 = '' OR l.user_id = $1) AND ($2 = '' OR u.role = $2)
	ORDER BY l.created_at DESC, l.id DESC`
	logs := make([]activity.Log, 0)
	if err := repo.db.SelectContext(ctx, &logs, q, filter.UserID, filter.Role); err != nil {
		return nil, errors.Wrap(err, "selecting activity logs")
	}
	return logs, nil
}
