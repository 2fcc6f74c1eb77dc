package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core"
)

// Activity types written by the API.
const (
	TypeLogin          = "login"
	TypeLogout         = "logout"
	TypeEvaluation     = "evaluation"
	TypeUpdateIncident = "update_incident"
)

type Log struct {
	ID           int       `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	ActivityType string    `json:"activity_type" db:"activity_type"`
	Description  string    `json:"description" db:"description"`
	CreatedAt    time.Time `json:"timestamp" db:"created_at"`
	UserName     string    `json:"user_name" db:"user_name"`
	UserRole     string    `json:"user_role" db:"user_role"`
}

// NewLog is an event posted by a client for the authenticated user.
type NewLog struct {
	ActivityType string `json:"activity_type" validate:"required,notblank,max=50"`
	Description  string `json:"description" validate:"max=500"`
}

func (nl *NewLog) Validate(validate *validator.Validate) error {
	nl.ActivityType = core.CleanString(nl.ActivityType, true /* lower */)
	nl.Description = core.CleanString(nl.Description)
	return validate.Struct(nl)
}

// Filter selects the logs of one user, or of every user with a role. Zero values match everything.
type Filter struct {
	UserID string
	Role   string
}

type (
	Repository interface {
		CreateLog(ctx context.Context, log Log) (Log, error)
		// QueryLogs returns matching logs, newest first.
		QueryLogs(ctx context.Context, filter Filter) ([]Log, error)
	}

	Service interface {
		// Record writes a log entry. Failures are logged and never returned.
		Record(ctx context.Context, userID, activityType, description string)
		Create(ctx context.Context, userID string, nl NewLog) (Log, error)
		Query(ctx context.Context, filter Filter) ([]Log, error)
	}

	service struct {
		repo    Repository
		logger  core.Logger
		metrics core.Metrics
	}
)

func NewService(repo Repository, logger core.Logger, metrics core.Metrics) Service {
	return &service{repo: repo, logger: logger, metrics: metrics}
}

func (svc *service) Record(ctx context.Context, userID, activityType, description string) {
	_, err := svc.repo.CreateLog(ctx, Log{
		UserID:       userID,
		ActivityType: activityType,
		Description:  description,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		svc.metrics.ActivityRecordFailed()
		svc.logger.Error(
			fmt.Sprintf("recording %q activity: %v", activityType, err),
			errors.Wrap(err, "recording activity"),
			map[string]interface{}{"user_id": userID, "description": description},
		)
	}
}

func (svc *service) Create(ctx context.Context, userID string, nl NewLog) (Log, error) {
	return svc.repo.CreateLog(ctx, Log{
		UserID:       userID,
		ActivityType: nl.ActivityType,
		Description:  nl.Description,
		CreatedAt:    time.Now().UTC(),
	})
}

func (svc *service) Query(ctx context.Context, filter Filter) ([]Log, error) {
	return svc.repo.QueryLogs(ctx, filter)
}
