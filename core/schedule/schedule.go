package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core"
)

const displayLayout = "Jan 2, 2006 15:04 MST"

var (
	ErrNotSet = errors.New("evaluation schedule not set")

	NowFunc = time.Now // mockable

	errEndBeforeStart = "end_date must be after start_date"
)

// Schedule is the single window during which students may submit evaluations.
type Schedule struct {
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`
}

// IsOpen reports whether now falls within the window, bounds included.
func (s Schedule) IsOpen(now time.Time) bool {
	return !now.Before(s.StartDate) && !now.After(s.EndDate)
}

type NewSchedule struct {
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
}

func (ns *NewSchedule) Validate(validate *validator.Validate) error {
	if err := validate.Struct(ns); err != nil {
		return err
	}
	if !ns.EndDate.After(ns.StartDate) {
		return core.NewValidationError(errors.New(errEndBeforeStart), core.FieldError{Field: "end_date", Error: errEndBeforeStart})
	}
	return nil
}

// Status describes the schedule as seen at a given time. Dates are omitted when no schedule is set.
type Status struct {
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	IsOpen    bool       `json:"is_open"`
	Message   string     `json:"message"`
}

func NewStatus(s *Schedule, now time.Time) Status {
	if s == nil {
		return Status{Message: "The evaluation schedule has not been set."}
	}

	start, end := s.StartDate.UTC(), s.EndDate.UTC()
	status := Status{StartDate: &start, EndDate: &end, IsOpen: s.IsOpen(now)}
	switch {
	case now.Before(start):
		status.Message = fmt.Sprintf("Evaluations open on %s.", start.Format(displayLayout))
	case status.IsOpen:
		status.Message = fmt.Sprintf("Evaluations are open until %s.", end.Format(displayLayout))
	default:
		status.Message = fmt.Sprintf("The evaluation period ended on %s.", end.Format(displayLayout))
	}
	return status
}

type (
	Repository interface {
		// GetSchedule returns ErrNotSet when no schedule was saved yet.
		GetSchedule(ctx context.Context) (Schedule, error)
		SaveSchedule(ctx context.Context, s Schedule) (Schedule, error)
	}

	Service interface {
		Get(ctx context.Context) (Status, error)
		Set(ctx context.Context, ns NewSchedule) (Status, error)
		IsOpen(ctx context.Context) (bool, error)
	}

	service struct {
		repo Repository
	}
)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) current(ctx context.Context) (*Schedule, error) {
	s, err := svc.repo.GetSchedule(ctx)
	if err != nil {
		if errors.Cause(err) == ErrNotSet {
			return nil, nil
		}
		return nil, errors.Wrap(err, "getting schedule")
	}
	return &s, nil
}

func (svc *service) Get(ctx context.Context) (Status, error) {
	s, err := svc.current(ctx)
	if err != nil {
		return Status{}, err
	}
	return NewStatus(s, NowFunc()), nil
}

func (svc *service) Set(ctx context.Context, ns NewSchedule) (Status, error) {
	s, err := svc.repo.SaveSchedule(ctx, Schedule{StartDate: ns.StartDate.UTC(), EndDate: ns.EndDate.UTC()})
	if err != nil {
		return Status{}, errors.Wrap(err, "saving schedule")
	}
	return NewStatus(&s, NowFunc()), nil
}

// IsOpen reports whether evaluations may be submitted now. An unset schedule is closed.
func (svc *service) IsOpen(ctx context.Context) (bool, error) {
	s, err := svc.current(ctx)
	if err != nil || s == nil {
		return false, err
	}
	return s.IsOpen(NowFunc()), nil
}
