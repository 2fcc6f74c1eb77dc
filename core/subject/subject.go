package subject

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/evalink/core"
)

var (
	ErrNotFound   = errors.New("subject not found")
	ErrCodeExists = errors.New("a subject with this code already exists")
)

type Subject struct {
	ID             int      `json:"id" db:"id"`
	Code           string   `json:"code" db:"code"`
	Name           string   `json:"name" db:"name"`
	DepartmentID   null.Int `json:"department_id" db:"department_id"`
	DepartmentName string   `json:"department_name" db:"department_name"`
	YearLevel      int      `json:"year_level" db:"year_level"`
	FacultyNames   []string `json:"faculty_names" db:"-"` // instructors with a load on the subject
}

// NewSubject is used to create and to update a Subject. All fields are required.
type NewSubject struct {
	Code         string   `json:"code" validate:"required,notblank,max=20"`
	Name         string   `json:"name" validate:"required,notblank,max=120"`
	DepartmentID null.Int `json:"department_id" validate:"required"`
	YearLevel    int      `json:"year_level" validate:"required,min=1,max=6"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Code = core.CleanString(ns.Code)
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

func (ns NewSubject) subject(id int) Subject {
	return Subject{ID: id, Code: ns.Code, Name: ns.Name, DepartmentID: ns.DepartmentID, YearLevel: ns.YearLevel}
}

type (
	Repository interface {
		// QuerySubjects returns all subjects ordered by code.
		QuerySubjects(ctx context.Context) ([]Subject, error)
		CreateSubject(ctx context.Context, subj Subject) (Subject, error)
		UpdateSubject(ctx context.Context, subj Subject) (Subject, error)
		// DeleteSubject deletes the subject with its faculty loads, enrollments and evaluations.
		DeleteSubject(ctx context.Context, id int) error
	}

	Service interface {
		Query(ctx context.Context) ([]Subject, error)
		Create(ctx context.Context, ns NewSubject) (Subject, error)
		Update(ctx context.Context, id int, ns NewSubject) (Subject, error)
		Delete(ctx context.Context, id int) error
	}

	service struct {
		repo Repository
	}
)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Query(ctx context.Context) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx)
}

func (svc *service) Create(ctx context.Context, ns NewSubject) (Subject, error) {
	return svc.repo.CreateSubject(ctx, ns.subject(0))
}

func (svc *service) Update(ctx context.Context, id int, ns NewSubject) (Subject, error) {
	return svc.repo.UpdateSubject(ctx, ns.subject(id))
}

func (svc *service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteSubject(ctx, id)
}
