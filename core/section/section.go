package section

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/evalink/core"
)

var ErrNotFound = errors.New("section not found")

type Section struct {
	ID             int      `json:"id" db:"id"`
	Name           string   `json:"name" db:"name"`
	DepartmentID   null.Int `json:"department_id" db:"department_id"`
	DepartmentName string   `json:"department_name" db:"department_name"`
	YearLevel      int      `json:"year_level" db:"year_level"`
}

// NewSection is used to create and to update a Section. All fields are required.
type NewSection struct {
	Name         string   `json:"name" validate:"required,notblank,max=60"`
	DepartmentID null.Int `json:"department_id" validate:"required"`
	YearLevel    int      `json:"year_level" validate:"required,min=1,max=6"`
}

func (ns *NewSection) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

func (ns NewSection) section(id int) Section {
	return Section{ID: id, Name: ns.Name, DepartmentID: ns.DepartmentID, YearLevel: ns.YearLevel}
}

type (
	Repository interface {
		// QuerySections returns all sections ordered by name.
		QuerySections(ctx context.Context) ([]Section, error)
		CreateSection(ctx context.Context, sec Section) (Section, error)
		UpdateSection(ctx context.Context, sec Section) (Section, error)
		// DeleteSection detaches users, enrollments and evaluations from the section,
		// deletes its faculty loads, then deletes it.
		DeleteSection(ctx context.Context, id int) error
	}

	Service interface {
		Query(ctx context.Context) ([]Section, error)
		Create(ctx context.Context, ns NewSection) (Section, error)
		Update(ctx context.Context, id int, ns NewSection) (Section, error)
		Delete(ctx context.Context, id int) error
	}

	service struct {
		repo Repository
	}
)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Query(ctx context.Context) ([]Section, error) {
	return svc.repo.QuerySections(ctx)
}

func (svc *service) Create(ctx context.Context, ns NewSection) (Section, error) {
	return svc.repo.CreateSection(ctx, ns.section(0))
}

func (svc *service) Update(ctx context.Context, id int, ns NewSection) (Section, error) {
	return svc.repo.UpdateSection(ctx, ns.section(id))
}

func (svc *service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteSection(ctx, id)
}
