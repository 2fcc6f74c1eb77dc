package department

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core"
)

var (
	ErrNotFound = errors.New("department not found")
	ErrExists   = errors.New("a department with this name already exists")
)

type Department struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewDepartment is used to create and to rename a Department.
type NewDepartment struct {
	Name string `json:"name" validate:"required,notblank,max=120"`
}

func (nd *NewDepartment) Validate(validate *validator.Validate) error {
	nd.Name = core.CleanString(nd.Name)
	return validate.Struct(nd)
}

type (
	Repository interface {
		// QueryDepartments returns all departments ordered by name.
		QueryDepartments(ctx context.Context) ([]Department, error)
		CreateDepartment(ctx context.Context, dept Department) (Department, error)
		UpdateDepartment(ctx context.Context, dept Department) (Department, error)
		// DeleteDepartment detaches users, sections and subjects from the department, then deletes it.
		DeleteDepartment(ctx context.Context, id int) error
	}

	Service interface {
		Query(ctx context.Context) ([]Department, error)
		Create(ctx context.Context, nd NewDepartment) (Department, error)
		Update(ctx context.Context, id int, nd NewDepartment) (Department, error)
		Delete(ctx context.Context, id int) error
	}

	service struct {
		repo Repository
	}
)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Query(ctx context.Context) ([]Department, error) {
	return svc.repo.QueryDepartments(ctx)
}

func (svc *service) Create(ctx context.Context, nd NewDepartment) (Department, error) {
	return svc.repo.CreateDepartment(ctx, Department{Name: nd.Name, CreatedAt: time.Now().UTC()})
}

func (svc *service) Update(ctx context.Context, id int, nd NewDepartment) (Department, error) {
	return svc.repo.UpdateDepartment(ctx, Department{ID: id, Name: nd.Name})
}

func (svc *service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteDepartment(ctx, id)
}
