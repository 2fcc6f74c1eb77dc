package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core/department"
)

var departmentConflicts = map[string]error{"departments_name_key": department.ErrExists}

type departmentRepository struct {
	db *sqlx.DB
}

var _ department.Repository = (*departmentRepository)(nil)

func NewDepartmentRepository(db *sqlx.DB) department.Repository {
	return &departmentRepository{db: db}
}

func (repo *departmentRepository) QueryDepartments(ctx context.Context) ([]department.Department, error) {
	depts := make([]department.Department, 0)
	if err := repo.db.SelectContext(ctx, &depts, `SELECT id, name, created_at FROM departments ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "selecting departments")
	}
	return depts, nil
}

func (repo *departmentRepository) CreateDepartment(ctx context.Context, dept department.Department) (department.Department, error) {
	q := `INSERT INTO departments (name, created_at) VALUES ($1, $2) RETURNING id, name, created_at`
	var created department.Department
	if err := repo.db.GetContext(ctx, &created, q, dept.Name, dept.CreatedAt); err != nil {
		return department.Department{}, mapError(err, "departments", "inserting department", departmentConflicts)
	}
	return created, nil
}

func (repo *departmentRepository) UpdateDepartment(ctx context.Context, dept department.Department) (department.Department, error) {
	q := `UPDATE departments SET name = $2 WHERE id = $1 RETURNING id, name, created_at`
	var updated department.Department
	err := repo.db.GetContext(ctx, &updated, q, dept.ID, dept.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return department.Department{}, department.ErrNotFound
	}
	if err != nil {
		return department.Department{}, mapError(err, "departments", "updating department", departmentConflicts)
	}
	return updated, nil
}

func (repo *departmentRepository) DeleteDepartment(ctx context.Context, id int) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		for _, table := range []string{"users", "sections", "subjects"} {
			if _, err := tx.ExecContext(ctx, `UPDATE `+table+` SET department_id = NULL WHERE department_id = $1`, id); err != nil {
				return errors.Wrapf(err, "detaching %s", table)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM departments WHERE id = $1`, id)
		if err != nil {
			return errors.Wrap(err, "deleting department")
		}
		return checkAffected(res, department.ErrNotFound)
	})
}
