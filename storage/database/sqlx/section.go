package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core/section"
)

const sectionSelect = `
SELECT s.id, s.name, s.department_id, COALESCE(d.name, '') AS department_name, s.year_level
FROM sections s
LEFT JOIN departments d ON d.id = s.department_id`

type sectionRepository struct {
	db *sqlx.DB
}

var _ section.Repository = (*sectionRepository)(nil)

func NewSectionRepository(db *sqlx.DB) section.Repository {
	return &sectionRepository{db: db}
}

func (repo *sectionRepository) QuerySections(ctx context.Context) ([]section.Section, error) {
	secs := make([]section.Section, 0)
	if err := repo.db.SelectContext(ctx, &secs, sectionSelect+"\nORDER BY s.name, s.id"); err != nil {
		return nil, errors.Wrap(err, "selecting sections")
	}
	return secs, nil
}

func (repo *sectionRepository) get(ctx context.Context, id int) (section.Section, error) {
	var sec section.Section
	err := getOne(ctx, repo.db, &sec, section.ErrNotFound, sectionSelect+"\nWHERE s.id = $1", id)
	return sec, err
}

func (repo *sectionRepository) CreateSection(ctx context.Context, sec section.Section) (section.Section, error) {
	var id int
	q := `INSERT INTO sections (name, department_id, year_level) VALUES ($1, $2, $3) RETURNING id`
	if err := repo.db.GetContext(ctx, &id, q, sec.Name, sec.DepartmentID, sec.YearLevel); err != nil {
		return section.Section{}, mapError(err, "sections", "inserting section", nil)
	}
	return repo.get(ctx, id)
}

func (repo *sectionRepository) UpdateSection(ctx context.Context, sec section.Section) (section.Section, error) {
	q := `UPDATE sections SET name = $2, department_id = $3, year_level = $4 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, sec.ID, sec.Name, sec.DepartmentID, sec.YearLevel)
	if err != nil {
		return section.Section{}, mapError(err, "sections", "updating section", nil)
	}
	if err = checkAffected(res, section.ErrNotFound); err != nil {
		return section.Section{}, err
	}
	return repo.get(ctx, sec.ID)
}

func (repo *sectionRepository) DeleteSection(ctx context.Context, id int) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		stmts := []string{
			`UPDATE users SET section_id = NULL WHERE section_id = $1`,
			`UPDATE student_subjects SET section_id = NULL WHERE section_id = $1`,
			`UPDATE evaluations SET section_id = NULL WHERE section_id = $1`,
			`DELETE FROM faculty_loads WHERE section_id = $1`,
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return errors.Wrap(err, "detaching section")
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM sections WHERE id = $1`, id)
		if err != nil {
			return errors.Wrap(err, "deleting section")
		}
		return checkAffected(res, section.ErrNotFound)
	})
}
