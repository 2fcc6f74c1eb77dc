package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core/subject"
)

const subjectSelect = `
SELECT s.id, s.code, s.name, s.department_id, COALESCE(d.name, '') AS department_name, s.year_level,
       COALESCE(
           (SELECT array_agg(DISTINCT u.name ORDER BY u.name)
            FROM faculty_loads fl JOIN users u ON u.id = fl.faculty_id
            WHERE fl.subject_id = s.id),
           '{}') AS faculty_names
FROM subjects s
LEFT JOIN departments d ON d.id = s.department_id`

var subjectConflicts = map[string]error{"subjects_code_key": subject.ErrCodeExists}

// subjectRow carries the aggregated instructor names, which Subject does not map.
type subjectRow struct {
	subject.Subject
	Faculty pq.StringArray `db:"faculty_names"`
}

func (r subjectRow) unwrap() subject.Subject {
	s := r.Subject
	s.FacultyNames = []string(r.Faculty)
	if s.FacultyNames == nil {
		s.FacultyNames = []string{}
	}
	return s
}

type subjectRepository struct {
	db *sqlx.DB
}

var _ subject.Repository = (*subjectRepository)(nil)

func NewSubjectRepository(db *sqlx.DB) subject.Repository {
	return &subjectRepository{db: db}
}

func (repo *subjectRepository) QuerySubjects(ctx context.Context) ([]subject.Subject, error) {
	var rows []subjectRow
	if err := repo.db.SelectContext(ctx, &rows, subjectSelect+"\nORDER BY s.code"); err != nil {
		return nil, errors.Wrap(err, "selecting subjects")
	}
	subjects := make([]subject.Subject, 0, len(rows))
	for _, r := range rows {
		subjects = append(subjects, r.unwrap())
	}
	return subjects, nil
}

func (repo *subjectRepository) get(ctx context.Context, id int) (subject.Subject, error) {
	var row subjectRow
	if err := getOne(ctx, repo.db, &row, subject.ErrNotFound, subjectSelect+"\nWHERE s.id = $1", id); err != nil {
		return subject.Subject{}, err
	}
	return row.unwrap(), nil
}

func (repo *subjectRepository) CreateSubject(ctx context.Context, subj subject.Subject) (subject.Subject, error) {
	var id int
	q := `INSERT INTO subjects (code, name, department_id, year_level) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := repo.db.GetContext(ctx, &id, q, subj.Code, subj.Name, subj.DepartmentID, subj.YearLevel); err != nil {
		return subject.Subject{}, mapError(err, "subjects", "inserting subject", subjectConflicts)
	}
	return repo.get(ctx, id)
}

func (repo *subjectRepository) UpdateSubject(ctx context.Context, subj subject.Subject) (subject.Subject, error) {
	q := `UPDATE subjects SET code = $2, name = $3, department_id = $4, year_level = $5 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, subj.ID, subj.Code, subj.Name, subj.DepartmentID, subj.YearLevel)
	if err != nil {
		return subject.Subject{}, mapError(err, "subjects", "updating subject", subjectConflicts)
	}
	if err = checkAffected(res, subject.ErrNotFound); err != nil {
		return subject.Subject{}, err
	}
	return repo.get(ctx, subj.ID)
}

func (repo *subjectRepository) DeleteSubject(ctx context.Context, id int) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		stmts := []string{
			`DELETE FROM evaluation_answers WHERE evaluation_id IN (SELECT id FROM evaluations WHERE subject_id = $1)`,
			`DELETE FROM evaluations WHERE subject_id = $1`,
			`DELETE FROM student_subjects WHERE subject_id = $1`,
			`DELETE FROM faculty_loads WHERE subject_id = $1`,
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return errors.Wrap(err, "deleting subject dependencies")
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
		if err != nil {
			return errors.Wrap(err, "deleting subject")
		}
		return checkAffected(res, subject.ErrNotFound)
	})
}
