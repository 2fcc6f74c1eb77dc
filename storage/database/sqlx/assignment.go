package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core/assignment"
)

const facultyLoadSelect = `
SELECT fl.id, fl.faculty_id, fl.subject_id, fl.section_id,
       u.name AS faculty_name, s.name AS subject_name, s.code AS subject_code,
       sec.name AS section_name, COALESCE(d.name, '') AS department_name
FROM faculty_loads fl
JOIN users u ON u.id = fl.faculty_id
JOIN subjects s ON s.id = fl.subject_id
JOIN sections sec ON sec.id = fl.section_id
LEFT JOIN departments d ON d.id = s.department_id`

const enrollmentSelect = `
SELECT ss.id, ss.student_id, ss.subject_id, ss.faculty_id, ss.section_id,
       st.name AS student_name, s.name AS subject_name, s.code AS subject_code,
       f.name AS faculty_name, COALESCE(sec.name, '') AS section_name
FROM student_subjects ss
JOIN users st ON st.id = ss.student_id
JOIN subjects s ON s.id = ss.subject_id
JOIN users f ON f.id = ss.faculty_id
LEFT JOIN sections sec ON sec.id = ss.section_id`

var assignmentConflicts = map[string]error{
	"faculty_loads_subject_section_key":    assignment.ErrLoadExists,
	"student_subjects_student_subject_key": assignment.ErrEnrollmentExists,
}

type assignmentRepository struct {
	db *sqlx.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil)

func NewAssignmentRepository(db *sqlx.DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) QueryFacultyLoads(ctx context.Context, facultyID string) ([]assignment.FacultyLoad, error) {
	q := facultyLoadSelect + `
	WHERE ($1 = '' OR fl.faculty_id = $1)
	ORDER BY u.name, s.name, fl.id`
	loads := make([]assignment.FacultyLoad, 0)
	if err := repo.db.SelectContext(ctx, &loads, q, facultyID); err != nil {
		return nil, errors.Wrap(err, "selecting faculty loads")
	}
	return loads, nil
}

func (repo *assignmentRepository) CreateFacultyLoad(ctx context.Context, load assignment.FacultyLoad) (assignment.FacultyLoad, error) {
	var id int
	q := `INSERT INTO faculty_loads (faculty_id, subject_id, section_id) VALUES ($1, $2, $3) RETURNING id`
	if err := repo.db.GetContext(ctx, &id, q, load.FacultyID, load.SubjectID, load.SectionID); err != nil {
		return assignment.FacultyLoad{}, mapError(err, "faculty_loads", "inserting faculty load", assignmentConflicts)
	}
	var created assignment.FacultyLoad
	err := getOne(ctx, repo.db, &created, assignment.ErrLoadNotFound, facultyLoadSelect+"\nWHERE fl.id = $1", id)
	return created, err
}

func (repo *assignmentRepository) DeleteFacultyLoad(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM faculty_loads WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting faculty load")
	}
	return checkAffected(res, assignment.ErrLoadNotFound)
}

func (repo *assignmentRepository) QueryEnrollments(ctx context.Context, studentID string) ([]assignment.Enrollment, error) {
	q := enrollmentSelect + `
	WHERE ($1 = '' OR ss.student_id = $1)
	ORDER BY st.name, s.name, ss.id`
	enrollments := make([]assignment.Enrollment, 0)
	if err := repo.db.SelectContext(ctx, &enrollments, q, studentID); err != nil {
		return nil, errors.Wrap(err, "selecting enrollments")
	}
	return enrollments, nil
}

func (repo *assignmentRepository) CreateEnrollment(ctx context.Context, enr assignment.Enrollment) (assignment.Enrollment, error) {
	var id int
	q := `INSERT INTO student_subjects (student_id, subject_id, faculty_id, section_id) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := repo.db.GetContext(ctx, &id, q, enr.StudentID, enr.SubjectID, enr.FacultyID, enr.SectionID); err != nil {
		return assignment.Enrollment{}, mapError(err, "student_subjects", "inserting enrollment", assignmentConflicts)
	}
	var created assignment.Enrollment
	err := getOne(ctx, repo.db, &created, assignment.ErrEnrollmentNotFound, enrollmentSelect+"\nWHERE ss.id = $1", id)
	return created, err
}

func (repo *assignmentRepository) DeleteEnrollment(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM student_subjects WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return checkAffected(res, assignment.ErrEnrollmentNotFound)
}

func (repo *assignmentRepository) IsEnrolled(ctx context.Context, studentID string, subjectID int, facultyID string) (bool, error) {
	var enrolled bool
	q := `SELECT EXISTS (SELECT 1 FROM student_subjects WHERE student_id = $1 AND subject_id = $2 AND faculty_id = $3)`
	if err := repo.db.GetContext(ctx, &enrolled, q, studentID, subjectID, facultyID); err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	return enrolled, nil
}
