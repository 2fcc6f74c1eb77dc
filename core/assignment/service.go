package assignment

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core"
	"github.com/trezcool/evalink/core/user"
)

var (
	ErrLoadNotFound       = errors.New("faculty load not found")
	ErrLoadExists         = errors.New("this subject is already assigned to this section")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrEnrollmentExists   = errors.New("this student is already enrolled in this subject")

	errNotFaculty = "user is not a faculty member"
	errNotStudent = "user is not a student"
)

type (
	Repository interface {
		// QueryFacultyLoads returns the loads of facultyID, or all loads when empty,
		// ordered by faculty name then subject name.
		QueryFacultyLoads(ctx context.Context, facultyID string) ([]FacultyLoad, error)
		CreateFacultyLoad(ctx context.Context, load FacultyLoad) (FacultyLoad, error)
		DeleteFacultyLoad(ctx context.Context, id int) error

		// QueryEnrollments returns the enrollments of studentID, or all enrollments when empty,
		// ordered by student name then subject name.
		QueryEnrollments(ctx context.Context, studentID string) ([]Enrollment, error)
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		DeleteEnrollment(ctx context.Context, id int) error
		IsEnrolled(ctx context.Context, studentID string, subjectID int, facultyID string) (bool, error)
	}

	// UserGetter finds users by ID.
	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service interface {
		QueryFacultyLoads(ctx context.Context, facultyID string) ([]FacultyLoad, error)
		Assign(ctx context.Context, nl NewFacultyLoad) (FacultyLoad, error)
		Unassign(ctx context.Context, id int) error

		QueryEnrollments(ctx context.Context, studentID string) ([]Enrollment, error)
		Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error)
		Unenroll(ctx context.Context, id int) error
		IsEnrolled(ctx context.Context, studentID string, subjectID int, facultyID string) (bool, error)
	}

	service struct {
		repo  Repository
		users UserGetter
	}
)

func NewService(repo Repository, users UserGetter) Service {
	return &service{repo: repo, users: users}
}

// checkRole makes sure the user exists and has role.
func (svc *service) checkRole(ctx context.Context, field, id, role, msg string) error {
	usr, err := svc.users.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if usr.Role != role {
		return core.NewValidationError(errors.New(msg), core.FieldError{Field: field, Error: msg})
	}
	return nil
}

func (svc *service) QueryFacultyLoads(ctx context.Context, facultyID string) ([]FacultyLoad, error) {
	return svc.repo.QueryFacultyLoads(ctx, facultyID)
}

func (svc *service) Assign(ctx context.Context, nl NewFacultyLoad) (FacultyLoad, error) {
	if err := svc.checkRole(ctx, "faculty_id", nl.FacultyID, user.RoleFaculty, errNotFaculty); err != nil {
		return FacultyLoad{}, err
	}
	return svc.repo.CreateFacultyLoad(ctx, FacultyLoad{
		FacultyID: nl.FacultyID,
		SubjectID: nl.SubjectID,
		SectionID: nl.SectionID,
	})
}

func (svc *service) Unassign(ctx context.Context, id int) error {
	return svc.repo.DeleteFacultyLoad(ctx, id)
}

func (svc *service) QueryEnrollments(ctx context.Context, studentID string) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, studentID)
}

func (svc *service) Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error) {
	if err := svc.checkRole(ctx, "student_id", ne.StudentID, user.RoleStudent, errNotStudent); err != nil {
		return Enrollment{}, err
	}
	if err := svc.checkRole(ctx, "faculty_id", ne.FacultyID, user.RoleFaculty, errNotFaculty); err != nil {
		return Enrollment{}, err
	}
	return svc.repo.CreateEnrollment(ctx, Enrollment{
		StudentID: ne.StudentID,
		SubjectID: ne.SubjectID,
		FacultyID: ne.FacultyID,
		SectionID: ne.SectionID,
	})
}

func (svc *service) Unenroll(ctx context.Context, id int) error {
	return svc.repo.DeleteEnrollment(ctx, id)
}

func (svc *service) IsEnrolled(ctx context.Context, studentID string, subjectID int, facultyID string) (bool, error) {
	return svc.repo.IsEnrolled(ctx, studentID, subjectID, facultyID)
}
