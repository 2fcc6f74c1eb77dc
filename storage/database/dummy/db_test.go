package dummydb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/evalink/core"
	"github.com/trezcool/evalink/core/assignment"
	"github.com/trezcool/evalink/core/department"
	"github.com/trezcool/evalink/core/evaluation"
	"github.com/trezcool/evalink/core/section"
	"github.com/trezcool/evalink/core/subject"
	"github.com/trezcool/evalink/core/user"
)

type fixture struct {
	db          *DB
	users       user.Repository
	departments department.Repository
	sections    section.Repository
	subjects    subject.Repository
	assignments assignment.Repository
	evaluations evaluation.Repository
}

func newFixture(t *testing.T) fixture {
	db, err := Open()
	require.NoError(t, err)
	return fixture{
		db:          db,
		users:       NewUserRepository(db),
		departments: NewDepartmentRepository(db),
		sections:    NewSectionRepository(db),
		subjects:    NewSubjectRepository(db),
		assignments: NewAssignmentRepository(db),
		evaluations: NewEvaluationRepository(db),
	}
}

// seed creates one department, section and subject, a faculty member, a student and two questions.
func (f fixture) seed(t *testing.T) {
	ctx := context.Background()
	dept, err := f.departments.CreateDepartment(ctx, department.Department{Name: "Computing"})
	require.NoError(t, err)
	sec, err := f.sections.CreateSection(ctx, section.Section{Name: "BSCS 1A", DepartmentID: null.IntFrom(dept.ID), YearLevel: 1})
	require.NoError(t, err)
	_, err = f.subjects.CreateSubject(ctx, subject.Subject{Code: "CS101", Name: "Intro to CS", DepartmentID: null.IntFrom(dept.ID), YearLevel: 1})
	require.NoError(t, err)

	for _, u := range []user.User{
		{ID: "f1", Name: "Ada Lovelace", Role: user.RoleFaculty, DepartmentID: null.IntFrom(dept.ID)},
		{ID: "s1", Name: "Sam Student", Role: user.RoleStudent, SectionID: null.IntFrom(sec.ID), YearLevel: null.IntFrom(1)},
	} {
		_, err = f.users.CreateUser(ctx, u)
		require.NoError(t, err)
	}

	cat, err := f.evaluations.CreateCategory(ctx, evaluation.Category{Name: "Teaching"})
	require.NoError(t, err)
	for i, text := range []string{"Explains clearly", "Is punctual"} {
		_, err = f.evaluations.CreateQuestion(ctx, evaluation.Question{CategoryID: cat.ID, Text: text, DisplayOrder: 2 - i})
		require.NoError(t, err)
	}
}

func TestDepartmentRepository(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)

	_, err := f.departments.CreateDepartment(ctx, department.Department{Name: "Computing"})
	assert.True(t, core.IsConflict(err))

	usr, err := f.users.GetUserByID(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "Computing", usr.DepartmentName)

	require.NoError(t, f.departments.DeleteDepartment(ctx, 1))
	usr, err = f.users.GetUserByID(ctx, "f1")
	require.NoError(t, err)
	assert.False(t, usr.DepartmentID.Valid)
	assert.Empty(t, usr.DepartmentName)

	assert.Equal(t, department.ErrNotFound, f.departments.DeleteDepartment(ctx, 1))
}

func TestSectionRepository_InvalidDepartment(t *testing.T) {
	f := newFixture(t)
	_, err := f.sections.CreateSection(context.Background(), section.Section{Name: "X", DepartmentID: null.IntFrom(9), YearLevel: 1})
	require.Error(t, err)
	verr, ok := err.(*core.ValidationError)
	require.True(t, ok)
	assert.Equal(t, "department_id", verr.Fields[0].Field)
}

func TestEvaluationRepository_SubmitAndReport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)

	_, err := f.assignments.CreateEnrollment(ctx, assignment.Enrollment{StudentID: "s1", SubjectID: 1, FacultyID: "f1"})
	require.NoError(t, err)
	enrolled, err := f.assignments.IsEnrolled(ctx, "s1", 1, "f1")
	require.NoError(t, err)
	assert.True(t, enrolled)

	now := time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)
	ev := evaluation.Evaluation{StudentID: "s1", FacultyID: "f1", SubjectID: 1, Comments: "Great!", SubmittedAt: now}
	answers := []evaluation.Answer{{QuestionID: 1, Rating: 5}, {QuestionID: 2, Rating: 4}}
	created, err := f.evaluations.CreateEvaluation(ctx, ev, answers)
	require.NoError(t, err)
	assert.Equal(t, 1, created.ID)

	_, err = f.evaluations.CreateEvaluation(ctx, ev, answers)
	assert.True(t, core.IsConflict(err))

	items, err := f.evaluations.QueryEvaluations(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, evaluation.ListItem{ID: 1, StudentID: "s1", Course: "Intro to CS", Feedback: "Great!", Rating: 4.5}, items[0])

	counts, err := f.evaluations.CountDaily(ctx, now.AddDate(0, 0, -6).Truncate(24*time.Hour), now.Truncate(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []evaluation.DailyCount{{EvaluationDate: "2024-03-10", EvaluationCount: 1}}, counts)

	// question 2 has the lower display order and comes first
	rows, err := NewReportRowSource(f.db).FacultyRows(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].QuestionID)
	assert.Equal(t, 1, rows[1].QuestionID)
	assert.Equal(t, "Great!", rows[0].Comments.String)

	// deleting the subject cascades to evaluations and enrollments
	require.NoError(t, f.subjects.DeleteSubject(ctx, 1))
	rows, err = NewReportRowSource(f.db).AllRows(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
	enrollments, err := f.assignments.QueryEnrollments(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, enrollments)
}

func TestUserRepository_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)

	_, err := f.assignments.CreateFacultyLoad(ctx, assignment.FacultyLoad{FacultyID: "f1", SubjectID: 1, SectionID: 1})
	require.NoError(t, err)
	subj, err := f.subjects.QuerySubjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ada Lovelace"}, subj[0].FacultyNames)

	require.NoError(t, f.users.DeleteUser(ctx, "f1"))
	loads, err := f.assignments.QueryFacultyLoads(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, loads)

	_, err = f.users.GetUserByID(ctx, "f1")
	assert.Equal(t, user.ErrNotFound, err)
}

func TestUserRepository_CheckUniqueness(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.users.CreateUser(ctx, user.User{ID: "a1", Name: "Admin", Email: "admin@example.com", Role: user.RoleAdmin})
	require.NoError(t, err)
	_, err = f.users.CreateUser(ctx, user.User{ID: "s1", Name: "Student", Role: user.RoleStudent})
	require.NoError(t, err)

	tests := []struct {
		name       string
		id, email  string
		excludedID string
		want       error
	}{
		{name: "free", id: "s2", email: "new@example.com"},
		{name: "id taken", id: "s1", want: user.ErrIDExists},
		{name: "email taken", id: "s2", email: "admin@example.com", want: user.ErrEmailExists},
		{name: "own email", email: "admin@example.com", excludedID: "a1"},
		{name: "empty email never clashes", id: "s3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.users.CheckUniqueness(ctx, tt.id, tt.email, tt.excludedID))
		})
	}
}
