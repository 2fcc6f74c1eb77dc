package sqlxrepos

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/evalink/core"
	"github.com/trezcool/evalink/core/department"
	"github.com/trezcool/evalink/core/evaluation"
	"github.com/trezcool/evalink/core/report"
	"github.com/trezcool/evalink/core/user"
	"github.com/trezcool/evalink/storage/database"
	boiledrepos "github.com/trezcool/evalink/storage/database/sqlboiler"
	testutil "github.com/trezcool/evalink/tests"
)

var ctxb = context.Background()

// prepareDB connects to TEST_DATABASE_URL, migrates it and empties every table.
func prepareDB(t *testing.T) *sqlx.DB {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db.DB))
	_, err = db.Exec(`
	TRUNCATE activity_logs, incidents, evaluation_schedule, evaluation_answers, evaluations,
	         evaluation_questions, evaluation_categories, student_subjects, faculty_loads,
	         users, subjects, sections, departments
	RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return db
}

func TestUserRepository(t *testing.T) {
	db := prepareDB(t)
	repo := NewUserRepository(db)

	usr := testutil.CreateUser(t, repo, "2021-00017", "Hero", "hero@test.cd", testutil.Password, user.RoleStudent, true)

	got, err := repo.GetUserByEmail(ctxb, "hero@test.cd")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
	assert.NoError(t, got.CheckPassword(testutil.Password))

	_, err = repo.GetUserByID(ctxb, "lol")
	assert.Equal(t, user.ErrNotFound, err)

	assert.Equal(t, user.ErrIDExists, repo.CheckUniqueness(ctxb, usr.ID, "", ""))
	assert.Equal(t, user.ErrEmailExists, repo.CheckUniqueness(ctxb, "", usr.Email, ""))
	assert.NoError(t, repo.CheckUniqueness(ctxb, usr.ID, usr.Email, usr.ID))

	_, err = repo.CreateUser(ctxb, user.User{ID: "other", Name: "Other", Email: usr.Email, Role: user.RoleStudent, PasswordHash: usr.PasswordHash})
	assert.True(t, core.IsConflict(err), "got %v", err)

	require.NoError(t, repo.DeleteUser(ctxb, usr.ID))
	_, err = repo.GetUserByID(ctxb, usr.ID)
	assert.Equal(t, user.ErrNotFound, err)
}

func TestDepartmentRepository(t *testing.T) {
	db := prepareDB(t)
	repo := NewDepartmentRepository(db)

	dept := testutil.CreateDepartment(t, repo, "Mathematics")

	_, err := repo.CreateDepartment(ctxb, department.Department{Name: "Mathematics", CreatedAt: time.Now().UTC()})
	assert.True(t, core.IsConflict(err), "got %v", err)

	dept.Name = "Applied Mathematics"
	updated, err := repo.UpdateDepartment(ctxb, dept)
	require.NoError(t, err)
	assert.Equal(t, "Applied Mathematics", updated.Name)

	_, err = repo.UpdateDepartment(ctxb, department.Department{ID: 999, Name: "lol"})
	assert.Equal(t, department.ErrNotFound, err)
}

func TestEvaluationReportRows(t *testing.T) {
	db := prepareDB(t)
	users := NewUserRepository(db)
	evals := NewEvaluationRepository(db)

	grace := testutil.CreateUser(t, users, "f-001", "Grace Hopper", "grace@test.cd", testutil.Password, user.RoleFaculty, true)
	hero := testutil.CreateUser(t, users, "2021-00017", "Hero", "hero@test.cd", testutil.Password, user.RoleStudent, true)
	zero := testutil.CreateUser(t, users, "2021-00018", "Zero", "zero@test.cd", testutil.Password, user.RoleStudent, true)
	dept := testutil.CreateDepartment(t, NewDepartmentRepository(db), "Mathematics")
	calc := testutil.CreateSubject(t, NewSubjectRepository(db), "MATH-101", "Calculus", dept.ID)
	cats := testutil.CreateQuestionnaire(t, evals, 2, "Teaching")
	q1, q2 := cats[0].Questions[0], cats[0].Questions[1]

	submit := func(studentID, comments string, r1, r2 int) {
		_, err := evals.CreateEvaluation(
			ctxb,
			evaluation.Evaluation{StudentID: studentID, FacultyID: grace.ID, SubjectID: calc.ID, Comments: comments, SubmittedAt: time.Now().UTC()},
			[]evaluation.Answer{{QuestionID: q1.ID, Rating: r1}, {QuestionID: q2.ID, Rating: r2}},
		)
		require.NoError(t, err)
	}
	submit(hero.ID, "Great", 5, 4)
	submit(zero.ID, "", 3, 4)

	_, err := evals.CreateEvaluation(
		ctxb,
		evaluation.Evaluation{StudentID: hero.ID, FacultyID: grace.ID, SubjectID: calc.ID, SubmittedAt: time.Now().UTC()},
		[]evaluation.Answer{{QuestionID: q1.ID, Rating: 1}},
	)
	assert.True(t, core.IsConflict(err), "got %v", err)

	missing, err := evals.MissingQuestions(ctxb, []int{q1.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, []int{999}, missing)

	subjects, err := evals.EvaluatedSubjects(ctxb, hero.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{calc.ID}, subjects)

	rows, err := boiledrepos.NewReportRowSource(db).FacultyRows(ctxb, grace.ID)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	summaries, err := report.AggregateSubjects(rows)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 4.0, summaries[0].OverallAverage)
	assert.Equal(t, 2, summaries[0].TotalEvaluations)
	assert.Equal(t, []string{"Great"}, summaries[0].Comments)
}

func TestWithTx_rollsBackOnPanic(t *testing.T) {
	db := prepareDB(t)

	assert.PanicsWithValue(t, "lol", func() {
		_ = withTx(ctxb, db, func(tx *sqlx.Tx) error {
			_, err := tx.ExecContext(ctxb, "INSERT INTO departments (name, created_at) VALUES ($1, $2)", "Physics", time.Now().UTC())
			require.NoError(t, err)
			panic("lol")
		})
	})
	assert.Zero(t, db.Stats().InUse)

	depts, err := NewDepartmentRepository(db).QueryDepartments(ctxb)
	require.NoError(t, err)
	assert.Empty(t, depts)
}

func TestConnectionLost(t *testing.T) {
	db, err := sqlx.Open("postgres", "postgres://localhost/evalink?sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	var n int
	err = getOne(ctxb, db, &n, user.ErrNotFound, "SELECT 1")
	assert.True(t, core.IsShutdown(err), "got %v", err)

	err = withTx(ctxb, db, func(*sqlx.Tx) error { return nil })
	assert.True(t, core.IsShutdown(err), "got %v", err)

	err = mapError(&pq.Error{Code: "57P01", Message: "terminating connection due to administrator command"}, "users", "creating user", nil)
	assert.True(t, core.IsShutdown(err), "got %v", err)

	err = mapError(errors.New("lol"), "users", "creating user", nil)
	assert.False(t, core.IsShutdown(err))
	assert.EqualError(t, err, "creating user: lol")
}
