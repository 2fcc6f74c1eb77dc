package evaluation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/evalink/core"
	"github.com/trezcool/evalink/core/activity"
)

type repoMock struct {
	Repository // unused methods panic

	questions map[int]bool
	created   []Evaluation
	answers   [][]Answer
	from, to  time.Time
}

func (r *repoMock) MissingQuestions(_ context.Context, ids []int) ([]int, error) {
	var missing []int
	for _, id := range ids {
		if !r.questions[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (r *repoMock) CreateEvaluation(_ context.Context, ev Evaluation, answers []Answer) (Evaluation, error) {
	for _, c := range r.created {
		if c.StudentID == ev.StudentID && c.SubjectID == ev.SubjectID && c.FacultyID == ev.FacultyID {
			return Evaluation{}, core.NewConflictError(ErrAlreadySubmitted)
		}
	}
	ev.ID = len(r.created) + 1
	r.created = append(r.created, ev)
	r.answers = append(r.answers, answers)
	return ev, nil
}

func (r *repoMock) CountDaily(_ context.Context, from, to time.Time) ([]DailyCount, error) {
	r.from, r.to = from, to
	return []DailyCount{}, nil
}

type scheduleMock bool

func (s scheduleMock) IsOpen(context.Context) (bool, error) { return bool(s), nil }

type enrollmentsMock map[string]bool // "student/subject/faculty"

func (e enrollmentsMock) IsEnrolled(_ context.Context, studentID string, subjectID int, facultyID string) (bool, error) {
	return e[fmt.Sprintf("%s/%d/%s", studentID, subjectID, facultyID)], nil
}

type activityMock struct {
	activity.Service

	recorded []string
}

func (a *activityMock) Record(_ context.Context, userID, activityType, _ string) {
	a.recorded = append(a.recorded, userID+":"+activityType)
}

type metricsMock struct {
	submitted int
}

func (m *metricsMock) ObserveAggregation(string, int, time.Duration) {}
func (m *metricsMock) EvaluationSubmitted()                          { m.submitted++ }
func (m *metricsMock) ActivityRecordFailed()                         {}

type fixture struct {
	svc      Service
	repo     *repoMock
	activity *activityMock
	metrics  *metricsMock
}

func newFixture(open bool) fixture {
	f := fixture{
		repo:     &repoMock{questions: map[int]bool{1: true, 2: true, 3: true}},
		activity: new(activityMock),
		metrics:  new(metricsMock),
	}
	enrollments := enrollmentsMock{"s1/1/f1": true}
	f.svc = NewService(f.repo, scheduleMock(open), enrollments, f.activity, f.metrics)
	return f
}

func TestService_Submit(t *testing.T) {
	ctx := context.Background()
	sub := Submission{FacultyID: "f1", SubjectID: 1, Answers: map[int]int{3: 4, 1: 5, 2: 3}, Comments: "good"}

	t.Run("success", func(t *testing.T) {
		f := newFixture(true)
		ev, err := f.svc.Submit(ctx, "s1", sub)
		require.NoError(t, err)
		assert.Equal(t, 1, ev.ID)
		assert.Equal(t, "s1", ev.StudentID)
		assert.Equal(t, "good", ev.Comments)
		assert.False(t, ev.SubmittedAt.IsZero())
		assert.Equal(t, []Answer{{QuestionID: 1, Rating: 5}, {QuestionID: 2, Rating: 3}, {QuestionID: 3, Rating: 4}}, f.repo.answers[0])
		assert.Equal(t, []string{"s1:" + activity.TypeEvaluation}, f.activity.recorded)
		assert.Equal(t, 1, f.metrics.submitted)

		_, err = f.svc.Submit(ctx, "s1", sub)
		assert.True(t, core.IsConflict(err))
		assert.Len(t, f.repo.created, 1)
		assert.Equal(t, 1, f.metrics.submitted)
	})

	t.Run("schedule closed", func(t *testing.T) {
		f := newFixture(false)
		_, err := f.svc.Submit(ctx, "s1", sub)
		assert.Equal(t, ErrScheduleClosed, err)
		assert.Empty(t, f.repo.created)
	})

	t.Run("not enrolled", func(t *testing.T) {
		f := newFixture(true)
		_, err := f.svc.Submit(ctx, "s2", sub)
		assert.Equal(t, ErrNotEnrolled, err)

		other := sub
		other.FacultyID = "f2"
		_, err = f.svc.Submit(ctx, "s1", other)
		assert.Equal(t, ErrNotEnrolled, err)
		assert.Empty(t, f.repo.created)
	})

	t.Run("unknown questions", func(t *testing.T) {
		f := newFixture(true)
		bad := sub
		bad.Answers = map[int]int{1: 5, 9: 4, 7: 3}
		_, err := f.svc.Submit(ctx, "s1", bad)
		require.Error(t, err)
		verr, ok := err.(*core.ValidationError)
		require.True(t, ok)
		assert.Equal(t, "unknown questions: 7, 9", verr.Fields[0].Error)
		assert.Empty(t, f.repo.created)
		assert.Empty(t, f.activity.recorded)
	})
}

func TestSubmission_Validate(t *testing.T) {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	tests := []struct {
		name    string
		sub     Submission
		wantErr bool
	}{
		{name: "valid", sub: Submission{FacultyID: "f1", SubjectID: 1, Answers: map[int]int{1: 1, 2: 5}}},
		{name: "no answers", sub: Submission{FacultyID: "f1", SubjectID: 1, Answers: map[int]int{}}, wantErr: true},
		{name: "nil answers", sub: Submission{FacultyID: "f1", SubjectID: 1}, wantErr: true},
		{name: "missing faculty", sub: Submission{SubjectID: 1, Answers: map[int]int{1: 3}}, wantErr: true},
		{name: "rating too low", sub: Submission{FacultyID: "f1", SubjectID: 1, Answers: map[int]int{1: 0}}, wantErr: true},
		{name: "rating too high", sub: Submission{FacultyID: "f1", SubjectID: 1, Answers: map[int]int{1: 6}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sub.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDailyStatsQuery_Range(t *testing.T) {
	now := time.Date(2024, time.March, 10, 15, 30, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name     string
		query    DailyStatsQuery
		wantFrom time.Time
		wantTo   time.Time
		wantErr  bool
	}{
		{name: "defaults", wantFrom: day(4), wantTo: day(10)},
		{name: "custom days", query: DailyStatsQuery{Days: 3}, wantFrom: day(8), wantTo: day(10)},
		{name: "custom today", query: DailyStatsQuery{Days: 2, Today: "2024-03-05"}, wantFrom: day(4), wantTo: day(5)},
		{name: "capped", query: DailyStatsQuery{Days: 1000}, wantFrom: day(10).AddDate(0, 0, -365), wantTo: day(10)},
		{name: "bad date", query: DailyStatsQuery{Today: "03/05/2024"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := tt.query.Range(now)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFrom, from)
			assert.Equal(t, tt.wantTo, to)
		})
	}
}

func TestService_DailyStats(t *testing.T) {
	NowFunc = func() time.Time { return time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC) }
	defer func() { NowFunc = time.Now }()

	f := newFixture(true)
	got, err := f.svc.DailyStats(context.Background(), DailyStatsQuery{Days: 1})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Equal(t, f.repo.from, f.repo.to)
	assert.Equal(t, 10, f.repo.to.Day())
}
