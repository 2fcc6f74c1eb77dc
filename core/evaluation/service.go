package evaluation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core"
	"github.com/trezcool/evalink/core/activity"
)

var (
	ErrCategoryNotFound = errors.New("evaluation category not found")
	ErrCategoryExists   = errors.New("an evaluation category with this name already exists")
	ErrQuestionNotFound = errors.New("evaluation question not found")
	ErrAlreadySubmitted = errors.New("you have already submitted an evaluation for this subject")
	ErrScheduleClosed   = errors.New("the evaluation period is not open")
	ErrNotEnrolled      = errors.New("you are not enrolled in this subject with this faculty member")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		// QueryCategories returns every category with its questions, both ordered by display order then ID.
		QueryCategories(ctx context.Context) ([]Category, error)
		CreateCategory(ctx context.Context, cat Category) (Category, error)
		UpdateCategory(ctx context.Context, cat Category) (Category, error)
		// DeleteCategory deletes the category, its questions and their answers.
		DeleteCategory(ctx context.Context, id int) error

		CreateQuestion(ctx context.Context, q Question) (Question, error)
		UpdateQuestion(ctx context.Context, q Question) (Question, error)
		// DeleteQuestion deletes the question and its answers.
		DeleteQuestion(ctx context.Context, id int) error
		// MissingQuestions returns the IDs among ids that match no question.
		MissingQuestions(ctx context.Context, ids []int) ([]int, error)

		// CreateEvaluation saves the evaluation and its answers at once.
		// A second evaluation by the same student for the same subject and faculty returns ErrAlreadySubmitted.
		CreateEvaluation(ctx context.Context, ev Evaluation, answers []Answer) (Evaluation, error)
		EvaluatedSubjects(ctx context.Context, studentID string) ([]int, error)
		// QueryEvaluations returns all evaluations, newest first.
		QueryEvaluations(ctx context.Context) ([]ListItem, error)
		// CountDaily counts evaluations per UTC day between from and to, both included, in ascending order.
		// Days without evaluations are omitted.
		CountDaily(ctx context.Context, from, to time.Time) ([]DailyCount, error)
	}

	// ScheduleChecker tells whether the evaluation period is open.
	ScheduleChecker interface {
		IsOpen(ctx context.Context) (bool, error)
	}

	// EnrollmentChecker tells whether a student is enrolled in a subject with a faculty member.
	EnrollmentChecker interface {
		IsEnrolled(ctx context.Context, studentID string, subjectID int, facultyID string) (bool, error)
	}

	Service interface {
		QueryCategories(ctx context.Context) ([]Category, error)
		CreateCategory(ctx context.Context, nc NewCategory) (Category, error)
		UpdateCategory(ctx context.Context, id int, nc NewCategory) (Category, error)
		DeleteCategory(ctx context.Context, id int) error
		CreateQuestion(ctx context.Context, nq NewQuestion) (Question, error)
		UpdateQuestion(ctx context.Context, id int, nq NewQuestion) (Question, error)
		DeleteQuestion(ctx context.Context, id int) error

		Submit(ctx context.Context, studentID string, sub Submission) (Evaluation, error)
		EvaluatedSubjects(ctx context.Context, studentID string) ([]int, error)
		Query(ctx context.Context) ([]ListItem, error)
		DailyStats(ctx context.Context, q DailyStatsQuery) ([]DailyCount, error)
	}

	service struct {
		repo        Repository
		schedule    ScheduleChecker
		enrollments EnrollmentChecker
		activity    activity.Service
		metrics     core.Metrics
	}
)

func NewService(
	repo Repository,
	schedule ScheduleChecker,
	enrollments EnrollmentChecker,
	activitySvc activity.Service,
	metrics core.Metrics,
) Service {
	return &service{
		repo:        repo,
		schedule:    schedule,
		enrollments: enrollments,
		activity:    activitySvc,
		metrics:     metrics,
	}
}

func (svc *service) QueryCategories(ctx context.Context) ([]Category, error) {
	return svc.repo.QueryCategories(ctx)
}

func (svc *service) CreateCategory(ctx context.Context, nc NewCategory) (Category, error) {
	return svc.repo.CreateCategory(ctx, Category{Name: nc.Name, DisplayOrder: nc.DisplayOrder})
}

func (svc *service) UpdateCategory(ctx context.Context, id int, nc NewCategory) (Category, error) {
	return svc.repo.UpdateCategory(ctx, Category{ID: id, Name: nc.Name, DisplayOrder: nc.DisplayOrder})
}

func (svc *service) DeleteCategory(ctx context.Context, id int) error {
	return svc.repo.DeleteCategory(ctx, id)
}

func (svc *service) CreateQuestion(ctx context.Context, nq NewQuestion) (Question, error) {
	return svc.repo.CreateQuestion(ctx, Question{CategoryID: nq.CategoryID, Text: nq.Text, DisplayOrder: nq.DisplayOrder})
}

func (svc *service) UpdateQuestion(ctx context.Context, id int, nq NewQuestion) (Question, error) {
	return svc.repo.UpdateQuestion(ctx, Question{ID: id, CategoryID: nq.CategoryID, Text: nq.Text, DisplayOrder: nq.DisplayOrder})
}

func (svc *service) DeleteQuestion(ctx context.Context, id int) error {
	return svc.repo.DeleteQuestion(ctx, id)
}

func (svc *service) Submit(ctx context.Context, studentID string, sub Submission) (Evaluation, error) {
	open, err := svc.schedule.IsOpen(ctx)
	if err != nil {
		return Evaluation{}, errors.Wrap(err, "checking schedule")
	}
	if !open {
		return Evaluation{}, ErrScheduleClosed
	}

	enrolled, err := svc.enrollments.IsEnrolled(ctx, studentID, sub.SubjectID, sub.FacultyID)
	if err != nil {
		return Evaluation{}, errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return Evaluation{}, ErrNotEnrolled
	}

	answers := sub.answers()
	qids := make([]int, 0, len(answers))
	for _, a := range answers {
		qids = append(qids, a.QuestionID)
	}
	missing, err := svc.repo.MissingQuestions(ctx, qids)
	if err != nil {
		return Evaluation{}, errors.Wrap(err, "checking questions")
	}
	if len(missing) > 0 {
		sort.Ints(missing)
		strs := make([]string, 0, len(missing))
		for _, id := range missing {
			strs = append(strs, fmt.Sprint(id))
		}
		msg := "unknown questions: " + strings.Join(strs, ", ")
		return Evaluation{}, core.NewValidationError(errors.New(msg), core.FieldError{Field: "answers", Error: msg})
	}

	ev, err := svc.repo.CreateEvaluation(ctx, Evaluation{
		StudentID:   studentID,
		FacultyID:   sub.FacultyID,
		SubjectID:   sub.SubjectID,
		SectionID:   sub.SectionID,
		Comments:    sub.Comments,
		SubmittedAt: NowFunc().UTC(),
	}, answers)
	if err != nil {
		return Evaluation{}, err
	}

	svc.metrics.EvaluationSubmitted()
	svc.activity.Record(ctx, studentID, activity.TypeEvaluation,
		fmt.Sprintf("Submitted evaluation #%d for subject #%d (faculty %s)", ev.ID, ev.SubjectID, ev.FacultyID))
	return ev, nil
}

func (svc *service) EvaluatedSubjects(ctx context.Context, studentID string) ([]int, error) {
	return svc.repo.EvaluatedSubjects(ctx, studentID)
}

func (svc *service) Query(ctx context.Context) ([]ListItem, error) {
	return svc.repo.QueryEvaluations(ctx)
}

func (svc *service) DailyStats(ctx context.Context, q DailyStatsQuery) ([]DailyCount, error) {
	from, to, err := q.Range(NowFunc())
	if err != nil {
		return nil, err
	}
	return svc.repo.CountDaily(ctx, from, to)
}
