package evaluation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/evalink/core"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Category struct {
	ID           int        `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	DisplayOrder int        `json:"display_order" db:"display_order"`
	Questions    []Question `json:"questions" db:"-"`
}

type Question struct {
	ID           int    `json:"id" db:"id"`
	CategoryID   int    `json:"category_id" db:"category_id"`
	Text         string `json:"text" db:"text"`
	DisplayOrder int    `json:"display_order" db:"display_order"`
}

// NewCategory is used to create and to update a Category.
type NewCategory struct {
	Name         string `json:"name" validate:"required,notblank,max=120"`
	DisplayOrder int    `json:"display_order" validate:"min=0"`
}

func (nc *NewCategory) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

// NewQuestion is used to create and to update a Question.
type NewQuestion struct {
	CategoryID   int    `json:"category_id" validate:"required,min=1"`
	Text         string `json:"text" validate:"required,notblank,max=500"`
	DisplayOrder int    `json:"display_order" validate:"min=0"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.Text = core.CleanString(nq.Text)
	return validate.Struct(nq)
}

type Evaluation struct {
	ID          int       `json:"id" db:"id"`
	StudentID   string    `json:"student_id" db:"student_id"`
	FacultyID   string    `json:"faculty_id" db:"faculty_id"`
	SubjectID   int       `json:"subject_id" db:"subject_id"`
	SectionID   null.Int  `json:"section_id" db:"section_id"`
	Comments    string    `json:"comments" db:"comments"`
	SubmittedAt time.Time `json:"submitted_at" db:"submitted_at"`
}

type Answer struct {
	EvaluationID int `json:"evaluation_id" db:"evaluation_id"`
	QuestionID   int `json:"question_id" db:"question_id"`
	Rating       int `json:"rating" db:"rating"`
}

// Submission is an evaluation as sent by a student. Answers maps question IDs to ratings.
type Submission struct {
	FacultyID string      `json:"faculty_id" validate:"required"`
	SubjectID int         `json:"subject_id" validate:"required,min=1"`
	SectionID null.Int    `json:"section_id"`
	Answers   map[int]int `json:"answers" validate:"required,min=1"`
	Comments  string      `json:"comments" validate:"max=5000"`
}

func (s *Submission) Validate(validate *validator.Validate) error {
	s.FacultyID = core.CleanString(s.FacultyID)
	s.Comments = core.CleanString(s.Comments)
	if err := validate.Struct(s); err != nil {
		return err
	}

	var invalid []string
	for qid, rating := range s.Answers {
		if rating < MinRating || rating > MaxRating {
			invalid = append(invalid, fmt.Sprint(qid))
		}
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		msg := fmt.Sprintf("ratings must be between %d and %d (questions: %s)", MinRating, MaxRating, strings.Join(invalid, ", "))
		return core.NewValidationError(errors.New(msg), core.FieldError{Field: "answers", Error: msg})
	}
	return nil
}

// answers returns the answers ordered by question ID.
func (s *Submission) answers() []Answer {
	answers := make([]Answer, 0, len(s.Answers))
	for qid, rating := range s.Answers {
		answers = append(answers, Answer{QuestionID: qid, Rating: rating})
	}
	sort.Slice(answers, func(i, j int) bool { return answers[i].QuestionID < answers[j].QuestionID })
	return answers
}

// ListItem is an evaluation as listed to admins. Rating is the mean of its answers.
type ListItem struct {
	ID        int     `json:"id" db:"id"`
	StudentID string  `json:"student_id" db:"student_id"`
	Course    string  `json:"course" db:"course"`
	Feedback  string  `json:"feedback" db:"feedback"`
	Rating    float64 `json:"rating" db:"rating"`
}

type DailyCount struct {
	EvaluationDate  string `json:"evaluation_date" db:"evaluation_date"` // YYYY-MM-DD
	EvaluationCount int    `json:"evaluation_count" db:"evaluation_count"`
}

// DailyStatsQuery selects the Days days ending on Today.
type DailyStatsQuery struct {
	Days  int    `query:"days"`
	Today string `query:"today"`
}

const (
	dateLayout       = "2006-01-02"
	defaultStatsDays = 7
	maxStatsDays     = 366
)

// Range returns the first and last day of the query, both at midnight UTC.
func (q *DailyStatsQuery) Range(now time.Time) (time.Time, time.Time, error) {
	days := q.Days
	if days <= 0 {
		days = defaultStatsDays
	}
	if days > maxStatsDays {
		days = maxStatsDays
	}

	today := now.UTC().Truncate(24 * time.Hour)
	if q.Today != "" {
		t, err := time.Parse(dateLayout, q.Today)
		if err != nil {
			msg := "today must be a date formatted as YYYY-MM-DD"
			return time.Time{}, time.Time{}, core.NewValidationError(errors.New(msg), core.FieldError{Field: "today", Error: msg})
		}
		today = t
	}
	return today.AddDate(0, 0, -(days - 1)), today, nil
}
