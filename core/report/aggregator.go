package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
)

const (
	minRating = 1
	maxRating = 5
)

// ErrMalformedRow is the cause of every RowError.
var ErrMalformedRow = errors.New("malformed evaluation row")

// RowError reports the first row of a batch that breaks the input contract.
type RowError struct {
	Index int
	Field string
	Value interface{}
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%v: row %d: invalid %s %v", ErrMalformedRow, e.Index, e.Field, e.Value)
}

// Cause makes errors.Cause return ErrMalformedRow.
func (e *RowError) Cause() error { return ErrMalformedRow }

func (e *RowError) Unwrap() error { return ErrMalformedRow }

type (
	questionAcc struct {
		text     string
		category string
		sum      int
		count    int
	}

	subjectAcc struct {
		id          int
		name        string
		code        string
		questions   *OrderedMap[int, *questionAcc]
		evaluations map[int]struct{}
		comments    *OrderedMap[string, struct{}]
	}

	facultyAcc struct {
		id       string
		name     string
		subjects *OrderedMap[int, *subjectAcc]
	}
)

// AggregateSubjects summarizes rows per subject. All rows are treated as belonging to a single
// faculty member. Rows must be ordered the way subjects, categories and questions should appear.
func AggregateSubjects(rows []Row) ([]SubjectSummary, error) {
	faculties, err := fold(rows, false)
	if err != nil {
		return nil, err
	}
	summaries := make([]SubjectSummary, 0)
	faculties.Each(func(_ string, fac *facultyAcc) {
		summaries = append(summaries, finishSubjects(fac)...)
	})
	return summaries, nil
}

// AggregateFaculties summarizes rows per faculty member, then per subject.
func AggregateFaculties(rows []Row) ([]FacultySummary, error) {
	faculties, err := fold(rows, true)
	if err != nil {
		return nil, err
	}
	summaries := make([]FacultySummary, 0, faculties.Len())
	faculties.Each(func(id string, fac *facultyAcc) {
		summaries = append(summaries, FacultySummary{
			FacultyID:   id,
			FacultyName: fac.name,
			Subjects:    finishSubjects(fac),
		})
	})
	return summaries, nil
}

func fold(rows []Row, byFaculty bool) (*OrderedMap[string, *facultyAcc], error) {
	faculties := NewOrderedMap[string, *facultyAcc]()

	for i, row := range rows {
		if err := checkRow(i, row, byFaculty); err != nil {
			return nil, err
		}

		var facKey string
		if byFaculty {
			facKey = row.FacultyID
		}
		fac := faculties.GetOrInit(facKey, func() *facultyAcc {
			return &facultyAcc{
				id:       facKey,
				name:     row.FacultyName,
				subjects: NewOrderedMap[int, *subjectAcc](),
			}
		})

		subj := fac.subjects.GetOrInit(row.SubjectID, func() *subjectAcc {
			return &subjectAcc{
				id:          row.SubjectID,
				name:        row.SubjectName,
				code:        row.SubjectCode,
				questions:   NewOrderedMap[int, *questionAcc](),
				evaluations: make(map[int]struct{}),
				comments:    NewOrderedMap[string, struct{}](),
			}
		})

		q := subj.questions.GetOrInit(row.QuestionID, func() *questionAcc {
			return &questionAcc{text: row.QuestionText, category: row.CategoryName}
		})
		q.sum += row.Rating.Int
		q.count++

		subj.evaluations[row.EvaluationID] = struct{}{}
		if row.Comments.Valid && strings.TrimSpace(row.Comments.String) != "" {
			subj.comments.Set(row.Comments.String, struct{}{})
		}
	}
	return faculties, nil
}

func checkRow(idx int, row Row, byFaculty bool) error {
	switch {
	case !row.Rating.Valid:
		return &RowError{Index: idx, Field: "rating", Value: nil}
	case row.Rating.Int < minRating || row.Rating.Int > maxRating:
		return &RowError{Index: idx, Field: "rating", Value: row.Rating.Int}
	case row.SubjectID <= 0:
		return &RowError{Index: idx, Field: "subject_id", Value: row.SubjectID}
	case row.QuestionID <= 0:
		return &RowError{Index: idx, Field: "question_id", Value: row.QuestionID}
	case row.EvaluationID <= 0:
		return &RowError{Index: idx, Field: "evaluation_id", Value: row.EvaluationID}
	case byFaculty && strings.TrimSpace(row.FacultyID) == "":
		return &RowError{Index: idx, Field: "faculty_id", Value: row.FacultyID}
	}
	return nil
}

func finishSubjects(fac *facultyAcc) []SubjectSummary {
	summaries := make([]SubjectSummary, 0, fac.subjects.Len())
	fac.subjects.Each(func(_ int, subj *subjectAcc) {
		summaries = append(summaries, finishSubject(subj))
	})
	return summaries
}

func finishSubject(subj *subjectAcc) SubjectSummary {
	var totalSum, totalCount int
	categories := NewOrderedMap[string, []QuestionResult]()

	subj.questions.Each(func(id int, q *questionAcc) {
		totalSum += q.sum
		totalCount += q.count

		questions, _ := categories.Get(q.category)
		categories.Set(q.category, append(questions, QuestionResult{
			QuestionID:    id,
			QuestionText:  q.text,
			AverageRating: mean(q.sum, q.count),
			ResponseCount: q.count,
		}))
	})

	details := make([]CategoryResult, 0, categories.Len())
	categories.Each(func(name string, questions []QuestionResult) {
		details = append(details, CategoryResult{CategoryName: name, Questions: questions})
	})

	return SubjectSummary{
		SubjectID:        subj.id,
		SubjectName:      subj.name,
		SubjectCode:      subj.code,
		OverallAverage:   mean(totalSum, totalCount),
		TotalEvaluations: len(subj.evaluations),
		Comments:         subj.comments.Keys(),
		DetailedResults:  details,
	}
}

func mean(sum, count int) float64 {
	if count == 0 {
		return 0
	}
	return round2(float64(sum) / float64(count))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
