package report

import (
	"github.com/volatiletech/null/v8"
)

// Row is one rating of one question in one evaluation, flattened with the descriptive columns of
// the faculty, subject, category and question it belongs to. The comments of the evaluation are
// repeated on each of its rows.
type Row struct {
	FacultyID    string      `boil:"faculty_id" db:"faculty_id" json:"faculty_id"`
	FacultyName  string      `boil:"faculty_name" db:"faculty_name" json:"faculty_name"`
	SubjectID    int         `boil:"subject_id" db:"subject_id" json:"subject_id"`
	SubjectName  string      `boil:"subject_name" db:"subject_name" json:"subject_name"`
	SubjectCode  string      `boil:"subject_code" db:"subject_code" json:"subject_code"`
	CategoryName string      `boil:"category_name" db:"category_name" json:"category_name"`
	QuestionID   int         `boil:"question_id" db:"question_id" json:"question_id"`
	QuestionText string      `boil:"question_text" db:"question_text" json:"question_text"`
	Rating       null.Int    `boil:"rating" db:"rating" json:"rating"`
	EvaluationID int         `boil:"evaluation_id" db:"evaluation_id" json:"evaluation_id"`
	Comments     null.String `boil:"comments" db:"comments" json:"comments"`
}

type (
	QuestionResult struct {
		QuestionID    int     `json:"question_id"`
		QuestionText  string  `json:"question_text"`
		AverageRating float64 `json:"average_rating"`
		ResponseCount int     `json:"response_count"`
	}

	CategoryResult struct {
		CategoryName string           `json:"category_name"`
		Questions    []QuestionResult `json:"questions"`
	}

	SubjectSummary struct {
		SubjectID        int              `json:"subject_id"`
		SubjectName      string           `json:"subject_name"`
		SubjectCode      string           `json:"subject_code"`
		OverallAverage   float64          `json:"overall_average"`
		TotalEvaluations int              `json:"total_evaluations"`
		Comments         []string         `json:"comments"`
		DetailedResults  []CategoryResult `json:"detailed_results"`
	}

	FacultySummary struct {
		FacultyID   string           `json:"faculty_id"`
		FacultyName string           `json:"faculty_name"`
		Subjects    []SubjectSummary `json:"subjects"`
	}
)
