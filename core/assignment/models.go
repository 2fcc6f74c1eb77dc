package assignment

import (
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/evalink/core"
)

// FacultyLoad assigns a faculty member to teach a subject to a section.
type FacultyLoad struct {
	ID             int    `json:"id" db:"id"`
	FacultyID      string `json:"faculty_id" db:"faculty_id"`
	SubjectID      int    `json:"subject_id" db:"subject_id"`
	SectionID      int    `json:"section_id" db:"section_id"`
	FacultyName    string `json:"faculty_name" db:"faculty_name"`
	SubjectName    string `json:"subject_name" db:"subject_name"`
	SubjectCode    string `json:"subject_code" db:"subject_code"`
	SectionName    string `json:"section_name" db:"section_name"`
	DepartmentName string `json:"department_name" db:"department_name"`
}

type NewFacultyLoad struct {
	FacultyID string `json:"faculty_id" validate:"required"`
	SubjectID int    `json:"subject_id" validate:"required,min=1"`
	SectionID int    `json:"section_id" validate:"required,min=1"`
}

func (nl *NewFacultyLoad) Validate(validate *validator.Validate) error {
	nl.FacultyID = core.CleanString(nl.FacultyID)
	return validate.Struct(nl)
}

// Enrollment registers a student in a subject taught by a faculty member.
type Enrollment struct {
	ID          int      `json:"id" db:"id"`
	StudentID   string   `json:"student_id" db:"student_id"`
	SubjectID   int      `json:"subject_id" db:"subject_id"`
	FacultyID   string   `json:"faculty_id" db:"faculty_id"`
	SectionID   null.Int `json:"section_id" db:"section_id"`
	StudentName string   `json:"student_name" db:"student_name"`
	SubjectName string   `json:"subject_name" db:"subject_name"`
	SubjectCode string   `json:"subject_code" db:"subject_code"`
	FacultyName string   `json:"faculty_name" db:"faculty_name"`
	SectionName string   `json:"section_name" db:"section_name"`
}

type NewEnrollment struct {
	StudentID string   `json:"student_id" validate:"required"`
	SubjectID int      `json:"subject_id" validate:"required,min=1"`
	FacultyID string   `json:"faculty_id" validate:"required"`
	SectionID null.Int `json:"section_id"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.StudentID = core.CleanString(ne.StudentID)
	ne.FacultyID = core.CleanString(ne.FacultyID)
	return validate.Struct(ne)
}
