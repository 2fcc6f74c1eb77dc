package dummydb

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/evalink/core"
	"github.com/trezcool/evalink/core/activity"
	"github.com/trezcool/evalink/core/assignment"
	"github.com/trezcool/evalink/core/department"
	"github.com/trezcool/evalink/core/evaluation"
	"github.com/trezcool/evalink/core/incident"
	"github.com/trezcool/evalink/core/schedule"
	"github.com/trezcool/evalink/core/section"
	"github.com/trezcool/evalink/core/subject"
	"github.com/trezcool/evalink/core/user"
)

// DB keeps every table in memory behind one lock. Rows are stored without their joined columns,
// which are filled in on read.
type DB struct {
	sync.RWMutex

	pk map[string]int

	users       map[string]*user.User
	departments map[int]*department.Department
	sections    map[int]*section.Section
	subjects    map[int]*subject.Subject
	loads       map[int]*assignment.FacultyLoad
	enrollments map[int]*assignment.Enrollment
	categories  map[int]*evaluation.Category
	questions   map[int]*evaluation.Question
	evaluations map[int]*evaluation.Evaluation
	answers     []evaluation.Answer
	schedule    *schedule.Schedule
	incidents   map[int]*incident.Incident
	logs        []activity.Log
}

func Open() (*DB, error) {
	db := &DB{
		pk:          make(map[string]int),
		users:       make(map[string]*user.User),
		departments: make(map[int]*department.Department),
		sections:    make(map[int]*section.Section),
		subjects:    make(map[int]*subject.Subject),
		loads:       make(map[int]*assignment.FacultyLoad),
		enrollments: make(map[int]*assignment.Enrollment),
		categories:  make(map[int]*evaluation.Category),
		questions:   make(map[int]*evaluation.Question),
		evaluations: make(map[int]*evaluation.Evaluation),
		incidents:   make(map[int]*incident.Incident),
	}
	return db, nil
}

// nextID returns the next serial value of table. Callers hold the write lock.
func (db *DB) nextID(table string) int {
	db.pk[table]++
	return db.pk[table]
}

// invalidRef mimics a foreign key violation.
func invalidRef(field string) error {
	return core.NewValidationError(
		errors.Errorf("invalid %s", field),
		core.FieldError{Field: field, Error: "does not exist"},
	)
}

func (db *DB) departmentName(id null.Int) string {
	if !id.Valid {
		return ""
	}
	if d, ok := db.departments[id.Int]; ok {
		return d.Name
	}
	return ""
}
