package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/evalink/core"
	"github.com/trezcool/evalink/core/assignment"
)

type assignmentRepository struct {
	db *DB
}

var _ assignment.Repository = (*assignmentRepository)(nil)

func NewAssignmentRepository(db *DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) readLoad(l assignment.FacultyLoad) assignment.FacultyLoad {
	if f, ok := repo.db.users[l.FacultyID]; ok {
		l.FacultyName = f.Name
	}
	if s, ok := repo.db.subjects[l.SubjectID]; ok {
		l.SubjectName, l.SubjectCode = s.Name, s.Code
		l.DepartmentName = repo.db.departmentName(s.DepartmentID)
	}
	if sec, ok := repo.db.sections[l.SectionID]; ok {
		l.SectionName = sec.Name
	}
	return l
}

func (repo *assignmentRepository) readEnrollment(e assignment.Enrollment) assignment.Enrollment {
	if st, ok := repo.db.users[e.StudentID]; ok {
		e.StudentName = st.Name
	}
	if f, ok := repo.db.users[e.FacultyID]; ok {
		e.FacultyName = f.Name
	}
	if s, ok := repo.db.subjects[e.SubjectID]; ok {
		e.SubjectName, e.SubjectCode = s.Name, s.Code
	}
	if e.SectionID.Valid {
		if sec, ok := repo.db.sections[e.SectionID.Int]; ok {
			e.SectionName = sec.Name
		}
	}
	return e
}

func (repo *assignmentRepository) QueryFacultyLoads(_ context.Context, facultyID string) ([]assignment.FacultyLoad, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	loads := make([]assignment.FacultyLoad, 0)
	for _, l := range repo.db.loads {
		if facultyID == "" || l.FacultyID == facultyID {
			loads = append(loads, repo.readLoad(*l))
		}
	}
	sort.Slice(loads, func(i, j int) bool {
		a, b := loads[i], loads[j]
		if a.FacultyName != b.FacultyName {
			return a.FacultyName < b.FacultyName
		}
		if a.SubjectName != b.SubjectName {
			return a.SubjectName < b.SubjectName
		}
		return a.ID < b.ID
	})
	return loads, nil
}

func (repo *assignmentRepository) CreateFacultyLoad(_ context.Context, load assignment.FacultyLoad) (assignment.FacultyLoad, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[load.FacultyID]; !ok {
		return assignment.FacultyLoad{}, invalidRef("faculty_id")
	}
	if _, ok := repo.db.subjects[load.SubjectID]; !ok {
		return assignment.FacultyLoad{}, invalidRef("subject_id")
	}
	if _, ok := repo.db.sections[load.SectionID]; !ok {
		return assignment.FacultyLoad{}, invalidRef("section_id")
	}
	for _, l := range repo.db.loads {
		if l.SubjectID == load.SubjectID && l.SectionID == load.SectionID {
			return assignment.FacultyLoad{}, core.NewConflictError(assignment.ErrLoadExists)
		}
	}

	load = assignment.FacultyLoad{
		ID:        repo.db.nextID("faculty_loads"),
		FacultyID: load.FacultyID,
		SubjectID: load.SubjectID,
		SectionID: load.SectionID,
	}
	repo.db.loads[load.ID] = &load
	return repo.readLoad(load), nil
}

func (repo *assignmentRepository) DeleteFacultyLoad(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.loads[id]; !ok {
		return assignment.ErrLoadNotFound
	}
	delete(repo.db.loads, id)
	return nil
}

func (repo *assignmentRepository) QueryEnrollments(_ context.Context, studentID string) ([]assignment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrollments := make([]assignment.Enrollment, 0)
	for _, e := range repo.db.enrollments {
		if studentID == "" || e.StudentID == studentID {
			enrollments = append(enrollments, repo.readEnrollment(*e))
		}
	}
	sort.Slice(enrollments, func(i, j int) bool {
		a, b := enrollments[i], enrollments[j]
		if a.StudentName != b.StudentName {
			return a.StudentName < b.StudentName
		}
		if a.SubjectName != b.SubjectName {
			return a.SubjectName < b.SubjectName
		}
		return a.ID < b.ID
	})
	return enrollments, nil
}

func (repo *assignmentRepository) CreateEnrollment(_ context.Context, enr assignment.Enrollment) (assignment.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[enr.StudentID]; !ok {
		return assignment.Enrollment{}, invalidRef("student_id")
	}
	if _, ok := repo.db.users[enr.FacultyID]; !ok {
		return assignment.Enrollment{}, invalidRef("faculty_id")
	}
	if _, ok := repo.db.subjects[enr.SubjectID]; !ok {
		return assignment.Enrollment{}, invalidRef("subject_id")
	}
	if enr.SectionID.Valid {
		if _, ok := repo.db.sections[enr.SectionID.Int]; !ok {
			return assignment.Enrollment{}, invalidRef("section_id")
		}
	}
	for _, e := range repo.db.enrollments {
		if e.StudentID == enr.StudentID && e.SubjectID == enr.SubjectID {
			return assignment.Enrollment{}, core.NewConflictError(assignment.ErrEnrollmentExists)
		}
	}

	enr = assignment.Enrollment{
		ID:        repo.db.nextID("student_subjects"),
		StudentID: enr.StudentID,
		SubjectID: enr.SubjectID,
		FacultyID: enr.FacultyID,
		SectionID: enr.SectionID,
	}
	repo.db.enrollments[enr.ID] = &enr
	return repo.readEnrollment(enr), nil
}

func (repo *assignmentRepository) DeleteEnrollment(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.enrollments[id]; !ok {
		return assignment.ErrEnrollmentNotFound
	}
	delete(repo.db.enrollments, id)
	return nil
}

func (repo *assignmentRepository) IsEnrolled(_ context.Context, studentID string, subjectID int, facultyID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, e := range repo.db.enrollments {
		if e.StudentID == studentID && e.SubjectID == subjectID && e.FacultyID == facultyID {
			return true, nil
		}
	}
	return false, nil
}
