package dummydb

import (
	"context"
	"sort"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/evalink/core"
	"github.com/trezcool/evalink/core/department"
	"github.com/trezcool/evalink/core/section"
	"github.com/trezcool/evalink/core/subject"
)

func (db *DB) checkDepartment(id null.Int) error {
	if id.Valid {
		if _, ok := db.departments[id.Int]; !ok {
			return invalidRef("department_id")
		}
	}
	return nil
}

// ===== departments =====

type departmentRepository struct {
	db *DB
}

var _ department.Repository = (*departmentRepository)(nil)

func NewDepartmentRepository(db *DB) department.Repository {
	return &departmentRepository{db: db}
}

func (repo *departmentRepository) nameTaken(name string, exclID int) bool {
	for _, d := range repo.db.departments {
		if d.Name == name && d.ID != exclID {
			return true
		}
	}
	return false
}

func (repo *departmentRepository) QueryDepartments(context.Context) ([]department.Department, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	depts := make([]department.Department, 0, len(repo.db.departments))
	for _, d := range repo.db.departments {
		depts = append(depts, *d)
	}
	sort.Slice(depts, func(i, j int) bool { return depts[i].Name < depts[j].Name })
	return depts, nil
}

func (repo *departmentRepository) CreateDepartment(_ context.Context, dept department.Department) (department.Department, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.nameTaken(dept.Name, 0) {
		return department.Department{}, core.NewConflictError(department.ErrExists)
	}
	dept.ID = repo.db.nextID("departments")
	repo.db.departments[dept.ID] = &dept
	return dept, nil
}

func (repo *departmentRepository) UpdateDepartment(_ context.Context, dept department.Department) (department.Department, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.departments[dept.ID]
	if !ok {
		return department.Department{}, department.ErrNotFound
	}
	if repo.nameTaken(dept.Name, dept.ID) {
		return department.Department{}, core.NewConflictError(department.ErrExists)
	}
	orig.Name = dept.Name
	return *orig, nil
}

func (repo *departmentRepository) DeleteDepartment(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.departments[id]; !ok {
		return department.ErrNotFound
	}
	for _, u := range repo.db.users {
		if u.DepartmentID.Valid && u.DepartmentID.Int == id {
			u.DepartmentID = null.Int{}
		}
	}
	for _, s := range repo.db.sections {
		if s.DepartmentID.Valid && s.DepartmentID.Int == id {
			s.DepartmentID = null.Int{}
		}
	}
	for _, s := range repo.db.subjects {
		if s.DepartmentID.Valid && s.DepartmentID.Int == id {
			s.DepartmentID = null.Int{}
		}
	}
	delete(repo.db.departments, id)
	return nil
}

// ===== sections =====

type sectionRepository struct {
	db *DB
}

var _ section.Repository = (*sectionRepository)(nil)

func NewSectionRepository(db *DB) section.Repository {
	return &sectionRepository{db: db}
}

func (repo *sectionRepository) read(sec section.Section) section.Section {
	sec.DepartmentName = repo.db.departmentName(sec.DepartmentID)
	return sec
}

func (repo *sectionRepository) QuerySections(context.Context) ([]section.Section, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	secs := make([]section.Section, 0, len(repo.db.sections))
	for _, s := range repo.db.sections {
		secs = append(secs, repo.read(*s))
	}
	sort.Slice(secs, func(i, j int) bool {
		if secs[i].Name != secs[j].Name {
			return secs[i].Name < secs[j].Name
		}
		return secs[i].ID < secs[j].ID
	})
	return secs, nil
}

func (repo *sectionRepository) CreateSection(_ context.Context, sec section.Section) (section.Section, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.db.checkDepartment(sec.DepartmentID); err != nil {
		return section.Section{}, err
	}
	sec.ID = repo.db.nextID("sections")
	sec.DepartmentName = ""
	repo.db.sections[sec.ID] = &sec
	return repo.read(sec), nil
}

func (repo *sectionRepository) UpdateSection(_ context.Context, sec section.Section) (section.Section, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.sections[sec.ID]; !ok {
		return section.Section{}, section.ErrNotFound
	}
	if err := repo.db.checkDepartment(sec.DepartmentID); err != nil {
		return section.Section{}, err
	}
	sec.DepartmentName = ""
	repo.db.sections[sec.ID] = &sec
	return repo.read(sec), nil
}

func (repo *sectionRepository) DeleteSection(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.sections[id]; !ok {
		return section.ErrNotFound
	}
	for _, u := range repo.db.users {
		if u.SectionID.Valid && u.SectionID.Int == id {
			u.SectionID = null.Int{}
		}
	}
	for _, e := range repo.db.enrollments {
		if e.SectionID.Valid && e.SectionID.Int == id {
			e.SectionID = null.Int{}
		}
	}
	for _, e := range repo.db.evaluations {
		if e.SectionID.Valid && e.SectionID.Int == id {
			e.SectionID = null.Int{}
		}
	}
	for loadID, l := range repo.db.loads {
		if l.SectionID == id {
			delete(repo.db.loads, loadID)
		}
	}
	delete(repo.db.sections, id)
	return nil
}

// ===== subjects =====

type subjectRepository struct {
	db *DB
}

var _ subject.Repository = (*subjectRepository)(nil)

func NewSubjectRepository(db *DB) subject.Repository {
	return &subjectRepository{db: db}
}

func (repo *subjectRepository) read(subj subject.Subject) subject.Subject {
	subj.DepartmentName = repo.db.departmentName(subj.DepartmentID)

	seen := make(map[string]bool)
	subj.FacultyNames = make([]string, 0)
	for _, l := range repo.db.loads {
		if l.SubjectID != subj.ID {
			continue
		}
		if f, ok := repo.db.users[l.FacultyID]; ok && !seen[f.Name] {
			seen[f.Name] = true
			subj.FacultyNames = append(subj.FacultyNames, f.Name)
		}
	}
	sort.Strings(subj.FacultyNames)
	return subj
}

func (repo *subjectRepository) codeTaken(code string, exclID int) bool {
	for _, s := range repo.db.subjects {
		if s.Code == code && s.ID != exclID {
			return true
		}
	}
	return false
}

func (repo *subjectRepository) QuerySubjects(context.Context) ([]subject.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subjects := make([]subject.Subject, 0, len(repo.db.subjects))
	for _, s := range repo.db.subjects {
		subjects = append(subjects, repo.read(*s))
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Code < subjects[j].Code })
	return subjects, nil
}

func (repo *subjectRepository) CreateSubject(_ context.Context, subj subject.Subject) (subject.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.codeTaken(subj.Code, 0) {
		return subject.Subject{}, core.NewConflictError(subject.ErrCodeExists)
	}
	if err := repo.db.checkDepartment(subj.DepartmentID); err != nil {
		return subject.Subject{}, err
	}
	subj.ID = repo.db.nextID("subjects")
	subj.DepartmentName, subj.FacultyNames = "", nil
	repo.db.subjects[subj.ID] = &subj
	return repo.read(subj), nil
}

func (repo *subjectRepository) UpdateSubject(_ context.Context, subj subject.Subject) (subject.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.subjects[subj.ID]; !ok {
		return subject.Subject{}, subject.ErrNotFound
	}
	if repo.codeTaken(subj.Code, subj.ID) {
		return subject.Subject{}, core.NewConflictError(subject.ErrCodeExists)
	}
	if err := repo.db.checkDepartment(subj.DepartmentID); err != nil {
		return subject.Subject{}, err
	}
	subj.DepartmentName, subj.FacultyNames = "", nil
	repo.db.subjects[subj.ID] = &subj
	return repo.read(subj), nil
}

func (repo *subjectRepository) DeleteSubject(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.subjects[id]; !ok {
		return subject.ErrNotFound
	}
	for evID, ev := range repo.db.evaluations {
		if ev.SubjectID == id {
			repo.db.deleteEvaluation(evID)
		}
	}
	for enrID, e := range repo.db.enrollments {
		if e.SubjectID == id {
			delete(repo.db.enrollments, enrID)
		}
	}
	for loadID, l := range repo.db.loads {
		if l.SubjectID == id {
			delete(repo.db.loads, loadID)
		}
	}
	delete(repo.db.subjects, id)
	return nil
}
