package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/evalink/core/assignment"
	"github.com/trezcool/evalink/core/department"
	"github.com/trezcool/evalink/core/evaluation"
	"github.com/trezcool/evalink/core/section"
	"github.com/trezcool/evalink/core/subject"
	"github.com/trezcool/evalink/core/user"
)

// Password satisfies the password policy.
const Password = "Str0ng#Pass1"

func CreateUser(
	t *testing.T,
	repo user.Repository,
	id, name, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        id,
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateDepartment(t *testing.T, repo department.Repository, name string) department.Department {
	dept, err := repo.CreateDepartment(context.Background(), department.Department{Name: name, CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("CreateDepartment() failed: %v", err)
	}
	return dept
}

func CreateSection(t *testing.T, repo section.Repository, name string, deptID, yearLevel int) section.Section {
	sec, err := repo.CreateSection(context.Background(), section.Section{
		Name:         name,
		DepartmentID: null.IntFrom(deptID),
		YearLevel:    yearLevel,
	})
	if err != nil {
		t.Fatalf("CreateSection() failed: %v", err)
	}
	return sec
}

func CreateSubject(t *testing.T, repo subject.Repository, code, name string, deptID int) subject.Subject {
	subj, err := repo.CreateSubject(context.Background(), subject.Subject{
		Code:         code,
		Name:         name,
		DepartmentID: null.IntFrom(deptID),
		YearLevel:    1,
	})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return subj
}

func CreateFacultyLoad(t *testing.T, repo assignment.Repository, facultyID string, subjectID, sectionID int) assignment.FacultyLoad {
	load, err := repo.CreateFacultyLoad(context.Background(), assignment.FacultyLoad{
		FacultyID: facultyID,
		SubjectID: subjectID,
		SectionID: sectionID,
	})
	if err != nil {
		t.Fatalf("CreateFacultyLoad() failed: %v", err)
	}
	return load
}

func CreateEnrollment(t *testing.T, repo assignment.Repository, studentID string, subjectID int, facultyID string) assignment.Enrollment {
	enr, err := repo.CreateEnrollment(context.Background(), assignment.Enrollment{
		StudentID: studentID,
		SubjectID: subjectID,
		FacultyID: facultyID,
	})
	if err != nil {
		t.Fatalf("CreateEnrollment() failed: %v", err)
	}
	return enr
}

// CreateQuestionnaire creates one category per name, each holding the given number of questions.
func CreateQuestionnaire(t *testing.T, repo evaluation.Repository, questionsPerCategory int, names ...string) []evaluation.Category {
	ctx := context.Background()
	cats := make([]evaluation.Category, 0, len(names))
	for i, name := range names {
		cat, err := repo.CreateCategory(ctx, evaluation.Category{Name: name, DisplayOrder: i})
		if err != nil {
			t.Fatalf("CreateQuestionnaire() failed: %v", err)
		}
		for j := 0; j < questionsPerCategory; j++ {
			q, err := repo.CreateQuestion(ctx, evaluation.Question{
				CategoryID:   cat.ID,
				Text:         name + " question " + string(rune('A'+j)),
				DisplayOrder: j,
			})
			if err != nil {
				t.Fatalf("CreateQuestionnaire() failed: %v", err)
			}
			cat.Questions = append(cat.Questions, q)
		}
		cats = append(cats, cat)
	}
	return cats
}
