package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/evalink/core"
	"github.com/trezcool/evalink/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) read(usr user.User) user.User {
	usr.DepartmentName = repo.db.departmentName(usr.DepartmentID)
	return usr
}

func (repo *userRepository) checkRefs(usr user.User) error {
	if usr.DepartmentID.Valid {
		if _, ok := repo.db.departments[usr.DepartmentID.Int]; !ok {
			return invalidRef("department_id")
		}
	}
	if usr.SectionID.Valid {
		if _, ok := repo.db.sections[usr.SectionID.Int]; !ok {
			return invalidRef("section_id")
		}
	}
	return nil
}

func (repo *userRepository) CheckUniqueness(_ context.Context, id, email, excludedID string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if id != "" && id != excludedID {
		if _, ok := repo.db.users[id]; ok {
			return user.ErrIDExists
		}
	}
	if email != "" {
		for _, usr := range repo.db.users {
			if usr.Email == email && usr.ID != excludedID {
				return user.ErrEmailExists
			}
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[usr.ID]; ok {
		return user.User{}, core.NewConflictError(user.ErrIDExists)
	}
	if err := repo.checkRefs(usr); err != nil {
		return user.User{}, err
	}
	usr.DepartmentName = ""
	repo.db.users[usr.ID] = &usr
	return repo.read(usr), nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := strings.ToLower(filter.Search)
	users := make([]user.User, 0, len(repo.db.users))
	for _, u := range repo.db.users {
		if search != "" &&
			!strings.Contains(strings.ToLower(u.ID), search) &&
			!strings.Contains(strings.ToLower(u.Name), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		users = append(users, repo.read(*u))
	}

	if len(orderings) == 0 {
		orderings = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range orderings {
			c := compareUsers(users[i], users[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func compareUsers(a, b user.User, field string) int {
	switch field {
	case "id":
		return strings.Compare(a.ID, b.ID)
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "last_login":
		// NULLs sort last in ascending order, as in Postgres
		switch {
		case !a.LastLogin.Valid && !b.LastLogin.Valid:
			return 0
		case !a.LastLogin.Valid:
			return 1
		case !b.LastLogin.Valid:
			return -1
		}
		return a.LastLogin.Time.Compare(b.LastLogin.Time)
	}
	return 0
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return repo.read(*usr), nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if email == "" {
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.db.users {
		if usr.Email == email {
			return repo.read(*usr), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	if usr.Email != "" {
		for _, u := range repo.db.users {
			if u.Email == usr.Email && u.ID != usr.ID {
				return user.User{}, core.NewConflictError(user.ErrEmailExists)
			}
		}
	}
	if err := repo.checkRefs(usr); err != nil {
		return user.User{}, err
	}
	usr.DepartmentName = ""
	repo.db.users[usr.ID] = &usr
	return repo.read(usr), nil
}

func (repo *userRepository) DeleteUser(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[id]; !ok {
		return user.ErrNotFound
	}

	for evID, ev := range repo.db.evaluations {
		if ev.StudentID == id || ev.FacultyID == id {
			repo.db.deleteEvaluation(evID)
		}
	}
	for enrID, enr := range repo.db.enrollments {
		if enr.StudentID == id || enr.FacultyID == id {
			delete(repo.db.enrollments, enrID)
		}
	}
	for loadID, load := range repo.db.loads {
		if load.FacultyID == id {
			delete(repo.db.loads, loadID)
		}
	}
	for incID, inc := range repo.db.incidents {
		if inc.ReporterID == id {
			delete(repo.db.incidents, incID)
		}
	}
	logs := repo.db.logs[:0]
	for _, l := range repo.db.logs {
		if l.UserID != id {
			logs = append(logs, l)
		}
	}
	repo.db.logs = logs

	delete(repo.db.users, id)
	return nil
}
