package sqlxrepos

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core"
	"github.com/trezcool/evalink/core/user"
)

const userSelect = `
SELECT u.id, u.name, u.email, u.role, u.department_id, COALESCE(d.name, '') AS department_name,
       u.section_id, u.year_level, u.profile_image_url, u.is_active, u.password_hash,
       u.created_at, u.updated_at, u.last_login
FROM users u
LEFT JOIN departments d ON d.id = u.department_id`

var userConflicts = map[string]error{
	"users_pkey":      user.ErrIDExists,
	"users_email_key": user.ErrEmailExists,
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, id, email, excludedID string) error {
	var taken []struct {
		ID    string `db:"id"`
		Email string `db:"email"`
	}
	q := `SELECT id, email FROM users WHERE ((id = $1 AND $1 <> '') OR (email = $2 AND $2 <> '')) AND id <> $3`
	if err := repo.db.SelectContext(ctx, &taken, q, id, email, excludedID); err != nil {
		return errors.Wrap(err, "checking uniqueness")
	}
	for _, t := range taken {
		if id != "" && t.ID == id {
			return user.ErrIDExists
		}
	}
	if len(taken) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `
	INSERT INTO users (id, name, email, role, password_hash, department_id, section_id, year_level,
	                   profile_image_url, is_active, created_at, updated_at)
	VALUES (:id, :name, :email, :role, :password_hash, :department_id, :section_id, :year_level,
	        :profile_image_url, :is_active, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, usr); err != nil {
		return user.User{}, mapError(err, "users", "inserting user", userConflicts)
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(u.id ILIKE %[1]s OR u.name ILIKE %[1]s OR u.email ILIKE %[1]s)", p))
	}
	if filter.Role != "" {
		conds = append(conds, "u.role = "+arg(filter.Role))
	}
	if filter.IsActive != nil {
		conds = append(conds, "u.is_active = "+arg(*filter.IsActive))
	}

	q := userSelect
	if len(conds) > 0 {
		q += "\nWHERE " + strings.Join(conds, " AND ")
	}
	q += "\nORDER BY " + orderBy("u.", orderings, "u.name ASC")

	users := make([]user.User, 0)
	if err := repo.db.SelectContext(ctx, &users, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	return users, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	var usr user.User
	err := getOne(ctx, repo.db, &usr, user.ErrNotFound, userSelect+"\nWHERE u.id = $1", id)
	return usr, err
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var usr user.User
	if email == "" {
		return usr, user.ErrNotFound
	}
	err := getOne(ctx, repo.db, &usr, user.ErrNotFound, userSelect+"\nWHERE u.email = $1", email)
	return usr, err
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `
	UPDATE users SET
		name = :name, email = :email, role = :role, password_hash = :password_hash,
		department_id = :department_id, section_id = :section_id, year_level = :year_level,
		profile_image_url = :profile_image_url, is_active = :is_active,
		updated_at = :updated_at, last_login = :last_login
	WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, usr)
	if err != nil {
		return user.User{}, mapError(err, "users", "updating user", userConflicts)
	}
	if err = checkAffected(res, user.ErrNotFound); err != nil {
		return user.User{}, err
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo *userRepository) DeleteUser(ctx context.Context, id string) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		stmts := []string{
			`DELETE FROM evaluation_answers WHERE evaluation_id IN
				(SELECT id FROM evaluations WHERE student_id = $1 OR faculty_id = $1)`,
			`DELETE FROM evaluations WHERE student_id = $1 OR faculty_id = $1`,
			`DELETE FROM student_subjects WHERE student_id = $1 OR faculty_id = $1`,
			`DELETE FROM faculty_loads WHERE faculty_id = $1`,
			`DELETE FROM incidents WHERE reporter_id = $1`,
			`DELETE FROM activity_logs WHERE user_id = $1`,
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return errors.Wrap(err, "deleting user dependencies")
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return errors.Wrap(err, "deleting user")
		}
		return checkAffected(res, user.ErrNotFound)
	})
}

// orderBy renders validated orderings, falling back to def.
func orderBy(prefix string, orderings []core.DBOrdering, def string) string {
	if len(orderings) == 0 {
		return def
	}
	parts := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		parts = append(parts, prefix+ord.String())
	}
	return strings.Join(parts, ", ")
}
