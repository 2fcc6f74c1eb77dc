package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/evalink/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleFaculty = "faculty"
	RoleStudent = "student"
)

var (
	AllRoles = []string{RoleAdmin, RoleFaculty, RoleStudent}

	// OrderingFields are the fields users can be ordered by.
	OrderingFields = []string{"id", "name", "email", "created_at", "last_login"}
)

type User struct {
	ID              string    `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Email           string    `json:"email" db:"email"`
	Role            string    `json:"role" db:"role"`
	DepartmentID    null.Int  `json:"department_id" db:"department_id"`
	DepartmentName  string    `json:"department_name" db:"department_name"`
	SectionID       null.Int  `json:"section_id" db:"section_id"`
	YearLevel       null.Int  `json:"year_level" db:"year_level"`
	ProfileImageURL string    `json:"profile_image_url" db:"profile_image_url"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	PasswordHash    []byte    `json:"-" db:"password_hash"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"` // UTC
	LastLogin       null.Time `json:"last_login" db:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsFaculty() bool { return u.Role == RoleFaculty }
func (u *User) IsStudent() bool { return u.Role == RoleStudent }

// NewUser contains information needed to create a new User.
type NewUser struct {
	ID              string   `json:"id" validate:"required,max=32,userid"`
	Name            string   `json:"name" validate:"required,max=120"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            string   `json:"role" validate:"required,role"`
	DepartmentID    null.Int `json:"department_id"`
	SectionID       null.Int `json:"section_id"`
	YearLevel       null.Int `json:"year_level" validate:"omitempty,min=1,max=6"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.ID = core.CleanString(nu.ID)
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	if nu.Role != RoleStudent {
		nu.SectionID = null.Int{}
		nu.YearLevel = null.Int{}
	}
	return validate.Struct(nu)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Unset fields keep their current value.
type UpdateUser struct {
	Name            string   `json:"name" validate:"max=120"`
	Email           string   `json:"email" validate:"omitempty,email"`
	DepartmentID    null.Int `json:"department_id"`
	SectionID       null.Int `json:"section_id"`
	YearLevel       null.Int `json:"year_level" validate:"omitempty,min=1,max=6"`
	IsActive        *bool    `json:"is_active"`
	Password        string   `json:"password" validate:"omitempty"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`

	// set by Validate for the password policy
	id string
}

// RestrictedFieldsSet reports whether uu changes fields only admins may change.
func (uu *UpdateUser) RestrictedFieldsSet() bool {
	return uu.Email != "" || uu.IsActive != nil || uu.DepartmentID.Valid || uu.SectionID.Valid || uu.YearLevel.Valid
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}
	uu.id = origUsr.ID
	return validate.Struct(uu)
}

// apply copies the changes of uu onto usr.
func (uu *UpdateUser) apply(usr *User) error {
	usr.Name = uu.Name
	usr.Email = uu.Email
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.DepartmentID.Valid {
		usr.DepartmentID = uu.DepartmentID
	}
	if usr.IsStudent() {
		if uu.SectionID.Valid {
			usr.SectionID = uu.SectionID
		}
		if uu.YearLevel.Valid {
			usr.YearLevel = uu.YearLevel
		}
	}
	if uu.Password != "" {
		return usr.SetPassword(uu.Password)
	}
	return nil
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp *ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	Search   string `query:"search"`
	Role     string `query:"role"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}
