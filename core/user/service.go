package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/evalink/core"
)

var (
	// errors
	ErrNotFound      = errors.New("user not found")
	ErrIDExists      = errors.New("a user with this id already exists")
	ErrEmailExists   = errors.New("a user with this email already exists")
	ErrInvalidUID    = errors.New("invalid value")
	ErrInvalidToken  = errors.New("invalid value")
	errNotAdminEmail = errors.New("only administrators may log in with their email")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrIDExists or ErrEmailExists when another user than excludedID uses id or email.
		CheckUniqueness(ctx context.Context, id, email, excludedID string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.ID, User.Name or User.Email.
		QueryUsers(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		// DeleteUser deletes the user along with everything that references them.
		DeleteUser(ctx context.Context, id string) error
	}

	Service interface {
		Create(ctx context.Context, nu NewUser) (User, error)
		Query(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		// GetForLogin finds a user by ID, or by email for admins.
		GetForLogin(ctx context.Context, identifier string) (User, error)
		Update(ctx context.Context, id string, uu UpdateUser) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		SetProfileImage(ctx context.Context, id, url string) (User, error)
		SetPassword(ctx context.Context, identifier, pwd string) error
		Delete(ctx context.Context, id string) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) error
		// EnsureAdmin creates the admin account when no user has this ID yet.
		EnsureAdmin(ctx context.Context, ac core.AdminConfig) (User, bool, error)
	}

	service struct {
		repo     Repository
		mailSvc  core.EmailService
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, validate *validator.Validate) Service {
	return &service{
		repo:     repo,
		mailSvc:  mailSvc,
		validate: validate,
	}
}

func (svc *service) checkUniqueness(ctx context.Context, id, email, exclID string) error {
	if err := svc.repo.CheckUniqueness(ctx, id, email, exclID); err != nil {
		switch err {
		case ErrIDExists, ErrEmailExists:
			return core.NewConflictError(err)
		default:
			return errors.Wrap(err, "checking uniqueness")
		}
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := svc.checkUniqueness(ctx, nu.ID, nu.Email, ""); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		ID:           nu.ID,
		Name:         nu.Name,
		Email:        nu.Email,
		Role:         nu.Role,
		DepartmentID: nu.DepartmentID,
		SectionID:    nu.SectionID,
		YearLevel:    nu.YearLevel,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering) ([]User, error) {
	if err := core.ValidateOrderings(orderings, OrderingFields...); err != nil {
		return nil, err
	}
	return svc.repo.QueryUsers(ctx, filter, orderings...)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, core.CleanString(id))
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) GetForLogin(ctx context.Context, identifier string) (User, error) {
	usr, err := svc.GetByID(ctx, identifier)
	if err == nil || errors.Cause(err) != ErrNotFound {
		return usr, err
	}

	usr, err = svc.GetByEmail(ctx, identifier)
	if err != nil {
		return User{}, err
	}
	if !usr.IsAdmin() {
		return User{}, errors.Wrap(ErrNotFound, errNotAdminEmail.Error())
	}
	return usr, nil
}

func (svc *service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err = svc.checkUniqueness(ctx, "", uu.Email, usr.ID); err != nil {
		return User{}, err
	}
	if err = uu.apply(&usr); err != nil {
		return User{}, errors.Wrap(err, "applying changes")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = null.TimeFrom(time.Now().UTC())
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetProfileImage(ctx context.Context, id, url string) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	usr.ProfileImageURL = url
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetPassword(ctx context.Context, identifier, pwd string) error {
	usr, err := svc.GetByID(ctx, identifier)
	if errors.Cause(err) == ErrNotFound {
		usr, err = svc.GetByEmail(ctx, identifier)
	}
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteUser(ctx, id)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	msg, err := passwordResetMessage(usr)
	if err != nil {
		return err
	}
	svc.mailSvc.SendMessages(msg)
	return nil
}

func passwordResetMessage(usr User) (*core.EmailMessage, error) {
	token, err := MakeToken(usr)
	if err != nil {
		return nil, errors.Wrap(err, "making token")
	}
	return &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"ID":    usr.ID,
			"Name":  usr.Name,
			"UID":   EncodeUID(usr),
			"Token": token,
		},
	}, nil
}

func (svc *service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	id, err := decodeUID(data.UID)
	if err != nil {
		return core.NewValidationError(ErrInvalidUID, core.FieldError{Field: "uid", Error: ErrInvalidUID.Error()})
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(ErrInvalidUID, core.FieldError{Field: "uid", Error: ErrInvalidUID.Error()})
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err = verifyToken(usr, data.Token); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "token", Error: ErrInvalidToken.Error()})
	}

	if err = usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	if _, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "updating user")
	}
	return nil
}

func (svc *service) EnsureAdmin(ctx context.Context, ac core.AdminConfig) (User, bool, error) {
	usr, err := svc.repo.GetUserByID(ctx, ac.ID)
	if err == nil {
		return usr, false, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return User{}, false, errors.Wrap(err, "finding admin")
	}

	nu := NewUser{
		ID:              ac.ID,
		Name:            ac.Name,
		Email:           ac.Email,
		Password:        ac.Password,
		PasswordConfirm: ac.Password,
		Role:            RoleAdmin,
	}
	if err = nu.Validate(svc.validate); err != nil {
		return User{}, false, err
	}
	usr, err = svc.Create(ctx, nu)
	if err != nil {
		return User{}, false, errors.Wrap(err, "creating admin")
	}
	return usr, true, nil
}
