package echoapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core"
	"github.com/trezcool/evalink/core/activity"
	"github.com/trezcool/evalink/core/assignment"
	"github.com/trezcool/evalink/core/evaluation"
	"github.com/trezcool/evalink/core/incident"
	"github.com/trezcool/evalink/core/user"
)

const profileImageField = "profileImage"

var (
	errUsrNotFoundInCtx = errors.New("user object not found in echo.Context")

	// sniffed content type -> file extension
	imageExtensions = map[string]string{
		"image/png":  ".png",
		"image/jpeg": ".jpg",
		"image/gif":  ".gif",
		"image/webp": ".webp",
	}
)

type userApi struct {
	conf        *core.Config
	svc         user.Service
	assignments assignment.Service
	evaluations evaluation.Service
	activity    activity.Service
	incidents   incident.Service
	storage     core.FileStorage
	validate    *validator.Validate
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := userApi{
		conf:        deps.Conf,
		svc:         deps.UserSvc,
		assignments: deps.AssignmentSvc,
		evaluations: deps.EvaluationSvc,
		activity:    deps.ActivitySvc,
		incidents:   deps.IncidentSvc,
		storage:     deps.Storage,
		validate:    deps.Validate,
	}

	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/login", api.login)
	ug.POST("/password-reset", api.resetPassword)
	ug.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	ag := ug.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.POST("", api.create, adminMiddleware())
	ag.GET("", api.query, adminMiddleware())

	// detail endpoints
	dg := ag.Group("/:id", ctxUserOrAdminMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.POST("/profile-image", api.uploadProfileImage)
	dg.GET("/sections", api.facultyLoads)
	dg.GET("/subjects", api.enrollments)
	dg.GET("/evaluated-subjects", api.evaluatedSubjects)
	dg.GET("/activity-logs", api.activityLogs)
	dg.GET("/incidents", api.reportedIncidents)
}

func ctxObjectUser(ctx echo.Context) (user.User, error) {
	usr, ok := ctx.Get(contextObjectKey).(user.User)
	if !ok {
		return user.User{}, errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}
	return usr, nil
}

// Handlers

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	usr, claims, err := authenticate(rctx, api.conf, data.Identifier, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(api.conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	api.activity.Record(rctx, usr.ID, activity.TypeLogin, "Logged in")

	return ctx.JSON(http.StatusOK, LoginResponse{
		Token: token,
		User:  &UserInfo{ID: usr.ID, Name: usr.Name, Role: usr.Role},
	})
}

func (api *userApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email)
	if !(err == nil || errors.Cause(err) == user.ErrNotFound) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *userApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *userApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.svc.Query(ctx.Request().Context(), *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, err := ctxObjectUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) update(ctx echo.Context) error {
	usr, err := ctxObjectUser(ctx)
	if err != nil {
		return err
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}

	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.IsAdmin() && data.RestrictedFieldsSet() {
		return errHttpForbidden
	}
	if err = data.Validate(usr, api.validate); err != nil {
		return err
	}

	usr, err = api.svc.Update(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	usr, err := ctxObjectUser(ctx)
	if err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if usr.ID == ctxUsr.ID {
		return errCannotDeleteSelf
	}

	if err = api.svc.Delete(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) uploadProfileImage(ctx echo.Context) error {
	usr, err := ctxObjectUser(ctx)
	if err != nil {
		return err
	}

	fh, err := ctx.FormFile(profileImageField)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: profileImageField, Error: "no file was uploaded"})
	}
	if fh.Size > api.conf.Server.MaxUploadSize {
		msg := fmt.Sprintf("file exceeds the %d MB limit", api.conf.Server.MaxUploadSize>>20)
		return core.NewValidationError(errors.New(msg), core.FieldError{Field: profileImageField, Error: msg})
	}

	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return errors.Wrap(err, "reading uploaded file")
	}
	head = head[:n]
	ext, ok := imageExtensions[http.DetectContentType(head)]
	if !ok {
		msg := "only PNG, JPEG, GIF and WEBP images are allowed"
		return core.NewValidationError(errors.New(msg), core.FieldError{Field: profileImageField, Error: msg})
	}

	rctx := ctx.Request().Context()
	name := "profile-" + uuid.New().String() + ext
	url, err := api.storage.Save(rctx, name, io.MultiReader(bytes.NewReader(head), f))
	if err != nil {
		return errors.Wrap(err, "saving profile image")
	}

	old := usr.ProfileImageURL
	if _, err = api.svc.SetProfileImage(rctx, usr.ID, url); err != nil {
		_ = api.storage.Delete(rctx, url)
		return errors.Wrap(err, "setting profile image")
	}
	if old != "" {
		if err = api.storage.Delete(rctx, old); err != nil {
			ctx.Logger().Errorf("%+v", errors.Wrap(err, "deleting previous profile image"))
		}
	}

	return ctx.JSON(http.StatusOK, ProfileImageResponse{Message: "Profile image updated successfully", ImageURL: url})
}

func (api *userApi) facultyLoads(ctx echo.Context) error {
	usr, err := ctxObjectUser(ctx)
	if err != nil {
		return err
	}
	loads, err := api.assignments.QueryFacultyLoads(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying faculty loads")
	}
	if loads == nil {
		loads = []assignment.FacultyLoad{}
	}
	return ctx.JSON(http.StatusOK, loads)
}

func (api *userApi) enrollments(ctx echo.Context) error {
	usr, err := ctxObjectUser(ctx)
	if err != nil {
		return err
	}
	enrs, err := api.assignments.QueryEnrollments(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrs == nil {
		enrs = []assignment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *userApi) evaluatedSubjects(ctx echo.Context) error {
	usr, err := ctxObjectUser(ctx)
	if err != nil {
		return err
	}
	ids, err := api.evaluations.EvaluatedSubjects(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying evaluated subjects")
	}
	if ids == nil {
		ids = []int{}
	}
	return ctx.JSON(http.StatusOK, ids)
}

func (api *userApi) activityLogs(ctx echo.Context) error {
	usr, err := ctxObjectUser(ctx)
	if err != nil {
		return err
	}
	logs, err := api.activity.Query(ctx.Request().Context(), activity.Filter{UserID: usr.ID})
	if err != nil {
		return errors.Wrap(err, "querying activity logs")
	}
	if logs == nil {
		logs = []activity.Log{}
	}
	return ctx.JSON(http.StatusOK, logs)
}

func (api *userApi) reportedIncidents(ctx echo.Context) error {
	usr, err := ctxObjectUser(ctx)
	if err != nil {
		return err
	}
	incs, err := api.incidents.Query(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying incidents")
	}
	if incs == nil {
		incs = []incident.Incident{}
	}
	return ctx.JSON(http.StatusOK, incs)
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.conf, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Identifier = core.CleanString(lr.Identifier)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
