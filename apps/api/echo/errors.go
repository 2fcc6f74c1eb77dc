package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core"
	"github.com/trezcool/evalink/core/assignment"
	"github.com/trezcool/evalink/core/department"
	"github.com/trezcool/evalink/core/evaluation"
	"github.com/trezcool/evalink/core/incident"
	"github.com/trezcool/evalink/core/report"
	"github.com/trezcool/evalink/core/section"
	"github.com/trezcool/evalink/core/subject"
	"github.com/trezcool/evalink/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "invalid credentials")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errCannotDeleteSelf     = echo.NewHTTPError(http.StatusForbidden, "you cannot delete your own account")
)

// domain errors answered with a status other than 500
var errorCodes = map[error]int{
	user.ErrNotFound:                 http.StatusNotFound,
	department.ErrNotFound:           http.StatusNotFound,
	section.ErrNotFound:              http.StatusNotFound,
	subject.ErrNotFound:              http.StatusNotFound,
	assignment.ErrLoadNotFound:       http.StatusNotFound,
	assignment.ErrEnrollmentNotFound: http.StatusNotFound,
	evaluation.ErrCategoryNotFound:   http.StatusNotFound,
	evaluation.ErrQuestionNotFound:   http.StatusNotFound,
	incident.ErrNotFound:             http.StatusNotFound,
	report.ErrNoData:                 http.StatusNotFound,
	evaluation.ErrScheduleClosed:     http.StatusForbidden,
	evaluation.ErrNotEnrolled:        http.StatusForbidden,
}

// domainErrorCode looks err up in errorCodes without hashing it: some errors, like
// validator.ValidationErrors, are not hashable.
func domainErrorCode(err error) (int, bool) {
	for target, code := range errorCodes {
		if errors.Is(err, target) {
			return code, true
		}
	}
	return 0, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *core.ConflictError:
			code = http.StatusConflict
			message = origErr.Error()
		default:
			if c, ok := domainErrorCode(cause); ok {
				code = c
				message = cause.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Name = claims.Name
				usr.Role = claims.Role
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			if ctx.Echo().Debug {
				message = err.Error()
			}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
