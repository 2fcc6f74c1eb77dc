package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core/user"
	metricsvc "github.com/trezcool/evalink/services/metrics"
)

const contextObjectKey = "object"

// roleMiddleware lets through the users having one of roles.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			for _, role := range roles {
				if claims.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.RoleAdmin)
}

// ctxUserOrAdminMiddleware loads the user of the `:id` path param into the context.
// Only that user and admins may go through; everybody else gets a 404.
func ctxUserOrAdminMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxUsr, err := getContextUser(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}

			if ctx.Param("id") == ctxUsr.ID || ctxUsr.IsAdmin() {
				if usr, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id")); err == nil {
					ctx.Set(contextObjectKey, usr)
					return next(ctx)
				} else if errors.Cause(err) != user.ErrNotFound {
					return errors.Wrap(err, "finding user by ID")
				}
			}
			return errHttpNotFound
		}
	}
}

// metricsMiddleware counts requests per route template.
func metricsMiddleware(m *metricsvc.Prometheus) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			code := ctx.Response().Status
			if err != nil {
				code = http.StatusInternalServerError
				if herr, ok := errors.Cause(err).(*echo.HTTPError); ok {
					code = herr.Code
				}
			}
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest(ctx.Request().Method, route, code, time.Since(start))
			return err
		}
	}
}

// paramID parses the `:id` path param of integer keyed resources.
func paramID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id < 1 {
		return 0, errHttpNotFound
	}
	return id, nil
}
