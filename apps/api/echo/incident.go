package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core/activity"
	"github.com/trezcool/evalink/core/incident"
	"github.com/trezcool/evalink/core/user"
)

type incidentApi struct {
	svc      incident.Service
	validate *validator.Validate
}

func registerIncidentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := incidentApi{svc: deps.IncidentSvc, validate: deps.Validate}

	ig := g.Group("/incidents", jwt)
	ig.GET("", api.query, adminMiddleware())
	ig.POST("", api.report)
	ig.PATCH("/:id", api.updateStatus, adminMiddleware())
}

func (api *incidentApi) query(ctx echo.Context) error {
	incs, err := api.svc.Query(ctx.Request().Context(), "")
	if err != nil {
		return errors.Wrap(err, "querying incidents")
	}
	if incs == nil {
		incs = []incident.Incident{}
	}
	return ctx.JSON(http.StatusOK, incs)
}

func (api *incidentApi) report(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data incident.NewIncident
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewIncident")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	inc, err := api.svc.Report(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "reporting incident")
	}
	return ctx.JSON(http.StatusCreated, inc)
}

func (api *incidentApi) updateStatus(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data incident.StatusUpdate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusUpdate")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	inc, err := api.svc.UpdateStatus(ctx.Request().Context(), claims.Subject, id, data)
	if err != nil {
		return errors.Wrap(err, "updating incident status")
	}
	return ctx.JSON(http.StatusOK, inc)
}

type activityApi struct {
	svc      activity.Service
	validate *validator.Validate
}

func registerActivityAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := activityApi{svc: deps.ActivitySvc, validate: deps.Validate}

	ag := g.Group("/activity-logs", jwt)
	ag.GET("", api.adminFeed, adminMiddleware())
	ag.POST("", api.create)
}

// adminFeed lists what administrators did.
func (api *activityApi) adminFeed(ctx echo.Context) error {
	logs, err := api.svc.Query(ctx.Request().Context(), activity.Filter{Role: user.RoleAdmin})
	if err != nil {
		return errors.Wrap(err, "querying activity logs")
	}
	if logs == nil {
		logs = []activity.Log{}
	}
	return ctx.JSON(http.StatusOK, logs)
}

func (api *activityApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data activity.NewLog
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLog")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	log, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating activity log")
	}
	return ctx.JSON(http.StatusCreated, log)
}
