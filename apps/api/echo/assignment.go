package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core/assignment"
)

type assignmentApi struct {
	svc      assignment.Service
	validate *validator.Validate
}

func registerAssignmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := assignmentApi{svc: deps.AssignmentSvc, validate: deps.Validate}

	lg := g.Group("/faculty-loads", jwt, adminMiddleware())
	lg.GET("", api.queryLoads)
	lg.POST("", api.assign)
	lg.DELETE("/:id", api.unassign)

	eg := g.Group("/student-subjects", jwt, adminMiddleware())
	eg.GET("", api.queryEnrollments)
	eg.POST("", api.enroll)
	eg.DELETE("/:id", api.unenroll)
}

func (api *assignmentApi) queryLoads(ctx echo.Context) error {
	loads, err := api.svc.QueryFacultyLoads(ctx.Request().Context(), "")
	if err != nil {
		return errors.Wrap(err, "querying faculty loads")
	}
	if loads == nil {
		loads = []assignment.FacultyLoad{}
	}
	return ctx.JSON(http.StatusOK, loads)
}

func (api *assignmentApi) assign(ctx echo.Context) error {
	var data assignment.NewFacultyLoad
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFacultyLoad")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	load, err := api.svc.Assign(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "assigning subject")
	}
	return ctx.JSON(http.StatusCreated, load)
}

func (api *assignmentApi) unassign(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Unassign(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "unassigning subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *assignmentApi) queryEnrollments(ctx echo.Context) error {
	enrs, err := api.svc.QueryEnrollments(ctx.Request().Context(), "")
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrs == nil {
		enrs = []assignment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *assignmentApi) enroll(ctx echo.Context) error {
	var data assignment.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *assignmentApi) unenroll(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Unenroll(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	return ctx.NoContent(http.StatusNoContent)
}
