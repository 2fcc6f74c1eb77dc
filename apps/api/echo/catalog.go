package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core/department"
	"github.com/trezcool/evalink/core/section"
	"github.com/trezcool/evalink/core/subject"
)

// catalogApi serves departments, sections and subjects.
type catalogApi struct {
	departments department.Service
	sections    section.Service
	subjects    subject.Service
	validate    *validator.Validate
}

func registerCatalogAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := catalogApi{
		departments: deps.DepartmentSvc,
		sections:    deps.SectionSvc,
		subjects:    deps.SubjectSvc,
		validate:    deps.Validate,
	}
	admin := adminMiddleware()

	dg := g.Group("/departments", jwt)
	dg.GET("", api.queryDepartments)
	dg.POST("", api.createDepartment, admin)
	dg.PUT("/:id", api.updateDepartment, admin)
	dg.DELETE("/:id", api.destroyDepartment, admin)

	sg := g.Group("/sections", jwt)
	sg.GET("", api.querySections)
	sg.POST("", api.createSection, admin)
	sg.PUT("/:id", api.updateSection, admin)
	sg.DELETE("/:id", api.destroySection, admin)

	subg := g.Group("/subjects", jwt)
	subg.GET("", api.querySubjects)
	subg.POST("", api.createSubject, admin)
	subg.PUT("/:id", api.updateSubject, admin)
	subg.DELETE("/:id", api.destroySubject, admin)
}

// Departments

func (api *catalogApi) queryDepartments(ctx echo.Context) error {
	depts, err := api.departments.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying departments")
	}
	if depts == nil {
		depts = []department.Department{}
	}
	return ctx.JSON(http.StatusOK, depts)
}

func (api *catalogApi) createDepartment(ctx echo.Context) error {
	var data department.NewDepartment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDepartment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	dept, err := api.departments.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating department")
	}
	return ctx.JSON(http.StatusCreated, dept)
}

func (api *catalogApi) updateDepartment(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	var data department.NewDepartment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDepartment")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	dept, err := api.departments.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating department")
	}
	return ctx.JSON(http.StatusOK, dept)
}

func (api *catalogApi) destroyDepartment(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.departments.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting department")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Sections

func (api *catalogApi) querySections(ctx echo.Context) error {
	secs, err := api.sections.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying sections")
	}
	if secs == nil {
		secs = []section.Section{}
	}
	return ctx.JSON(http.StatusOK, secs)
}

func (api *catalogApi) createSection(ctx echo.Context) error {
	var data section.NewSection
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSection")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sec, err := api.sections.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating section")
	}
	return ctx.JSON(http.StatusCreated, sec)
}

func (api *catalogApi) updateSection(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	var data section.NewSection
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSection")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sec, err := api.sections.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating section")
	}
	return ctx.JSON(http.StatusOK, sec)
}

func (api *catalogApi) destroySection(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.sections.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting section")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Subjects

func (api *catalogApi) querySubjects(ctx echo.Context) error {
	subjs, err := api.subjects.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjs == nil {
		subjs = []subject.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjs)
}

func (api *catalogApi) createSubject(ctx echo.Context) error {
	var data subject.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	subj, err := api.subjects.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, subj)
}

func (api *catalogApi) updateSubject(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	var data subject.NewSubject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	subj, err := api.subjects.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, subj)
}

func (api *catalogApi) destroySubject(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.subjects.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}
