package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core/report"
)

const mimeApplicationPDF = "application/pdf"

type reportApi struct {
	svc report.Service
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := reportApi{svc: deps.ReportSvc}

	fg := g.Group("/faculty/:id", jwt, facultyOrAdminMiddleware())
	fg.GET("/evaluations", api.facultyResults)
	fg.GET("/report/pdf", api.facultyPDF)

	g.GET("/admin/evaluations/aggregated", api.adminResults, jwt, adminMiddleware())
	g.GET("/evaluations/report/pdf", api.consolidatedPDF, jwt, adminMiddleware())
}

// facultyOrAdminMiddleware lets admins and the faculty member of the `:id` path param through.
func facultyOrAdminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin() || (claims.IsFaculty() && claims.Subject == ctx.Param("id")) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func (api *reportApi) facultyResults(ctx echo.Context) error {
	subjects, err := api.svc.FacultyResults(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "aggregating faculty results")
	}
	if subjects == nil {
		subjects = []report.SubjectSummary{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *reportApi) adminResults(ctx echo.Context) error {
	faculties, err := api.svc.AdminResults(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "aggregating results")
	}
	if faculties == nil {
		faculties = []report.FacultySummary{}
	}
	return ctx.JSON(http.StatusOK, faculties)
}

func (api *reportApi) facultyPDF(ctx echo.Context) error {
	var buff bytes.Buffer
	filename, err := api.svc.FacultyPDF(ctx.Request().Context(), ctx.Param("id"), &buff)
	if err != nil {
		return errors.Wrap(err, "generating faculty report")
	}
	return sendPDF(ctx, filename, buff.Bytes())
}

func (api *reportApi) consolidatedPDF(ctx echo.Context) error {
	var buff bytes.Buffer
	filename, err := api.svc.ConsolidatedPDF(ctx.Request().Context(), &buff)
	if err != nil {
		return errors.Wrap(err, "generating consolidated report")
	}
	return sendPDF(ctx, filename, buff.Bytes())
}

func sendPDF(ctx echo.Context, filename string, content []byte) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, mimeApplicationPDF, content)
}
