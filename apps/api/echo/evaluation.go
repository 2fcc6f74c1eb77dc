package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core/evaluation"
	"github.com/trezcool/evalink/core/schedule"
	"github.com/trezcool/evalink/core/user"
)

type evaluationApi struct {
	svc      evaluation.Service
	schedule schedule.Service
	validate *validator.Validate
}

func registerEvaluationAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := evaluationApi{svc: deps.EvaluationSvc, schedule: deps.ScheduleSvc, validate: deps.Validate}
	admin := adminMiddleware()

	eg := g.Group("/evaluations", jwt)
	eg.GET("", api.query, admin)
	eg.POST("", api.submit, roleMiddleware(user.RoleStudent))
	eg.GET("/stats/daily", api.dailyStats, admin)

	qg := g.Group("/evaluation-questions", jwt)
	qg.GET("", api.questionnaire)
	qg.POST("", api.createQuestion, admin)
	qg.PUT("/:id", api.updateQuestion, admin)
	qg.DELETE("/:id", api.destroyQuestion, admin)

	cg := g.Group("/evaluation-categories", jwt, admin)
	cg.POST("", api.createCategory)
	cg.PUT("/:id", api.updateCategory)
	cg.DELETE("/:id", api.destroyCategory)

	sg := g.Group("/evaluation-schedule", jwt)
	sg.GET("", api.getSchedule)
	sg.POST("", api.setSchedule, admin)
}

// Evaluations

func (api *evaluationApi) query(ctx echo.Context) error {
	items, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying evaluations")
	}
	if items == nil {
		items = []evaluation.ListItem{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *evaluationApi) submit(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data evaluation.Submission
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	ev, err := api.svc.Submit(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "submitting evaluation")
	}
	return ctx.JSON(http.StatusCreated, ev)
}

func (api *evaluationApi) dailyStats(ctx echo.Context) error {
	var q evaluation.DailyStatsQuery
	if err := ctx.Bind(&q); err != nil {
		return errors.Wrap(err, "binding to DailyStatsQuery")
	}

	stats, err := api.svc.DailyStats(ctx.Request().Context(), q)
	if err != nil {
		return errors.Wrap(err, "computing daily stats")
	}
	if stats == nil {
		stats = []evaluation.DailyCount{}
	}
	return ctx.JSON(http.StatusOK, stats)
}

// Questionnaire

func (api *evaluationApi) questionnaire(ctx echo.Context) error {
	cats, err := api.svc.QueryCategories(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying categories")
	}
	for i := range cats {
		if cats[i].Questions == nil {
			cats[i].Questions = []evaluation.Question{}
		}
	}
	if cats == nil {
		cats = []evaluation.Category{}
	}
	return ctx.JSON(http.StatusOK, cats)
}

func (api *evaluationApi) createCategory(ctx echo.Context) error {
	var data evaluation.NewCategory
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCategory")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cat, err := api.svc.CreateCategory(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating category")
	}
	return ctx.JSON(http.StatusCreated, cat)
}

func (api *evaluationApi) updateCategory(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	var data evaluation.NewCategory
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCategory")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	cat, err := api.svc.UpdateCategory(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating category")
	}
	return ctx.JSON(http.StatusOK, cat)
}

func (api *evaluationApi) destroyCategory(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteCategory(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting category")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *evaluationApi) createQuestion(ctx echo.Context) error {
	var data evaluation.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	q, err := api.svc.CreateQuestion(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating question")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *evaluationApi) updateQuestion(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	var data evaluation.NewQuestion
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	q, err := api.svc.UpdateQuestion(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating question")
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *evaluationApi) destroyQuestion(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteQuestion(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting question")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Schedule

func (api *evaluationApi) getSchedule(ctx echo.Context) error {
	status, err := api.schedule.Get(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting schedule")
	}
	return ctx.JSON(http.StatusOK, status)
}

func (api *evaluationApi) setSchedule(ctx echo.Context) error {
	var data schedule.NewSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchedule")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	status, err := api.schedule.Set(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "setting schedule")
	}
	return ctx.JSON(http.StatusOK, status)
}
