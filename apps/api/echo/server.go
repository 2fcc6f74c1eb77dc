package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/evalink/core"
	"github.com/trezcool/evalink/core/activity"
	"github.com/trezcool/evalink/core/assignment"
	"github.com/trezcool/evalink/core/department"
	"github.com/trezcool/evalink/core/evaluation"
	"github.com/trezcool/evalink/core/incident"
	"github.com/trezcool/evalink/core/report"
	"github.com/trezcool/evalink/core/schedule"
	"github.com/trezcool/evalink/core/section"
	"github.com/trezcool/evalink/core/subject"
	"github.com/trezcool/evalink/core/user"
	metricsvc "github.com/trezcool/evalink/services/metrics"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Metrics    *metricsvc.Prometheus
		Storage    core.FileStorage

		UserSvc       user.Service
		DepartmentSvc department.Service
		SectionSvc    section.Service
		SubjectSvc    subject.Service
		AssignmentSvc assignment.Service
		EvaluationSvc evaluation.Service
		ScheduleSvc   schedule.Service
		IncidentSvc   incident.Service
		ActivitySvc   activity.Service
		ReportSvc     report.Service
	}

	Server interface {
		http.Handler
		Start()
		// Errors reports the error that stopped the listener.
		Errors() <-chan error
		// ShutdownSignal fires on SIGINT/SIGTERM or when a handler hits a shutdown error.
		ShutdownSignal() <-chan os.Signal
		Shutdown(ctx context.Context) error
		Close() error
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{conf.FrontendBaseURL},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	if s.deps.Metrics != nil {
		s.app.Use(metricsMiddleware(s.deps.Metrics))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	if conf.Storage.UploadDir != "" {
		s.app.Static(conf.Storage.URLPrefix, conf.Storage.UploadDir)
	}

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))

	registerUserAPI(v1, jwt, s.deps)
	registerCatalogAPI(v1, jwt, s.deps)
	registerAssignmentAPI(v1, jwt, s.deps)
	registerEvaluationAPI(v1, jwt, s.deps)
	registerReportAPI(v1, jwt, s.deps)
	registerIncidentAPI(v1, jwt, s.deps)
	registerActivityAPI(v1, jwt, s.deps)
}

func (s *server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	s.deps.Logger.Info("API listening on " + s.deps.Conf.Server.Host)
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error { return s.errors }

func (s *server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
