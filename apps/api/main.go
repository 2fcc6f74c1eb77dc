package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	echoapi "github.com/trezcool/evalink/apps/api/echo"
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
	emailsvc "github.com/trezcool/evalink/services/email"
	logsvc "github.com/trezcool/evalink/services/logger"
	metricsvc "github.com/trezcool/evalink/services/metrics"
	pdfsvc "github.com/trezcool/evalink/services/pdf"
	storagesvc "github.com/trezcool/evalink/services/storage"
	"github.com/trezcool/evalink/storage/database"
	boiledrepos "github.com/trezcool/evalink/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/evalink/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.Conf

	// set up loggers
	logger := logsvc.NewRollbarLogger(nil, "API", conf)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(nil, "DB", conf)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	fileStorage, err := storagesvc.NewLocalStorage(conf.Storage.UploadDir, conf.Storage.URLPrefix)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up file storage: %v", err), err)
	}

	metrics := metricsvc.New(nil)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	incident.InitValidators(validate, translator)

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, validate)
	activitySvc := activity.NewService(sqlxrepos.NewActivityRepository(db), logger, metrics)
	assignmentSvc := assignment.NewService(sqlxrepos.NewAssignmentRepository(db), usrSvc)
	scheduleSvc := schedule.NewService(sqlxrepos.NewScheduleRepository(db))

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	core.ParseEmailTemplates(logger)

	user.LoadCommonPasswords(logger)

	if conf.Admin.Password != "" {
		admin, created, err := usrSvc.EnsureAdmin(context.Background(), conf.Admin)
		if err != nil {
			logger.Fatal(fmt.Sprintf("ensuring admin account: %v", err), err)
		}
		if created {
			logger.Info(fmt.Sprintf("Admin account %q created", admin.ID))
		}
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus collectors.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	http.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			Validate:      validate,
			Translator:    translator,
			Metrics:       metrics,
			Storage:       fileStorage,
			UserSvc:       usrSvc,
			DepartmentSvc: department.NewService(sqlxrepos.NewDepartmentRepository(db)),
			SectionSvc:    section.NewService(sqlxrepos.NewSectionRepository(db)),
			SubjectSvc:    subject.NewService(sqlxrepos.NewSubjectRepository(db)),
			AssignmentSvc: assignmentSvc,
			EvaluationSvc: evaluation.NewService(sqlxrepos.NewEvaluationRepository(db), scheduleSvc, assignmentSvc, activitySvc, metrics),
			ScheduleSvc:   scheduleSvc,
			IncidentSvc:   incident.NewService(sqlxrepos.NewIncidentRepository(db), activitySvc, mailSvc),
			ActivitySvc:   activitySvc,
			ReportSvc:     report.NewService(boiledrepos.NewReportRowSource(db), pdfsvc.NewRenderer(conf.AppName), metrics),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)
		os.Exit(1)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	ctx := context.Background()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
