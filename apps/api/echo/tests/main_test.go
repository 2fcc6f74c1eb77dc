package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/evalink/apps/api/echo"
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
	dummydb "github.com/trezcool/evalink/storage/database/dummy"
)

var (
	conf   *core.Config
	logger core.Logger
	ctxb   = context.Background()

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func TestMain(m *testing.M) {
	c := *core.Conf
	c.Debug = false
	c.TestMode = true
	c.Storage.UploadDir = "" // files go to memory
	conf = &c

	l := logsvc.NewRollbarLogger(io.Discard, "TEST", conf)
	l.Enable(false)
	logger = l

	core.ParseEmailTemplates(logger)
	user.LoadCommonPasswords(logger)

	os.Exit(m.Run())
}

// env is a server backed by a fresh in-memory database.
type env struct {
	app     Server
	storage *storagesvc.MemoryStorage

	users       user.Repository
	departments department.Repository
	sections    section.Repository
	subjects    subject.Repository
	assignments assignment.Repository
	evaluations evaluation.Repository
	schedule    schedule.Repository
	incidents   incident.Repository
	activity    activity.Repository
}

func setup(t *testing.T) *env {
	db, err := dummydb.Open()
	require.NoError(t, err)

	e := &env{
		storage:     storagesvc.NewMemoryStorage(conf.Storage.URLPrefix),
		users:       dummydb.NewUserRepository(db),
		departments: dummydb.NewDepartmentRepository(db),
		sections:    dummydb.NewSectionRepository(db),
		subjects:    dummydb.NewSubjectRepository(db),
		assignments: dummydb.NewAssignmentRepository(db),
		evaluations: dummydb.NewEvaluationRepository(db),
		schedule:    dummydb.NewScheduleRepository(db),
		incidents:   dummydb.NewIncidentRepository(db),
		activity:    dummydb.NewActivityRepository(db),
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	incident.InitValidators(validate, translator)

	metrics := metricsvc.New(prometheus.NewRegistry())
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)

	usrSvc := user.NewService(e.users, mailSvc, validate)
	activitySvc := activity.NewService(e.activity, logger, metrics)
	assignmentSvc := assignment.NewService(e.assignments, usrSvc)
	scheduleSvc := schedule.NewService(e.schedule)

	e.app = NewServer(ServerDeps{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		Metrics:       metrics,
		Storage:       e.storage,
		UserSvc:       usrSvc,
		DepartmentSvc: department.NewService(e.departments),
		SectionSvc:    section.NewService(e.sections),
		SubjectSvc:    subject.NewService(e.subjects),
		AssignmentSvc: assignmentSvc,
		EvaluationSvc: evaluation.NewService(e.evaluations, scheduleSvc, assignmentSvc, activitySvc, metrics),
		ScheduleSvc:   scheduleSvc,
		IncidentSvc:   incident.NewService(e.incidents, activitySvc, mailSvc),
		ActivitySvc:   activitySvc,
		ReportSvc:     report.NewService(dummydb.NewReportRowSource(db), pdfsvc.NewRenderer(conf.AppName), metrics),
	})
	emailsvc.ResetSentMessages()
	return e
}

// openSchedule opens the evaluation period for the next hour.
func (e *env) openSchedule(t *testing.T) {
	now := time.Now().UTC()
	_, err := e.schedule.SaveSchedule(ctxb, schedule.Schedule{StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour)})
	require.NoError(t, err)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (e *env) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	e.app.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, usr user.User) string {
	token, err := GenerateToken(conf, GetUserClaims(conf, usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func marshalList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marshalList(): %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}

func runTests(t *testing.T, e *env, tests []httpTest) {
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}
