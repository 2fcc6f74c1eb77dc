package echoapi

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/evalink/core"
	"github.com/trezcool/evalink/core/department"
	"github.com/trezcool/evalink/core/user"
	logsvc "github.com/trezcool/evalink/services/logger"
)

func Test_newAppHTTPErrorHandler(t *testing.T) {
	logger := logsvc.NewRollbarLogger(io.Discard, "TEST", core.Conf)
	logger.Enable(false)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	nd := department.NewDepartment{Name: "   "}
	verr := nd.Validate(validate)
	require.IsType(t, validator.ValidationErrors{}, verr)

	tests := []struct {
		name         string
		err          error
		wantCode     int
		wantBody     string
		wantShutdown bool
	}{
		{name: "validation errors", err: verr, wantCode: http.StatusBadRequest, wantBody: `{"name":"this field is required"}`},
		{name: "wrapped validation errors", err: errors.Wrap(verr, "creating department"), wantCode: http.StatusBadRequest, wantBody: `{"name":"this field is required"}`},
		{
			name: "field error", err: core.NewValidationError(errors.New("invalid uid"), core.FieldError{Field: "uid", Error: "invalid value"}),
			wantCode: http.StatusBadRequest, wantBody: `{"uid":"invalid value"}`,
		},
		{name: "conflict", err: core.NewConflictError(user.ErrIDExists), wantCode: http.StatusConflict, wantBody: `{"error":"` + user.ErrIDExists.Error() + `"}`},
		{name: "domain error", err: errors.Wrap(user.ErrNotFound, "getting user"), wantCode: http.StatusNotFound, wantBody: `{"error":"user not found"}`},
		{name: "http error", err: errHttpForbidden, wantCode: http.StatusForbidden, wantBody: `{"error":"permission denied"}`},
		{name: "server error", err: errors.New("lol"), wantCode: http.StatusInternalServerError, wantBody: `{"error":"Internal Server Error"}`},
		{
			name: "shutdown error", err: errors.Wrap(core.NewShutdownError("database connection lost"), "selecting row"),
			wantCode: http.StatusInternalServerError, wantBody: `{"error":"Internal Server Error"}`, wantShutdown: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var shutdown bool
			handler := newAppHTTPErrorHandler(logger, translator, func() { shutdown = true })

			e := echo.New()
			rec := httptest.NewRecorder()
			ctx := e.NewContext(httptest.NewRequest(http.MethodPost, "/v1/departments", nil), rec)

			assert.NotPanics(t, func() { handler(tt.err, ctx) })
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, tt.wantShutdown, shutdown)
		})
	}
}
