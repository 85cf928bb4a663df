package echoapi

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lectern/core"
	"github.com/trezcool/lectern/core/lecture"
	"github.com/trezcool/lectern/core/user"
	logsvc "github.com/trezcool/lectern/services/logger"
)

func Test_appHTTPErrorHandler(t *testing.T) {
	conf := &core.Config{Env: "TEST", TestMode: true}
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	creds := user.Credentials{Username: "alice", Password: "Notebook&Pens9"}
	vErrs := creds.Validate(validate)
	require.IsType(t, validator.ValidationErrors{}, vErrs)

	var shutdownCalls int
	handler := newAppHTTPErrorHandler(logger, translator, func() { shutdownCalls++ })

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{name: "validation errors", err: vErrs, wantCode: http.StatusBadRequest, wantBody: `{"role":"this field is required"}`},
		{name: "wrapped validation errors", err: errors.Wrap(vErrs, "validating"), wantCode: http.StatusBadRequest, wantBody: `{"role":"this field is required"}`},
		{name: "sentinel", err: errors.Wrap(user.ErrUserExists, "creating"), wantCode: http.StatusConflict, wantBody: `{"error":"Username already exists!"}`},
		{name: "missing fields", err: core.NewValidationError(lecture.ErrMissingFields), wantCode: http.StatusBadRequest, wantBody: `{"error":"Missing required fields"}`},
		{name: "collaborator", err: core.NewCollaboratorError("transcription", errors.New("boom")), wantCode: http.StatusBadGateway, wantBody: `{"error":"Transcription failed","details":"boom"}`},
		{name: "persistence", err: core.NewPersistenceError("saving lecture", errors.New("disk full")), wantCode: http.StatusInternalServerError, wantBody: `{"error":"saving lecture: disk full"}`},
		{name: "http error", err: echo.NewHTTPError(http.StatusTeapot, "short and stout"), wantCode: http.StatusTeapot, wantBody: `{"error":"short and stout"}`},
		{name: "unknown", err: errors.New("lol"), wantCode: http.StatusInternalServerError, wantBody: `{"error":"Internal Server Error"}`},
		{name: "shutdown", err: core.NewShutdownError("integrity issue"), wantCode: http.StatusInternalServerError, wantBody: `{"error":"Internal Server Error"}`},
	}
	app := echo.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ctx := app.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

			require.NotPanics(t, func() { handler(tt.err, ctx) })
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
	assert.Equal(t, 1, shutdownCalls)
}

func Test_lookupDomainError(t *testing.T) {
	_, ok := lookupDomainError(validator.ValidationErrors{})
	assert.False(t, ok)
	_, ok = lookupDomainError(nil)
	assert.False(t, ok)

	de, ok := lookupDomainError(lecture.ErrNotFound)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, de.code)
}

func Test_collaboratorFailureText(t *testing.T) {
	assert.Equal(t, "Grammar correction failed", collaboratorFailureText("grammar correction"))
	assert.Equal(t, "External service failed", collaboratorFailureText(""))
}
