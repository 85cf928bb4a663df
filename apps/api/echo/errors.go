package echoapi

import (
	"net/http"
	"reflect"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lectern/core"
	"github.com/trezcool/lectern/core/lecture"
	"github.com/trezcool/lectern/core/user"
)

var (
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, msgUnauthorized)
	errHttpNotFound   = echo.NewHTTPError(http.StatusNotFound, "not found")
	errNoAudio        = echo.NewHTTPError(http.StatusBadRequest, msgNoAudio)
	errNoSelectedFile = echo.NewHTTPError(http.StatusBadRequest, msgNoSelectedFile)
)

type domainError struct {
	code int
	msg  string
}

// domainErrors maps the domain errors to their status code and public message.
var domainErrors = map[error]domainError{
	user.ErrNotFound:         {http.StatusNotFound, "user not found"},
	user.ErrWrongPassword:    {http.StatusUnauthorized, msgWrongPassword},
	user.ErrRoleMismatch:     {http.StatusUnauthorized, msgRoleMismatch},
	user.ErrUserExists:       {http.StatusConflict, msgUserExists},
	lecture.ErrNotFound:      {http.StatusNotFound, "lecture not found"},
	lecture.ErrAccessDenied:  {http.StatusForbidden, msgNoAccess},
	lecture.ErrNotLecturer:   {http.StatusUnauthorized, msgUnauthorized},
	lecture.ErrMissingFields: {http.StatusBadRequest, msgMissingFields},
}

// lookupDomainError returns the entry of a sentinel cause.
// Causes of a non-comparable type, like validator.ValidationErrors, cannot be map keys.
func lookupDomainError(cause error) (domainError, bool) {
	if cause == nil || !reflect.TypeOf(cause).Comparable() {
		return domainError{}, false
	}
	de, ok := domainErrors[cause]
	return de, ok
}

// detailer is implemented by collaborator errors that carry the remote failure details.
type detailer interface {
	Details() string
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		if de, ok := lookupDomainError(cause); ok {
			code, message = de.code, echo.Map{"error": de.msg}
		} else {
			switch origErr := cause.(type) {
			case *echo.HTTPError:
				if origErr.Internal != nil {
					if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
						origErr = herr
					}
				}
				code = origErr.Code
				message = origErr.Message
			case validator.ValidationErrors:
				code = http.StatusBadRequest
				message = core.TranslateErrors(origErr, translator)
			case *core.ValidationError:
				code = http.StatusBadRequest
				message = validationMessage(origErr)
			case *core.CollaboratorError:
				code = http.StatusBadGateway
				message = echo.Map{"error": collaboratorFailureText(origErr.Service), "details": collaboratorDetails(origErr)}
				logger.Warn(origErr.Error(), err, getContextClaim(ctx))
			case *core.PersistenceError:
				code = http.StatusInternalServerError
				message = echo.Map{"error": origErr.Error()}
				logger.Error(origErr.Error(), err, getContextClaim(ctx))
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				if ctx.Echo().Debug {
					message = err.Error()
				}
				logger.Error(msg, errors.Wrap(err, msg), getContextClaim(ctx))

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func validationMessage(vErr *core.ValidationError) interface{} {
	var fldErrs map[string]string
	if len(vErr.Fields) > 0 {
		fldErrs = make(map[string]string, len(vErr.Fields))
		for _, fErr := range vErr.Fields {
			fldErrs[fErr.Field] = fErr.Error
		}
	}
	if vErr.Err == nil {
		return fldErrs
	}

	msg := vErr.Error()
	if de, ok := lookupDomainError(errors.Cause(vErr.Err)); ok {
		msg = de.msg
	}
	if fldErrs == nil {
		return msg
	}
	return echo.Map{"error": msg, "fields": fldErrs}
}

// collaboratorFailureText is "Transcription failed" for the "transcription" service.
func collaboratorFailureText(service string) string {
	if service == "" {
		return "External service failed"
	}
	return strings.ToUpper(service[:1]) + service[1:] + " failed"
}

func collaboratorDetails(cErr *core.CollaboratorError) string {
	if cErr.Err == nil {
		return ""
	}
	if d, ok := errors.Cause(cErr.Err).(detailer); ok {
		return d.Details()
	}
	return cErr.Err.Error()
}
