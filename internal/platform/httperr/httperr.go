// Package httperr defines the API error taxonomy and the echo error handler
// that renders every failure as a {success:false, message} envelope.
package httperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// FieldError is one itemized validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is an API error carrying its HTTP status and optional detail payloads.
type Error struct {
	Status     int
	Message    string
	Errors     []FieldError
	Duplicates interface{}
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(errs []FieldError) *Error {
	return &Error{Status: http.StatusBadRequest, Message: "Validation failed", Errors: errs}
}

func BadRequest(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Status: http.StatusNotFound, Message: msg}
}

// Conflict reports a uniqueness clash. duplicates is rendered verbatim.
func Conflict(msg string, duplicates interface{}) *Error {
	return &Error{Status: http.StatusConflict, Message: msg, Duplicates: duplicates}
}

func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: "Internal server error", Err: err}
}

// Body is the failure envelope.
type Body struct {
	Success    bool         `json:"success"`
	Message    string       `json:"message"`
	Errors     []FieldError `json:"errors,omitempty"`
	Duplicates interface{}  `json:"duplicates,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// Handler returns an echo.HTTPErrorHandler. Internal error detail is only
// exposed when exposeInternal is set.
func Handler(logger zerolog.Logger, exposeInternal bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := render(err, exposeInternal)
		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("write error response")
		}
	}
}

func render(err error, exposeInternal bool) (int, Body) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		body := Body{
			Message:    apiErr.Message,
			Errors:     apiErr.Errors,
			Duplicates: apiErr.Duplicates,
		}
		if apiErr.Status >= http.StatusInternalServerError && exposeInternal && apiErr.Err != nil {
			body.Error = apiErr.Err.Error()
		}
		return apiErr.Status, body
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		body := Body{Message: msg}
		if he.Code >= http.StatusInternalServerError && exposeInternal && he.Internal != nil {
			body.Error = he.Internal.Error()
		}
		return he.Code, body
	}

	body := Body{Message: "Internal server error"}
	if exposeInternal {
		body.Error = err.Error()
	}
	return http.StatusInternalServerError, body
}
