package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/excelthedev/Plural-health/internal/platform/httperr"
)

// statusOf predicts the status the error handler will write for err.
func statusOf(err error) int {
	var apiErr *httperr.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}
