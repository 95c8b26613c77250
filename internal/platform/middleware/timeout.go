package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// RequestTimeout sets a context deadline on each request. The handler runs
// on the request goroutine and keeps sole ownership of the response; when it
// returns after the deadline without writing, the request fails with 504.
// Paths listed in skip (exact match) run without a deadline; the spreadsheet
// export pages through every matching record and is the expected entry.
func RequestTimeout(timeout time.Duration, skip ...string) echo.MiddlewareFunc {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}

	deadline := echomw.ContextTimeoutWithConfig(echomw.ContextTimeoutConfig{
		Timeout: timeout,
		Skipper: func(c echo.Context) bool {
			return skipped[c.Request().URL.Path]
		},
		ErrorHandler: func(err error, c echo.Context) error {
			if errors.Is(err, context.DeadlineExceeded) {
				return echo.NewHTTPError(http.StatusGatewayTimeout,
					"Request processing exceeded the allowed time limit")
			}
			return err
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return deadline(func(c echo.Context) error {
			err := next(c)
			if err == nil && !c.Response().Committed &&
				errors.Is(c.Request().Context().Err(), context.DeadlineExceeded) {
				return context.DeadlineExceeded
			}
			return err
		})
	}
}
