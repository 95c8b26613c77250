package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityHeaders sets defensive response headers on every request. Photo
// downloads under /api/patients/:id/photo are allowed to be cached privately
// since they are immutable once stored; everything else is no-store.
func SecurityHeaders(hsts bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "0")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

			if hsts {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			path := c.Request().URL.Path
			if strings.HasPrefix(path, "/api/patients/") && strings.HasSuffix(path, "/photo") {
				h.Set("Cache-Control", "private, max-age=300")
			} else {
				h.Set("Cache-Control", "no-store")
			}

			return next(c)
		}
	}
}
