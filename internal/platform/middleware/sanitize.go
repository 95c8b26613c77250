package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const maxHeaderValueSize = 8192

var (
	// Logged only; the stores use bound parameters.
	sqlPatterns = regexp.MustCompile(`(?i)('+\s*;\s*DROP\b|UNION\s+SELECT\b|'\s+OR\s+1\s*=\s*1|1\s*=\s*1)`)

	scriptPatterns = regexp.MustCompile(`(?i)(<script|javascript\s*:|on\w+\s*=)`)
)

// Sanitize rejects requests with path traversal, null bytes, header
// injection or script fragments in query parameters (the record and patient
// search boxes feed straight into these).
func Sanitize(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			rawPath := req.URL.RawPath
			if rawPath == "" {
				rawPath = path
			}

			if containsPathTraversal(path) || containsPathTraversal(rawPath) {
				return badInput("Path traversal detected")
			}
			if containsNullByte(path) || containsNullByte(rawPath) {
				return badInput("Null byte injection detected")
			}

			for name, values := range req.Header {
				for _, v := range values {
					if len(v) > maxHeaderValueSize {
						return badInput("Header value exceeds maximum size: " + name)
					}
					if strings.ContainsAny(v, "\r\n") {
						return badInput("Header injection detected: " + name)
					}
				}
			}

			for key, values := range req.URL.Query() {
				for _, v := range values {
					if containsNullByte(v) || containsNullByte(key) {
						return badInput("Null byte injection detected in query parameter")
					}
					if sqlPatterns.MatchString(v) {
						logger.Warn().
							Str("param", key).
							Str("path", path).
							Str("remote_ip", c.RealIP()).
							Msg("suspicious SQL fragment in query parameter")
					}
					if scriptPatterns.MatchString(v) || scriptPatterns.MatchString(key) {
						return badInput("Script injection detected in query parameter")
					}
				}
			}

			return next(c)
		}
	}
}

func containsPathTraversal(s string) bool {
	if strings.Contains(s, "..") {
		return true
	}
	lower := strings.ToLower(s)
	return strings.Contains(lower, "%2e%2e") || strings.Contains(lower, "%252e")
}

func containsNullByte(s string) bool {
	if strings.ContainsRune(s, '\x00') {
		return true
	}
	return strings.Contains(strings.ToLower(s), "%00")
}

func badInput(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

// SanitizeString strips null bytes and control characters (keeping \n, \r,
// \t) and trims surrounding whitespace. Patient intake runs names, address
// lines and insurance coverage notes through it.
func SanitizeString(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if r == '\x00' {
			continue
		}
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
