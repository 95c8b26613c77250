package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/excelthedev/Plural-health/internal/platform/auth"
)

// AuditEntry records who touched which clinic record, when, and from where.
type AuditEntry struct {
	UserID     string
	Resource   string // patients, records, auth, users
	RecordID   string
	PatientID  string
	Action     string // read, create, update, delete, search, export
	IPAddress  string
	UserAgent  string
	Path       string
	Method     string
	Timestamp  time.Time
	RequestID  string
	StatusCode int
}

// AuditRecorder persists audit entries somewhere other than the log.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit logs one record_access event for every /api/ request after the
// handler runs, and hands the entry to any recorders.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path

			if !strings.HasPrefix(path, "/api/") {
				return next(c)
			}

			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = statusOf(err)
			}

			entry := AuditEntry{
				Timestamp:  time.Now().UTC(),
				Path:       path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				StatusCode: status,
				UserID:     auth.UserIDFromContext(req.Context()),
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}
			entry.Resource, entry.RecordID = splitResource(path)
			entry.Action = actionFor(req.Method, entry.RecordID, path)
			if entry.Resource == "patients" && entry.RecordID != "" {
				entry.PatientID = entry.RecordID
			} else if pid := c.QueryParam("patientId"); pid != "" {
				entry.PatientID = pid
			}

			for _, r := range recorders {
				if r == nil {
					continue
				}
				if recErr := r.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Str("resource", entry.Resource).
				Str("record_id", entry.RecordID).
				Str("patient_id", entry.PatientID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("record_access")

			return err
		}
	}
}

// splitResource returns the first segment after /api/ and, when the second
// segment is a UUID, that id.
//
//	/api/patients                 -> patients, ""
//	/api/patients/<uuid>/photo    -> patients, <uuid>
//	/api/records/stats            -> records, ""
func splitResource(path string) (string, string) {
	segments := strings.Split(strings.Trim(strings.TrimPrefix(path, "/api/"), "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "unknown", ""
	}
	if len(segments) > 1 {
		if _, err := uuid.Parse(segments[1]); err == nil {
			return segments[0], segments[1]
		}
	}
	return segments[0], ""
}

func actionFor(method, recordID, path string) string {
	switch method {
	case http.MethodPost:
		if strings.HasSuffix(path, "/check-duplicates") {
			return "search"
		}
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	}
	if strings.HasSuffix(path, "/export") {
		return "export"
	}
	if recordID == "" {
		return "search"
	}
	return "read"
}
