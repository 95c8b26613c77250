package db

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantState  string
	}{
		{"healthy", nil, http.StatusOK, "healthy"},
		{"down", errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/db", nil), rec)

			stats := func() *PoolStats { return &PoolStats{MaxConns: 20} }
			if err := HealthHandler(fakePinger{err: tt.err}, stats)(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}

			var body map[string]interface{}
			json.Unmarshal(rec.Body.Bytes(), &body)
			if body["status"] != tt.wantState {
				t.Errorf("expected status %q, got %v", tt.wantState, body["status"])
			}
			if body["success"] != (tt.err == nil) {
				t.Errorf("unexpected success flag %v", body["success"])
			}
			if _, ok := body["pool"]; !ok {
				t.Error("expected pool stats in body")
			}
		})
	}
}
