package httperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func runHandler(t *testing.T, err error, expose bool) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	Handler(zerolog.Nop(), expose)(err, c)

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v (%s)", err, rec.Body.String())
	}
	return rec, body
}

func TestHandler_Validation(t *testing.T) {
	rec, body := runHandler(t, Validation([]FieldError{
		{Field: "firstName", Message: "First name is required"},
		{Field: "gender", Message: "Gender is required"},
	}), false)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body["success"] != false {
		t.Error("expected success=false")
	}
	if body["message"] != "Validation failed" {
		t.Errorf("unexpected message: %v", body["message"])
	}
	errs, ok := body["errors"].([]interface{})
	if !ok || len(errs) != 2 {
		t.Fatalf("expected 2 itemized errors, got %v", body["errors"])
	}
}

func TestHandler_ConflictCarriesDuplicates(t *testing.T) {
	dups := []map[string]string{{"id": "1", "name": "Ada Obi"}}
	rec, body := runHandler(t, Conflict("Potential duplicate patient found", dups), false)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	list, ok := body["duplicates"].([]interface{})
	if !ok || len(list) != 1 {
		t.Fatalf("expected duplicates in body, got %v", body["duplicates"])
	}
}

func TestHandler_InternalHidesDetailInProduction(t *testing.T) {
	cause := errors.New("connection refused")

	rec, body := runHandler(t, Internal(cause), false)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if _, ok := body["error"]; ok {
		t.Error("error detail must not be exposed")
	}

	_, body = runHandler(t, Internal(cause), true)
	if body["error"] != "connection refused" {
		t.Errorf("expected detail in development, got %v", body["error"])
	}
}

func TestHandler_WrappedAPIError(t *testing.T) {
	err := fmt.Errorf("update patient: %w", NotFound("Patient not found"))
	rec, body := runHandler(t, err, false)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body["message"] != "Patient not found" {
		t.Errorf("unexpected message: %v", body["message"])
	}
}

func TestHandler_EchoHTTPError(t *testing.T) {
	rec, body := runHandler(t, echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded"), false)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if body["message"] != "rate limit exceeded" || body["success"] != false {
		t.Errorf("unexpected body: %v", body)
	}

	rec, body = runHandler(t, echo.ErrNotFound, false)
	if rec.Code != http.StatusNotFound || body["message"] != "Not Found" {
		t.Errorf("unexpected route-miss rendering: %d %v", rec.Code, body)
	}
}

func TestHandler_PlainError(t *testing.T) {
	rec, body := runHandler(t, errors.New("boom"), false)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body["message"] != "Internal server error" {
		t.Errorf("unexpected message: %v", body["message"])
	}
}
