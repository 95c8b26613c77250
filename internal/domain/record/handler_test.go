package record

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/excelthedev/Plural-health/internal/platform/httperr"
)

func newTestServer(t *testing.T) (*echo.Echo, *world) {
	t.Helper()
	svc, w, _ := newService(t)
	e := echo.New()
	e.HTTPErrorHandler = httperr.Handler(zerolog.Nop(), true)
	NewHandler(svc).RegisterRoutes(e.Group("/api"))
	return e, w
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func TestHandler_List(t *testing.T) {
	e, _ := newTestServer(t)
	rec, env := do(t, e, http.MethodGet, "/api/records?limit=2&sortBy=patientName", "")
	if rec.Code != http.StatusOK || !env.Success || env.Message != "Records retrieved successfully" {
		t.Fatalf("unexpected response %d %+v", rec.Code, env)
	}

	var data struct {
		Records []struct {
			PatientName   string `json:"patientName"`
			FormattedTime string `json:"formattedTime"`
			FormattedDate string `json:"formattedDate"`
		} `json:"records"`
		Pagination struct {
			TotalRecords int  `json:"totalRecords"`
			TotalPages   int  `json:"totalPages"`
			HasNextPage  bool `json:"hasNextPage"`
		} `json:"pagination"`
		Filters AppliedFilters `json:"filters"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	if len(data.Records) != 2 || data.Records[0].PatientName != "Ada Obi" {
		t.Errorf("unexpected records: %+v", data.Records)
	}
	if data.Records[0].FormattedDate != "14 Mar 2026" {
		t.Errorf("expected formatted date, got %q", data.Records[0].FormattedDate)
	}
	if data.Pagination.TotalRecords != 4 || data.Pagination.TotalPages != 2 || !data.Pagination.HasNextPage {
		t.Errorf("unexpected pagination: %+v", data.Pagination)
	}
	if data.Filters.SortBy != SortPatientName {
		t.Errorf("expected sortBy echoed, got %+v", data.Filters)
	}
}

func TestHandler_ListEmpty(t *testing.T) {
	e, _ := newTestServer(t)
	rec, env := do(t, e, http.MethodGet, "/api/records?clinic=Psychiatry", "")
	if rec.Code != http.StatusOK || env.Message != "No records found" {
		t.Errorf("unexpected response %d %q", rec.Code, env.Message)
	}
	if !strings.Contains(string(env.Data), `"records":[]`) {
		t.Errorf("expected empty records array, got %s", env.Data)
	}
}

func TestHandler_ListPastLastPage(t *testing.T) {
	e, _ := newTestServer(t)
	rec, env := do(t, e, http.MethodGet, "/api/records?page=9&limit=2", "")
	if rec.Code != http.StatusOK || env.Message != "Records retrieved successfully" {
		t.Errorf("unexpected response %d %q", rec.Code, env.Message)
	}
	if !strings.Contains(string(env.Data), `"records":[]`) || !strings.Contains(string(env.Data), `"totalRecords":4`) {
		t.Errorf("expected empty page of 4 records, got %s", env.Data)
	}
}

func TestHandler_ListBadDate(t *testing.T) {
	e, _ := newTestServer(t)
	rec, env := do(t, e, http.MethodGet, "/api/records?startDate=03-14-2026", "")
	if rec.Code != http.StatusBadRequest || env.Success || env.Message != "Invalid startDate" {
		t.Errorf("unexpected response %d %+v", rec.Code, env)
	}
}

func TestHandler_Stats(t *testing.T) {
	e, _ := newTestServer(t)
	rec, env := do(t, e, http.MethodGet, "/api/records/stats", "")
	if rec.Code != http.StatusOK || env.Message != "Statistics retrieved successfully" {
		t.Fatalf("unexpected response %d %q", rec.Code, env.Message)
	}
	var st Stats
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatal(err)
	}
	if st.TotalAppointments != 4 || st.UrgentAppointments != 2 {
		t.Errorf("unexpected stats: %+v", st)
	}
	if !strings.Contains(string(env.Data), `{"_id":"Scheduled","count":2}`) {
		t.Errorf("expected _id buckets, got %s", env.Data)
	}
}

func TestHandler_Filters(t *testing.T) {
	e, _ := newTestServer(t)
	rec, env := do(t, e, http.MethodGet, "/api/records/filters", "")
	if rec.Code != http.StatusOK || env.Message != "Filter options retrieved successfully" {
		t.Fatalf("unexpected response %d %q", rec.Code, env.Message)
	}
	var opts FilterOptions
	if err := json.Unmarshal(env.Data, &opts); err != nil {
		t.Fatal(err)
	}
	if len(opts.Clinics) != 5 || len(opts.Statuses) != 4 {
		t.Errorf("unexpected options: %+v", opts)
	}
}

func TestHandler_Get(t *testing.T) {
	e, w := newTestServer(t)

	rec, env := do(t, e, http.MethodGet, "/api/records/"+w.appts[1].ID.String(), "")
	if rec.Code != http.StatusOK || env.Message != "Record retrieved successfully" {
		t.Fatalf("unexpected response %d %q", rec.Code, env.Message)
	}
	var raw map[string]interface{}
	json.Unmarshal(env.Data, &raw)
	if raw["doctor"] != nil {
		t.Errorf("expected null doctor, got %v", raw["doctor"])
	}
	if pat, _ := raw["patient"].(map[string]interface{}); pat["name"] != "Bola Ade" {
		t.Errorf("unexpected patient block: %v", raw["patient"])
	}
	if raw["formattedTime"] != "11:30 AM" {
		t.Errorf("unexpected formattedTime: %v", raw["formattedTime"])
	}

	rec, env = do(t, e, http.MethodGet, "/api/records/"+uuid.NewString(), "")
	if rec.Code != http.StatusNotFound || env.Message != "Record not found" {
		t.Errorf("expected 404, got %d %q", rec.Code, env.Message)
	}

	rec, env = do(t, e, http.MethodGet, "/api/records/abc", "")
	if rec.Code != http.StatusBadRequest || env.Message != "Invalid record ID" {
		t.Errorf("expected 400, got %d %q", rec.Code, env.Message)
	}
}

func TestHandler_UpdateStatus(t *testing.T) {
	e, w := newTestServer(t)
	target := "/api/records/" + w.appts[2].ID.String() + "/status"

	rec, env := do(t, e, http.MethodPatch, target, `{"status":"Completed"}`)
	if rec.Code != http.StatusOK || env.Message != "Record status updated successfully" {
		t.Fatalf("unexpected response %d %+v", rec.Code, env)
	}
	if !strings.Contains(string(env.Data), `"status":"Completed"`) {
		t.Errorf("expected updated status, got %s", env.Data)
	}

	rec, _ = do(t, e, http.MethodPatch, target, `{"status":"Done"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown status, got %d", rec.Code)
	}

	rec, _ = do(t, e, http.MethodPatch, target, `{"status":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad body, got %d", rec.Code)
	}
}

func TestHandler_Export(t *testing.T) {
	e, _ := newTestServer(t)
	rec, _ := do(t, e, http.MethodGet, "/api/records/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != xlsxMIME {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(cd, "records-2026-03-14.xlsx") {
		t.Errorf("unexpected disposition %q", cd)
	}
	if rec.Body.Len() == 0 {
		t.Error("expected workbook bytes")
	}
}
