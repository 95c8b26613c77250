package client

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/excelthedev/Plural-health/internal/domain/facility"
	"github.com/excelthedev/Plural-health/internal/domain/patient"
	"github.com/excelthedev/Plural-health/internal/domain/record"
	"github.com/excelthedev/Plural-health/internal/platform/blobstore"
	"github.com/excelthedev/Plural-health/internal/platform/httperr"
	"github.com/excelthedev/Plural-health/internal/platform/metrics"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

type api struct {
	client     *Client
	facilityID uuid.UUID
	patients   *patient.MemoryRepo
	records    *record.MemoryRepo
}

// newAPI serves the real handlers over in-memory stores.
func newAPI(t *testing.T) *api {
	t.Helper()
	ctx := context.Background()
	facilities := facility.NewMemoryRepo()
	fac := &facility.Facility{Name: "Lagos General", Type: facility.TypeHospital, IsActive: true}
	require.NoError(t, facilities.Create(ctx, fac))

	patients := patient.NewMemoryRepo()
	records := record.NewMemoryRepo(patients, facilities)
	m := metrics.NewCollector("client_test")

	e := echo.New()
	e.HTTPErrorHandler = httperr.Handler(zerolog.Nop(), true)
	g := e.Group("/api")
	patient.NewHandler(patient.NewService(patients, facilities, blobstore.NewInMemoryBlobStore(), m, zerolog.Nop(), patient.Defaults{})).RegisterRoutes(g)
	record.NewHandler(record.NewService(records, m, zerolog.Nop(), time.UTC)).RegisterRoutes(g)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return &api{
		client:     New(Config{BaseURL: srv.URL + "/api"}, zerolog.Nop()),
		facilityID: fac.ID,
		patients:   patients,
		records:    records,
	}
}

func (a *api) input() patient.Input {
	return patient.Input{
		FirstName:    "Ada",
		LastName:     "Obi",
		Gender:       "Female",
		DateOfBirth:  "1990-05-01",
		PrimaryPhone: "08012345678",
		Address:      &patient.Address{Street: "1 Marina", City: "Lagos", State: "Lagos"},
		FacilityID:   a.facilityID.String(),
	}
}

func TestClient_PatientLifecycle(t *testing.T) {
	a := newAPI(t)
	ctx := context.Background()

	p, err := a.client.CreatePatient(ctx, a.input(), nil)
	require.NoError(t, err)
	assert.Equal(t, "HOSP00000001", p.PatientCode)
	assert.Equal(t, "+2348012345678", p.PrimaryPhone)
	assert.True(t, p.IsActive)

	got, err := a.client.GetPatient(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	upd := patient.Input{FirstName: "Adaeze"}
	got, err = a.client.UpdatePatient(ctx, p.ID, upd, nil)
	require.NoError(t, err)
	assert.Equal(t, "Adaeze", got.FirstName)
	assert.Equal(t, "Obi", got.LastName)

	page, err := a.client.ListPatients(ctx, PatientQuery{Search: "adaeze", Limit: 5})
	require.NoError(t, err)
	require.Len(t, page.Patients, 1)
	assert.Equal(t, 1, page.Pagination.TotalRecords)

	require.NoError(t, a.client.DeletePatient(ctx, p.ID))
	page, err = a.client.ListPatients(ctx, PatientQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Patients)

	page, err = a.client.ListPatients(ctx, PatientQuery{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, page.Patients, 1)

	_, err = a.client.GetPatient(ctx, uuid.New())
	assert.True(t, IsNotFound(err))
}

func TestClient_DuplicateConflict(t *testing.T) {
	a := newAPI(t)
	ctx := context.Background()

	first, err := a.client.CreatePatient(ctx, a.input(), nil)
	require.NoError(t, err)

	in := a.input()
	in.FirstName = "Someone"
	_, err = a.client.CreatePatient(ctx, in, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	require.Len(t, apiErr.Duplicates, 1)
	assert.Equal(t, first.ID, apiErr.Duplicates[0].ID)

	res, err := a.client.CheckDuplicates(ctx, patient.DuplicateQuery{PrimaryPhone: "0801 234 5678", FacilityID: a.facilityID.String()})
	require.NoError(t, err)
	assert.True(t, res.HasDuplicates)

	res, err = a.client.CheckDuplicates(ctx, patient.DuplicateQuery{
		PrimaryPhone: "08012345678",
		FacilityID:   a.facilityID.String(),
		ExcludeID:    first.ID.String(),
	})
	require.NoError(t, err)
	assert.False(t, res.HasDuplicates)
}

func TestClient_ValidationErrors(t *testing.T) {
	a := newAPI(t)
	_, err := a.client.CreatePatient(context.Background(), patient.Input{FirstName: "Ada"}, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Validation failed", apiErr.Message)
	assert.NotEmpty(t, apiErr.Errors)
	assert.Contains(t, apiErr.Error(), "lastName")
}

func TestClient_CreateWithPhoto(t *testing.T) {
	a := newAPI(t)
	in := a.input()
	balance := 2500.0
	in.WalletBalance = &balance
	in.Identities = []patient.IdentityInput{{Type: "National ID", Number: "NIN-1"}}

	p, err := a.client.CreatePatient(context.Background(), in, &Photo{Name: "face.png", ContentType: "image/png", Content: bytes.NewReader(pngBytes)})
	require.NoError(t, err)
	require.NotNil(t, p.Photo)
	assert.Equal(t, "image/png", p.Photo.MimeType)
	assert.Equal(t, 2500.0, p.WalletBalance)
	require.Len(t, p.Identities, 1)
	assert.Equal(t, "NIN-1", p.Identities[0].Number)
	assert.Equal(t, "Lagos", p.Address.City)
}

func TestClient_Records(t *testing.T) {
	a := newAPI(t)
	ctx := context.Background()

	p, err := a.client.CreatePatient(ctx, a.input(), nil)
	require.NoError(t, err)
	appt := &record.Appointment{
		PatientID:       p.ID,
		FacilityID:      a.facilityID,
		AppointmentTime: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Clinic:          "Cardiology",
		IsUrgent:        true,
	}
	require.NoError(t, a.records.Create(ctx, appt))

	q := record.Query{StartDate: "2026-03-14", EndDate: "2026-03-14"}
	list, err := a.client.ListRecords(ctx, q)
	require.NoError(t, err)
	require.Len(t, list.Records, 1)
	assert.Equal(t, "Ada Obi", list.Records[0].PatientName)
	assert.Equal(t, "09:30 AM", list.Records[0].FormattedTime)
	assert.Equal(t, "2026-03-14", list.Filters.StartDate)

	st, err := a.client.RecordStats(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalAppointments)
	assert.Equal(t, 1, st.UrgentAppointments)

	opts, err := a.client.RecordFilters(ctx, a.facilityID.String())
	require.NoError(t, err)
	assert.Equal(t, []string{"Cardiology"}, opts.Clinics)

	d, err := a.client.UpdateRecordStatus(ctx, appt.ID, "Awaiting vitals")
	require.NoError(t, err)
	assert.Equal(t, "Awaiting vitals", d.Status)

	d, err = a.client.GetRecord(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, "Awaiting vitals", d.Status)
	assert.Nil(t, d.Doctor)
	assert.Equal(t, "Lagos General", d.Facility.Name)

	_, err = a.client.UpdateRecordStatus(ctx, appt.ID, "Beamed up")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	_, err = a.client.GetRecord(ctx, uuid.New())
	assert.True(t, IsNotFound(err))
}

func TestClient_SendsToken(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"message":"ok","data":{"clinics":[],"statuses":[]}}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Token: "tok-123"}, zerolog.Nop())
	_, err := c.RecordFilters(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", got)
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"message":"Internal server error"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, FailureThreshold: 3, OpenTimeout: time.Minute}, zerolog.Nop())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := c.RecordStats(ctx, record.Query{})
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	}

	_, err := c.RecordStats(ctx, record.Query{})
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState), "expected open breaker, got %v", err)
	assert.Equal(t, int32(3), hits.Load())
}

func TestClient_ClientErrorsDoNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"message":"Record not found"}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, FailureThreshold: 2}, zerolog.Nop())
	for i := 0; i < 5; i++ {
		_, err := c.GetRecord(context.Background(), uuid.New())
		require.True(t, IsNotFound(err), "call %d: %v", i, err)
	}
}

func TestAPIError_FallsBackToStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL}, zerolog.Nop()).GetRecord(context.Background(), uuid.New())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}
