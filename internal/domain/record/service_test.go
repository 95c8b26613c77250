package record

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/excelthedev/Plural-health/internal/platform/httperr"
	"github.com/excelthedev/Plural-health/internal/platform/metrics"
)

func newService(t *testing.T) (*Service, *world, *metrics.Collector) {
	t.Helper()
	w := newWorld(t)
	m := metrics.NewCollector("test")
	svc := NewService(w.repo, m, zerolog.Nop(), time.UTC)
	svc.now = func() time.Time { return fixedNow }
	return svc, w, m
}

func statusOf(err error) int {
	var he *httperr.Error
	if errors.As(err, &he) {
		return he.Status
	}
	return 0
}

func TestService_ListFormatsTimes(t *testing.T) {
	svc, _, _ := newService(t)
	res, err := svc.List(context.Background(), Query{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(res.Records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(res.Records))
	}
	if got := res.Records[0]; got.FormattedTime != "09:00 AM" || got.FormattedDate != "14 Mar 2026" {
		t.Errorf("unexpected formatting: %q %q", got.FormattedTime, got.FormattedDate)
	}
	if got := res.Records[3]; got.FormattedTime != "02:15 PM" {
		t.Errorf("expected afternoon time, got %q", got.FormattedTime)
	}
	if res.Pagination.TotalRecords != 4 || res.Pagination.TotalPages != 1 || res.Pagination.HasNextPage {
		t.Errorf("unexpected pagination: %+v", res.Pagination)
	}
	if res.Filters.StartDate != "2026-03-14" || res.Filters.SortOrder != "asc" {
		t.Errorf("unexpected filters: %+v", res.Filters)
	}
}

func TestService_ListEmptyIsNotNil(t *testing.T) {
	svc, _, _ := newService(t)
	res, err := svc.List(context.Background(), Query{Clinic: "Psychiatry"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.Records == nil || len(res.Records) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", res.Records)
	}
}

func TestService_ListHugePageIsEmpty(t *testing.T) {
	svc, _, _ := newService(t)
	res, err := svc.List(context.Background(), Query{Page: "9223372036854775807", Limit: "20"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(res.Records) != 0 || res.Pagination.TotalRecords != 4 {
		t.Errorf("expected an empty page over 4 records, got %d records, total %d",
			len(res.Records), res.Pagination.TotalRecords)
	}
}

func TestService_ListBadQuery(t *testing.T) {
	svc, _, _ := newService(t)
	if _, err := svc.List(context.Background(), Query{StartDate: "yesterday"}); statusOf(err) != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestService_FilterOptions(t *testing.T) {
	svc, w, _ := newService(t)
	if _, err := svc.FilterOptions(context.Background(), "not-a-uuid"); statusOf(err) != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
	opts, err := svc.FilterOptions(context.Background(), w.abuja.String())
	if err != nil {
		t.Fatalf("FilterOptions: %v", err)
	}
	if !equalStrings(opts.Clinics, []string{"Dermatology", "Neurology"}) {
		t.Errorf("unexpected clinics: %v", opts.Clinics)
	}
}

func TestService_GetNotFound(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Get(context.Background(), uuid.New())
	var he *httperr.Error
	if !errors.As(err, &he) || he.Status != http.StatusNotFound || he.Message != "Record not found" {
		t.Errorf("expected 404 Record not found, got %v", err)
	}
}

func TestService_UpdateStatus(t *testing.T) {
	svc, w, m := newService(t)
	ctx := context.Background()

	d, err := svc.UpdateStatus(ctx, w.appts[0].ID, " Seen doctor ", "doc-7")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if d.Status != "Seen doctor" || d.UpdatedBy != "doc-7" {
		t.Errorf("unexpected record: %s by %s", d.Status, d.UpdatedBy)
	}
	if d.FormattedTime != "09:00 AM" {
		t.Errorf("expected formatted detail, got %q", d.FormattedTime)
	}
	if got := testutil.ToFloat64(m.RecordStatusChanges.WithLabelValues("Seen doctor")); got != 1 {
		t.Errorf("expected status change counted, got %v", got)
	}

	_, err = svc.UpdateStatus(ctx, w.appts[0].ID, "Teleported", "doc-7")
	var he *httperr.Error
	if !errors.As(err, &he) || he.Status != http.StatusBadRequest || len(he.Errors) != 1 || he.Errors[0].Field != "status" {
		t.Errorf("expected status validation error, got %v", err)
	}

	if _, err := svc.UpdateStatus(ctx, uuid.New(), "Completed", ""); statusOf(err) != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}
