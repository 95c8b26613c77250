package record

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRecordWhere_Default(t *testing.T) {
	where, args := recordWhere(mustFilter(t, Query{}))
	want := " WHERE a.appointment_time >= $1 AND a.appointment_time < $2"
	if where != want {
		t.Errorf("where:\n got %q\nwant %q", where, want)
	}
	if len(args) != 2 {
		t.Errorf("expected 2 args, got %d", len(args))
	}
}

func TestRecordWhere_AllFilters(t *testing.T) {
	fid := uuid.MustParse("6f1c2d4e-8a9b-4c3d-9e2f-1a2b3c4d5e6f")
	f := mustFilter(t, Query{
		StartDate:  "2026-03-01",
		EndDate:    "2026-03-31",
		FacilityID: fid.String(),
		Clinic:     "Cardiology",
		Status:     "Completed",
		Search:     "50%_off",
	})
	where, args := recordWhere(f)

	for _, frag := range []string{
		"a.appointment_time >= $1",
		"a.appointment_time < $2",
		"a.facility_id = $3",
		"a.clinic = $4",
		"a.status = $5",
		"p.first_name || ' ' || p.last_name ILIKE $6",
		"p.patient_code ILIKE $6",
		"p.primary_phone ILIKE $6",
	} {
		if !strings.Contains(where, frag) {
			t.Errorf("expected %q in %q", frag, where)
		}
	}
	if len(args) != 6 {
		t.Fatalf("expected 6 args, got %d", len(args))
	}
	if args[2] != fid {
		t.Errorf("expected facility arg, got %v", args[2])
	}
	if args[5] != `%50\%\_off%` {
		t.Errorf("expected escaped search, got %v", args[5])
	}
}

func TestRecordWhere_OpenWindow(t *testing.T) {
	where, args := recordWhere(Filter{})
	if where != "" || len(args) != 0 {
		t.Errorf("expected no clause, got %q %v", where, args)
	}
}

func TestRecordOrder(t *testing.T) {
	tests := []struct {
		sortBy string
		desc   bool
		want   string
	}{
		{SortAppointmentTime, false, " ORDER BY a.appointment_time ASC, a.id ASC"},
		{SortPatientName, true, " ORDER BY patient_name DESC, a.id DESC"},
		{SortWalletBalance, false, " ORDER BY p.wallet_balance ASC, a.id ASC"},
		{"bogus", true, " ORDER BY a.appointment_time DESC, a.id DESC"},
	}
	for _, tt := range tests {
		if got := recordOrder(Filter{SortBy: tt.sortBy, SortDesc: tt.desc}); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.sortBy, got, tt.want)
		}
	}
}

func TestDistributionQuery(t *testing.T) {
	q := distributionQuery("a.status", " WHERE a.facility_id = $1")
	if !strings.HasSuffix(q, " WHERE a.facility_id = $1 GROUP BY a.status ORDER BY COUNT(*) DESC, a.status ASC") {
		t.Errorf("unexpected query: %s", q)
	}
	if !strings.Contains(q, "JOIN patients p") || !strings.Contains(q, "JOIN facilities f") {
		t.Errorf("expected joined source: %s", q)
	}
}
