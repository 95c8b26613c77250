package patient

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/excelthedev/Plural-health/pkg/pagination"
)

func TestDuplicateQuery(t *testing.T) {
	fac := uuid.New()
	exclude := uuid.New()
	c := Criteria{FirstName: "John", LastName: "Doe", Gender: GenderMale, DateOfBirth: dob(1985, 7, 12).Add(9 * time.Hour), PrimaryPhone: "+2348012345678"}

	query, args := duplicateQuery(fac, c, nil)
	if !strings.Contains(query, "facility_id = $1") ||
		!strings.Contains(query, "(primary_phone = $2 OR (first_name = $3 AND last_name = $4 AND date_of_birth = $5 AND gender = $6))") {
		t.Errorf("unexpected query: %s", query)
	}
	if strings.Contains(query, "id <>") || len(args) != 6 {
		t.Errorf("expected no exclusion without excludeId, got %d args", len(args))
	}
	if got, ok := args[4].(time.Time); !ok || !got.Equal(dob(1985, 7, 12)) {
		t.Errorf("expected dob truncated to a date, got %v", args[4])
	}

	query, args = duplicateQuery(fac, c, &exclude)
	if !strings.Contains(query, "AND id <> $7") || args[6] != exclude {
		t.Errorf("expected exclusion bound as $7, got %s %v", query, args)
	}
}

func TestDuplicateQuery_EmptyFieldsBindNull(t *testing.T) {
	_, args := duplicateQuery(uuid.New(), Criteria{FirstName: "John"}, nil)
	if args[1] != nil {
		t.Errorf("empty phone must bind NULL, got %v", args[1])
	}
	if args[4] != nil {
		t.Errorf("zero dob must bind NULL, got %v", args[4])
	}
}

func TestListWhere(t *testing.T) {
	fac := uuid.New()
	no := false

	where, args := listWhere(ListFilter{})
	if where != " WHERE is_active" || len(args) != 0 {
		t.Errorf("expected active-only default, got %q %v", where, args)
	}

	where, args = listWhere(ListFilter{IncludeInactive: true})
	if where != "" {
		t.Errorf("expected no WHERE, got %q", where)
	}

	where, args = listWhere(ListFilter{FacilityID: &fac, Gender: GenderMale, HasInsurance: &no, Search: " 50%_off "})
	for _, want := range []string{"facility_id = $1", "gender = $2", "= $3", "first_name ILIKE $4", "COALESCE(email, '') ILIKE $4"} {
		if !strings.Contains(where, want) {
			t.Errorf("expected %q in %q", want, where)
		}
	}
	if len(args) != 4 || args[3] != `%50\%\_off%` {
		t.Errorf("unexpected args %v", args)
	}
}

func TestListOrder(t *testing.T) {
	tests := []struct {
		sortBy, order string
		want          string
	}{
		{"", "", " ORDER BY created_at DESC, id DESC"},
		{"walletBalance", "asc", " ORDER BY wallet_balance ASC, id ASC"},
		{"password; DROP TABLE patients", "asc", " ORDER BY created_at ASC, id ASC"},
	}
	for _, tt := range tests {
		f := NewListFilter(pagination.New(1, 20), "", tt.sortBy, tt.order)
		if got := listOrder(f); got != tt.want {
			t.Errorf("listOrder(%q, %q) = %q, want %q", tt.sortBy, tt.order, got, tt.want)
		}
	}
}

func TestCodeFor(t *testing.T) {
	if got := CodeFor(1); got != "HOSP00000001" {
		t.Errorf("CodeFor(1) = %s", got)
	}
	if got := CodeFor(12345678); got != "HOSP12345678" {
		t.Errorf("CodeFor(12345678) = %s", got)
	}
}
