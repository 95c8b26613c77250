package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewCollector_IndependentRegistries(t *testing.T) {
	// Two collectors with the same namespace must not collide.
	a := NewCollector("plural")
	b := NewCollector("plural")

	a.PatientsCreatedTotal.Inc()
	if got := testutil.ToFloat64(a.PatientsCreatedTotal); got != 1 {
		t.Errorf("expected 1, got %v", got)
	}
	if got := testutil.ToFloat64(b.PatientsCreatedTotal); got != 0 {
		t.Errorf("expected second collector untouched, got %v", got)
	}
}

func TestHandler_ExposesDomainMetrics(t *testing.T) {
	c := NewCollector("plural")
	c.DuplicateConflicts.Inc()
	c.RecordStatusChanges.WithLabelValues("Completed").Inc()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	for _, want := range []string{
		"plural_patients_duplicate_conflicts_total 1",
		`plural_records_status_changes_total{status="Completed"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
