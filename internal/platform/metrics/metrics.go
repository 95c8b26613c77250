package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	PatientsCreatedTotal prometheus.Counter
	PatientsUpdatedTotal prometheus.Counter
	PatientsDeactivated  prometheus.Counter
	DuplicateConflicts   prometheus.Counter
	PhotoCleanupFailures prometheus.Counter
	RecordStatusChanges  *prometheus.CounterVec
	RecordExportsTotal   prometheus.Counter

	registry *prometheus.Registry
}

// NewCollector registers every metric on a private registry so tests can
// build as many collectors as they like.
func NewCollector(serviceName string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Collector{
		registry: reg,

		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: f.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		PatientsCreatedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "patients",
			Name:      "created_total",
			Help:      "Total number of patient records created.",
		}),

		PatientsUpdatedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "patients",
			Name:      "updated_total",
			Help:      "Total number of patient records updated.",
		}),

		PatientsDeactivated: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "patients",
			Name:      "deactivated_total",
			Help:      "Total number of patients soft-deleted.",
		}),

		DuplicateConflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "patients",
			Name:      "duplicate_conflicts_total",
			Help:      "Intake submissions rejected as potential duplicates.",
		}),

		PhotoCleanupFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "patients",
			Name:      "photo_cleanup_failures_total",
			Help:      "Photo files that could not be deleted. Alert if growing.",
		}),

		RecordStatusChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "records",
			Name:      "status_changes_total",
			Help:      "Appointment status transitions by new status.",
		}, []string{"status"}),

		RecordExportsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "records",
			Name:      "exports_total",
			Help:      "Spreadsheet exports generated.",
		}),
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
