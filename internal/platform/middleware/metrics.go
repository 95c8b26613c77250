package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/excelthedev/Plural-health/internal/platform/metrics"
)

// Metrics records request count, latency and in-flight requests labelled by
// route template so ids do not explode cardinality.
func Metrics(m *metrics.Collector) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Path() == "/metrics" {
				return next(c)
			}

			m.InFlightGauge.Inc()
			defer m.InFlightGauge.Dec()
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = statusOf(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			labels := []string{c.Request().Method, route, strconv.Itoa(status)}
			m.RequestsTotal.WithLabelValues(labels...).Inc()
			m.RequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())

			return err
		}
	}
}
