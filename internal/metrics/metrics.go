// Package metrics exposes Prometheus collectors for exports and HTTP traffic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reportpdf"

// Export outcomes.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusInvalid = "invalid"
)

// Page outcomes.
const (
	PageRendered = "rendered"
	PageSkipped  = "skipped"
)

// Metrics holds all collectors, registered on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	ExportsTotal    *prometheus.CounterVec
	ExportDuration  *prometheus.HistogramVec
	PagesTotal      *prometheus.CounterVec
	ExportsInFlight prometheus.Gauge

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers the collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ExportsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Number of PDF exports by pipeline and status.",
		}, []string{"pipeline", "status"}),
		ExportDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_duration_seconds",
			Help:      "Duration of PDF exports.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"pipeline"}),
		PagesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Number of report pages processed by outcome.",
		}, []string{"pipeline", "outcome"}),
		ExportsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exports_in_flight",
			Help:      "Number of exports currently running.",
		}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ExportStarted marks an export as running. Call the returned function
// exactly once with the final status.
func (m *Metrics) ExportStarted(pipeline string) func(status string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	m.ExportsInFlight.Inc()
	return func(status string) {
		m.ExportsInFlight.Dec()
		m.ExportsTotal.WithLabelValues(pipeline, status).Inc()
		m.ExportDuration.WithLabelValues(pipeline).Observe(time.Since(start).Seconds())
	}
}

// PagesProcessed records how many pages an export rendered and skipped.
func (m *Metrics) PagesProcessed(pipeline string, rendered, skipped int) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(pipeline, PageRendered).Add(float64(rendered))
	m.PagesTotal.WithLabelValues(pipeline, PageSkipped).Add(float64(skipped))
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
