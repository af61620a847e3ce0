// Package metrics provides Prometheus metrics for orgmark.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors, registered on a private registry so
// several servers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Store metrics
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec

	// Annotation metrics
	SnippetExtractionsTotal *prometheus.CounterVec
	AnnotationsSavedTotal   prometheus.Counter

	// Import metrics
	ImportRowsTotal *prometheus.CounterVec
	ImportQueueSize prometheus.Gauge
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.HTTPRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgmark_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.HTTPRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orgmark_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.StoreOperationsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgmark_store_operations_total",
			Help: "Total number of directory store operations",
		},
		[]string{"operation", "status"},
	)

	m.StoreOperationDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orgmark_store_operation_duration_seconds",
			Help:    "Duration of directory store operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	m.SnippetExtractionsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgmark_snippet_extractions_total",
			Help: "Snippet extractions by outcome (matched, empty, error)",
		},
		[]string{"outcome"},
	)

	m.AnnotationsSavedTotal = f.NewCounter(
		prometheus.CounterOpts{
			Name: "orgmark_annotations_saved_total",
			Help: "Total number of annotation writes",
		},
	)

	m.ImportRowsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgmark_import_rows_total",
			Help: "Imported employee rows by result",
		},
		[]string{"result"},
	)

	m.ImportQueueSize = f.NewGauge(
		prometheus.GaugeOpts{
			Name: "orgmark_import_queue_size",
			Help: "Import jobs waiting for a worker",
		},
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTP records a finished request.
func (m *Metrics) RecordHTTP(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, statusClass(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordStoreOp records a store call and its outcome.
func (m *Metrics) RecordStoreOp(op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.StoreOperationsTotal.WithLabelValues(op, status).Inc()
	m.StoreOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// RecordSnippet records one snippet extraction.
func (m *Metrics) RecordSnippet(snippet string, err error) {
	switch {
	case err != nil:
		m.SnippetExtractionsTotal.WithLabelValues("error").Inc()
	case snippet == "":
		m.SnippetExtractionsTotal.WithLabelValues("empty").Inc()
	default:
		m.SnippetExtractionsTotal.WithLabelValues("matched").Inc()
	}
}

// RecordImportRow records one processed import row.
func (m *Metrics) RecordImportRow(result string) {
	m.ImportRowsTotal.WithLabelValues(result).Inc()
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
