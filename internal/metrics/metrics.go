// Package metrics exposes Prometheus instrumentation for the dashboard.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Platform API metrics
	APICallsTotal   *prometheus.CounterVec
	APICallDuration *prometheus.HistogramVec

	// Warehouse metrics
	QueryDuration       *prometheus.HistogramVec
	QueryErrorsTotal    *prometheus.CounterVec
	ProcedureCallsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentdash_http_requests_total",
				Help: "Total number of dashboard HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentdash_http_request_duration_seconds",
				Help:    "Duration of dashboard HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		APICallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentdash_api_calls_total",
				Help: "Total number of agents REST API calls",
			},
			[]string{"operation", "status"},
		),
		APICallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentdash_api_call_duration_seconds",
				Help:    "Duration of agents REST API calls in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
			},
			[]string{"operation"},
		),

		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentdash_query_duration_seconds",
				Help:    "Duration of analytical warehouse queries in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"query"},
		),
		QueryErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentdash_query_errors_total",
				Help: "Total number of failed analytical queries",
			},
			[]string{"query"},
		),
		ProcedureCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentdash_procedure_calls_total",
				Help: "Total number of stored procedure calls by outcome",
			},
			[]string{"procedure", "status"},
		),
	}

	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.APICallsTotal,
		m.APICallDuration,
		m.QueryDuration,
		m.QueryErrorsTotal,
		m.ProcedureCallsTotal,
	)

	return m
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveAPICall records one agents API call. status is the HTTP status code,
// or "error" when no response was received.
func (m *Metrics) ObserveAPICall(operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.APICallsTotal.WithLabelValues(operation, status).Inc()
	m.APICallDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveQuery records one analytical query.
func (m *Metrics) ObserveQuery(query string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.QueryDuration.WithLabelValues(query).Observe(d.Seconds())
	if err != nil {
		m.QueryErrorsTotal.WithLabelValues(query).Inc()
	}
}

// ObserveProcedure records the outcome of a stored procedure call.
func (m *Metrics) ObserveProcedure(procedure string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ProcedureCallsTotal.WithLabelValues(procedure, status).Inc()
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
