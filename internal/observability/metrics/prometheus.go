// Package metrics provides Prometheus metrics for the assessment service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	ExtractionsTotal     *prometheus.CounterVec
	ExtractionDuration   prometheus.Histogram
	ExportsTotal         *prometheus.CounterVec
	RedFlagsDetected     *prometheus.CounterVec
	AssessmentsProcessed prometheus.Counter
	HTTPRequests         *prometheus.CounterVec
	HTTPDuration         *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates the metrics and registers them with reg. A nil reg uses a
// fresh registry, so tests and commands never collide on the global one.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		ExtractionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bilan_extractions_total",
			Help: "Documents extracted, by detected format and outcome",
		}, []string{"format", "outcome"}),
		ExtractionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bilan_extraction_duration_seconds",
			Help:    "Document extraction duration",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		ExportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bilan_exports_total",
			Help: "Records exported, by format and outcome",
		}, []string{"format", "outcome"}),
		RedFlagsDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bilan_red_flags_detected_total",
			Help: "Red flags detected in analyzed records",
		}, []string{"flag", "severity"}),
		AssessmentsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bilan_assessments_processed_total",
			Help: "Visit reports turned into timeline assessments",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bilan_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bilan_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.ExtractionsTotal,
		m.ExtractionDuration,
		m.ExportsTotal,
		m.RedFlagsDetected,
		m.AssessmentsProcessed,
		m.HTTPRequests,
		m.HTTPDuration,
	)

	return m
}

// Handler returns the Prometheus HTTP handler for the registry of m
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
