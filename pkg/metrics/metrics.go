// Package metrics holds the Prometheus collectors for the ingestion pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "receipt_intake"

// Metrics groups the pipeline collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	records     *prometheus.CounterVec
	failures    *prometheus.CounterVec
	ocrDuration prometheus.Histogram
	expenses    *prometheus.CounterVec
	cacheHits   prometheus.Counter
}

// New registers the collectors on a fresh registry along with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Canonical records produced, by source.",
		}, []string{"source"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Failed ingestions, by error kind.",
		}, []string{"kind"}),
		ocrDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ocr_duration_seconds",
			Help:      "Time spent in the OCR engine per image.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		expenses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expenses_total",
			Help:      "Categorized expenses emitted, by category.",
		}, []string{"category"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Uploads answered from the result cache.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.records, m.failures, m.ocrDuration, m.expenses, m.cacheHits,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordsProduced counts records emitted for a source.
func (m *Metrics) RecordsProduced(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.records.WithLabelValues(source).Add(float64(n))
}

// Failure counts a failed ingest by error kind.
func (m *Metrics) Failure(kind string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(kind).Inc()
}

// ObserveOCR records one OCR call. Failed calls are timed too.
func (m *Metrics) ObserveOCR(d time.Duration, _ error) {
	if m == nil {
		return
	}
	m.ocrDuration.Observe(d.Seconds())
}

// Expense counts one categorized expense.
func (m *Metrics) Expense(category string) {
	if m == nil {
		return
	}
	m.expenses.WithLabelValues(category).Inc()
}

// CacheHit counts an upload served from the result cache.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}
