// Package metrics exposes Prometheus instruments for imports and insight calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/ad-tracker/watch-history-analyzer-go/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "watch_history"

// Import results.
const (
	ResultSuccess = "success"
	ResultInvalid = "invalid"
	ResultFailed  = "failed"
)

// Metrics holds all instruments on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry         *prometheus.Registry
	imports          *prometheus.CounterVec
	records          *prometheus.CounterVec
	fragmentFailures prometheus.Counter
	importDuration   prometheus.Histogram
	snapshotEntries  prometheus.Gauge
	insights         *prometheus.CounterVec
	insightDuration  *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
}

// New registers every instrument plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		imports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "History document imports by result.",
		}, []string{"result"}),
		records: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Extracted records by normalization outcome.",
		}, []string{"outcome"}),
		fragmentFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fragment_failures_total",
			Help:      "Record-shaped fragments that could not be extracted.",
		}),
		importDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "Time spent parsing and aggregating one document.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		snapshotEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_entries",
			Help:      "Entries in the current snapshot.",
		}),
		insights: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insight_requests_total",
			Help:      "Insight generator calls by operation and status.",
		}, []string{"operation", "status"}),
		insightDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "insight_duration_seconds",
			Help:      "Insight generator call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insight_cache_lookups_total",
			Help:      "Insight cache lookups by tier that answered.",
		}, []string{"tier"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveImport records one import attempt.
func (m *Metrics) ObserveImport(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(result).Inc()
	if result == ResultSuccess {
		m.importDuration.Observe(d.Seconds())
	}
}

// ObserveReport adds one import's record outcomes.
func (m *Metrics) ObserveReport(r models.ImportReport) {
	if m == nil {
		return
	}
	m.records.WithLabelValues("accepted").Add(float64(r.Accepted))
	m.records.WithLabelValues("noise").Add(float64(r.Noise))
	m.records.WithLabelValues("invalid_date").Add(float64(r.InvalidDates))
	m.fragmentFailures.Add(float64(r.Failures))
}

// SetSnapshotEntries updates the current snapshot size.
func (m *Metrics) SetSnapshotEntries(n int) {
	if m == nil {
		return
	}
	m.snapshotEntries.Set(float64(n))
}

// ObserveInsight records one generator call.
func (m *Metrics) ObserveInsight(operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.insights.WithLabelValues(operation, status).Inc()
	m.insightDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// CacheLookup records which cache tier answered, or "miss".
func (m *Metrics) CacheLookup(tier string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(tier).Inc()
}
