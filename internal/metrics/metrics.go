// Package metrics owns the Prometheus collectors of the server, the feed
// pollers and the ingest sources. All methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "incidents"

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	reg *prometheus.Registry

	tailRequests      *prometheus.CounterVec
	tailItems         *prometheus.CounterVec
	tailLatency       *prometheus.HistogramVec
	bootstrapRequests *prometheus.CounterVec

	feedPolls    *prometheus.CounterVec
	feedReceived *prometheus.CounterVec

	lifecycleSize   *prometheus.GaugeVec
	lifecyclePruned *prometheus.CounterVec

	storageLatency *prometheus.HistogramVec
	storageErrors  *prometheus.CounterVec
	pebbleCommit   prometheus.Histogram
	pebbleRead     prometheus.Histogram

	ingestAppended *prometheus.CounterVec
	ingestErrors   *prometheus.CounterVec
}

// New registers every collector on a fresh registry, plus the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		tailRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "tail_requests_total",
			Help: "Tail queries served, by category and outcome.",
		}, []string{"category", "outcome"}),
		tailItems: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "tail_items_total",
			Help: "Records returned by tail queries.",
		}, []string{"category"}),
		tailLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "tail_duration_seconds",
			Help:    "Tail query latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"category"}),
		bootstrapRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "bootstrap_requests_total",
			Help: "Bootstrap lookups served, by category and outcome.",
		}, []string{"category", "outcome"}),
		feedPolls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "feed", Name: "polls_total",
			Help: "Feed poll cycles by resulting status.",
		}, []string{"category", "status"}),
		feedReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "feed", Name: "received_total",
			Help: "Events received by feed pollers.",
		}, []string{"category"}),
		lifecycleSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "lifecycle", Name: "entries",
			Help: "Live entries in the lifecycle cache.",
		}, []string{"category"}),
		lifecyclePruned: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "lifecycle", Name: "pruned_total",
			Help: "Lifecycle entries removed, by reason (expired, evicted).",
		}, []string{"category", "reason"}),
		storageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "storage", Name: "op_duration_seconds",
			Help:    "Storage operation latency.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"backend", "op"}),
		storageErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "storage", Name: "errors_total",
			Help: "Failed storage operations.",
		}, []string{"backend", "op"}),
		pebbleCommit: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "pebble", Name: "commit_duration_seconds",
			Help:    "Pebble batch commit latency.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		pebbleRead: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "pebble", Name: "read_duration_seconds",
			Help:    "Pebble point read latency.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
		}),
		ingestAppended: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ingest", Name: "appended_total",
			Help: "Documents appended by ingest sources.",
		}, []string{"source", "category"}),
		ingestErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ingest", Name: "errors_total",
			Help: "Ingest failures by source.",
		}, []string{"source"}),
	}
}

// Registry exposes the underlying registry (tests, extra collectors).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveTail records one tail query.
func (m *Metrics) ObserveTail(category, outcome string, items int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.tailRequests.WithLabelValues(category, outcome).Inc()
	if items > 0 {
		m.tailItems.WithLabelValues(category).Add(float64(items))
	}
	m.tailLatency.WithLabelValues(category).Observe(elapsed.Seconds())
}

// ObserveBootstrap records one bootstrap lookup.
func (m *Metrics) ObserveBootstrap(category, outcome string) {
	if m == nil {
		return
	}
	m.bootstrapRequests.WithLabelValues(category, outcome).Inc()
}

// ObservePoll records one feed poll cycle.
func (m *Metrics) ObservePoll(category, status string, received int) {
	if m == nil {
		return
	}
	m.feedPolls.WithLabelValues(category, status).Inc()
	if received > 0 {
		m.feedReceived.WithLabelValues(category).Add(float64(received))
	}
}

// ObservePrune records one lifecycle prune pass.
func (m *Metrics) ObservePrune(category string, expired, evicted, size int) {
	if m == nil {
		return
	}
	if expired > 0 {
		m.lifecyclePruned.WithLabelValues(category, "expired").Add(float64(expired))
	}
	if evicted > 0 {
		m.lifecyclePruned.WithLabelValues(category, "evicted").Add(float64(evicted))
	}
	m.lifecycleSize.WithLabelValues(category).Set(float64(size))
}

// ObserveStorage implements storage.ReadHook.
func (m *Metrics) ObserveStorage(backend, op string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.storageLatency.WithLabelValues(backend, op).Observe(elapsed.Seconds())
	if err != nil {
		m.storageErrors.WithLabelValues(backend, op).Inc()
	}
}

// ObserveRead implements pebblestore.MetricsHook.
func (m *Metrics) ObserveRead(elapsed time.Duration, _ int) {
	if m == nil {
		return
	}
	m.pebbleRead.Observe(elapsed.Seconds())
}

// ObserveBatchCommit implements pebblestore.MetricsHook.
func (m *Metrics) ObserveBatchCommit(elapsed time.Duration, _ int, _ int) {
	if m == nil {
		return
	}
	m.pebbleCommit.Observe(elapsed.Seconds())
}

// ObserveIngest records an ingest append attempt.
func (m *Metrics) ObserveIngest(source, category string, n int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ingestErrors.WithLabelValues(source).Inc()
		return
	}
	m.ingestAppended.WithLabelValues(source, category).Add(float64(n))
}
