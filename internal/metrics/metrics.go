package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "stickers"

// Metrics exposes Prometheus collectors for sync runs and image resolution.
// All methods are safe on a nil receiver so callers may omit metrics.
type Metrics struct {
	syncRuns      *prometheus.CounterVec
	syncDuration  *prometheus.HistogramVec
	itemsSynced   *prometheus.CounterVec
	syncSkipped   *prometheus.CounterVec
	strategyTotal *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	placeholders  prometheus.Counter
}

// MustNewMetrics constructs and registers the collectors with reg.
// Pass a fresh prometheus.NewRegistry() in tests to avoid duplicate
// registration panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Sync runs by kind and terminal status.",
		}, []string{"kind", "status"}),
		syncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Wall time of sync runs.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"kind"}),
		itemsSynced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "items_total",
			Help:      "Stickers and collections written by sync runs.",
		}, []string{"kind"}),
		syncSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "skipped_total",
			Help:      "Sync triggers that did not run, by reason.",
		}, []string{"reason"}),
		strategyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "images",
			Name:      "strategy_attempts_total",
			Help:      "Image resolution strategy attempts by outcome.",
		}, []string{"strategy", "outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "images",
			Name:      "cache_lookups_total",
			Help:      "Image cache lookups by result.",
		}, []string{"result"}),
		placeholders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "images",
			Name:      "placeholders_total",
			Help:      "Requests answered with the placeholder image.",
		}),
	}
	reg.MustRegister(
		m.syncRuns,
		m.syncDuration,
		m.itemsSynced,
		m.syncSkipped,
		m.strategyTotal,
		m.cacheLookups,
		m.placeholders,
	)
	return m
}

// ObserveSync records a finished sync run.
func (m *Metrics) ObserveSync(kind, status string, items int, duration time.Duration) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(kind, status).Inc()
	m.syncDuration.WithLabelValues(kind).Observe(duration.Seconds())
	m.itemsSynced.WithLabelValues(kind).Add(float64(items))
}

// IncSyncSkipped counts a trigger that was throttled or overlapped.
func (m *Metrics) IncSyncSkipped(reason string) {
	if m == nil {
		return
	}
	m.syncSkipped.WithLabelValues(reason).Inc()
}

// ObserveStrategy records one image strategy attempt.
func (m *Metrics) ObserveStrategy(strategy, outcome string) {
	if m == nil {
		return
	}
	m.strategyTotal.WithLabelValues(strategy, outcome).Inc()
}

// ObserveCache records a cache hit or miss.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// IncPlaceholder counts a placeholder response.
func (m *Metrics) IncPlaceholder() {
	if m == nil {
		return
	}
	m.placeholders.Inc()
}
