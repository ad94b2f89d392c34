// Package metrics exposes Prometheus collectors for the offline queue.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	syncpkg "github.com/kimhsiao/splitledger/client/internal/sync"
)

const namespace = "ledgerq"

// Metrics holds the queue collectors and the registry they are exposed from.
type Metrics struct {
	Registry *prometheus.Registry

	queueDepth     prometheus.Gauge
	historyEntries prometheus.Gauge
	drains         *prometheus.CounterVec
	submissions    *prometheus.CounterVec
	drainDuration  prometheus.Histogram
}

// New creates and registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Number of writes waiting in the offline queue.",
		}),
		historyEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_entries",
			Help:      "Number of entries retained in the sync history.",
		}),
		drains: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drains_total",
			Help:      "Queue drains by outcome.",
		}, []string{"outcome"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Queued item submissions by endpoint and result.",
		}, []string{"endpoint", "result"}),
		drainDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "drain_duration_seconds",
			Help:      "Duration of queue drains that attempted a submission.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}),
	}
	m.Registry.MustRegister(
		m.queueDepth,
		m.historyEntries,
		m.drains,
		m.submissions,
		m.drainDuration,
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// SetQueueDepth records the current queue length. It matches the queue
// observer signature.
func (m *Metrics) SetQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

// SetHistoryEntries records the current history length. It matches the
// history observer signature.
func (m *Metrics) SetHistoryEntries(n int) {
	m.historyEntries.Set(float64(n))
}

// RecordOffline counts a drain skipped for lack of connectivity.
func (m *Metrics) RecordOffline() {
	m.drains.WithLabelValues("offline").Inc()
}

// OnSyncEvent updates counters from drain events.
func (m *Metrics) OnSyncEvent(event syncpkg.SyncEvent) {
	switch event.Type {
	case syncpkg.SyncEventItem:
		m.submissions.WithLabelValues(event.Endpoint, "success").Inc()
	case syncpkg.SyncEventHalted:
		result := "failed"
		if event.Result != nil {
			switch event.Result.Reason {
			case syncpkg.HaltStore:
				// Accepted by the server; only the local removal failed.
				result = "success"
			case syncpkg.HaltNone:
			default:
				result = string(event.Result.Reason)
			}
		}
		m.submissions.WithLabelValues(event.Endpoint, result).Inc()
		m.drains.WithLabelValues("halted").Inc()
		m.observeDuration(event)
	case syncpkg.SyncEventCompleted:
		m.drains.WithLabelValues("completed").Inc()
		m.observeDuration(event)
	case syncpkg.SyncEventOffline:
		m.RecordOffline()
	}
}

func (m *Metrics) observeDuration(event syncpkg.SyncEvent) {
	if event.Result == nil || event.Result.StartTime.IsZero() || event.Timestamp.IsZero() {
		return
	}
	m.drainDuration.Observe(event.Timestamp.Sub(event.Result.StartTime).Seconds())
}
