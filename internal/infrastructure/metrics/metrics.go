// Package metrics registers the ledger's Prometheus instruments and adapts
// them to the measurement interface the use case layer records through.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. It implements
// usecase.MetricsRecorder.
type Metrics struct {
	// Ledger metrics
	EntriesAppended   *prometheus.CounterVec
	EntriesReversed   prometheus.Counter
	AppendDuration    *prometheus.HistogramVec
	AppendErrors      *prometheus.CounterVec
	RecomputeDuration *prometheus.HistogramVec

	// Outbox metrics
	EventsPublished prometheus.Counter
	PublishErrors   prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		EntriesAppended: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultledger_entries_appended_total",
				Help: "Total number of ledger entries appended by type",
			},
			[]string{"entry_type"},
		),
		EntriesReversed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vaultledger_entries_reversed_total",
			Help: "Total number of reversal entries appended",
		}),
		AppendDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vaultledger_append_duration_seconds",
				Help:    "Duration of append operations including recomputation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"entry_type"},
		),
		AppendErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultledger_append_errors_total",
				Help: "Total number of append errors by type",
			},
			[]string{"error_type"},
		),
		RecomputeDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vaultledger_recompute_duration_seconds",
				Help:    "Duration of derived-state recomputation by scope kind",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"scope_kind"},
		),
		EventsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vaultledger_outbox_events_published_total",
			Help: "Total number of outbox events published",
		}),
		PublishErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vaultledger_outbox_publish_errors_total",
			Help: "Total number of outbox publish errors",
		}),
	}
}

// ObserveAppend records the duration of one append.
func (m *Metrics) ObserveAppend(entryType string, seconds float64) {
	m.EntriesAppended.WithLabelValues(entryType).Inc()
	m.AppendDuration.WithLabelValues(entryType).Observe(seconds)
}

// ObserveRecompute records the duration of one scope recomputation.
func (m *Metrics) ObserveRecompute(scopeKind string, seconds float64) {
	m.RecomputeDuration.WithLabelValues(scopeKind).Observe(seconds)
}

// IncAppendError counts one failed append.
func (m *Metrics) IncAppendError(errType string) {
	m.AppendErrors.WithLabelValues(errType).Inc()
}
