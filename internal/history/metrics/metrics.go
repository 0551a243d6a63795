package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the change history.
type Metrics struct {
	EntriesRecorded *prometheus.CounterVec
	RecordDuration  prometheus.Histogram
	OutboxPublished prometheus.Counter
	OutboxFailures  prometheus.Counter
}

// New registers history metrics with reg (prometheus.DefaultRegisterer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		EntriesRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contracts_history_entries_total",
			Help: "Change-history entries recorded, by change type",
		}, []string{"change_type"}),
		RecordDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "contracts_history_record_duration_seconds",
			Help:    "Duration of history appends inside the caller's transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "contracts_history_outbox_published_total",
			Help: "Outbox rows published to the change feed",
		}),
		OutboxFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "contracts_history_outbox_failures_total",
			Help: "Failed outbox publish attempts",
		}),
	}
}

// IncrementRecorded counts one entry of the given change type.
func (m *Metrics) IncrementRecorded(changeType string) {
	m.EntriesRecorded.WithLabelValues(changeType).Inc()
}

// ObserveRecord records the duration of an append.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRecord(start time.Time) {
	m.RecordDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) AddPublished(n int) {
	m.OutboxPublished.Add(float64(n))
}

func (m *Metrics) IncrementPublishFailure() {
	m.OutboxFailures.Inc()
}
