package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks order workspace mutations.
type Metrics struct {
	Mutations        *prometheus.CounterVec
	MutationDuration *prometheus.HistogramVec
	OrdersImported   *prometheus.CounterVec
	CustomersPurged  prometheus.Counter
}

// New registers order metrics with reg (prometheus.DefaultRegisterer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contracts_orders_mutations_total",
			Help: "Order workspace mutations, by operation and outcome",
		}, []string{"operation", "outcome"}),
		MutationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "contracts_orders_mutation_duration_seconds",
			Help:    "Duration of order workspace mutations including history writes",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		OrdersImported: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contracts_orders_imported_total",
			Help: "Contracts imported as orders, by mode (created or overwritten)",
		}, []string{"mode"}),
		CustomersPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "contracts_orders_customers_purged_total",
			Help: "Customers permanently deleted",
		}),
	}
}

// ObserveMutation records one mutation's outcome and duration.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveMutation(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Mutations.WithLabelValues(operation, outcome).Inc()
	m.MutationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementImported(mode string) {
	m.OrdersImported.WithLabelValues(mode).Inc()
}

func (m *Metrics) IncrementPurged() {
	m.CustomersPurged.Inc()
}
