package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels for parsed contracts.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

// Metrics tracks contract parsing and import.
type Metrics struct {
	ContractsParsed   *prometheus.CounterVec
	ParseDuration     prometheus.Histogram
	ContractsImported prometheus.Counter
}

// New registers contract metrics with reg (prometheus.DefaultRegisterer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		ContractsParsed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contracts_parsed_total",
			Help: "Contract emails parsed, by result",
		}, []string{"result"}),
		ParseDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "contracts_parse_duration_seconds",
			Help:    "Duration of contract email parsing, excluding addendum fetches",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ContractsImported: factory.NewCounter(prometheus.CounterOpts{
			Name: "contracts_imported_total",
			Help: "Contracts imported into orders",
		}),
	}
}

// ObserveParse records one parse outcome.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveParse(start time.Time, result string) {
	m.ParseDuration.Observe(time.Since(start).Seconds())
	m.ContractsParsed.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementImported() {
	m.ContractsImported.Inc()
}
