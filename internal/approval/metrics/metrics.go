package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Transitions *prometheus.CounterVec
	SignOffs    *prometheus.CounterVec
	Conflicts   prometheus.Counter
}

// New registers approval metrics with reg (prometheus.DefaultRegisterer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contracts_approval_stage_transitions_total",
			Help: "Approval stage transitions, by source and target stage",
		}, []string{"from", "to"}),
		SignOffs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contracts_approval_signoffs_total",
			Help: "Approval sign-off changes, by party and action (sign, withdraw, cleared)",
		}, []string{"party", "action"}),
		Conflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "contracts_approval_version_conflicts_total",
			Help: "Approval writes rejected because of a concurrent modification",
		}),
	}
}

func (m *Metrics) IncrementTransition(from, to string) {
	m.Transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) IncrementSignOff(party, action string) {
	m.SignOffs.WithLabelValues(party, action).Inc()
}

func (m *Metrics) IncrementConflict() {
	m.Conflicts.Inc()
}
