package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks addendum page retrieval.
type Metrics struct {
	FetchDuration prometheus.Histogram
	FetchErrors   prometheus.Counter
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
}

// New registers addendum metrics with reg (prometheus.DefaultRegisterer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "contracts_addendum_fetch_duration_seconds",
			Help:    "Duration of addendum page downloads (cache misses only)",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		FetchErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "contracts_addendum_fetch_errors_total",
			Help: "Failed addendum page downloads",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "contracts_addendum_cache_hits_total",
			Help: "Addendum pages served from cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "contracts_addendum_cache_misses_total",
			Help: "Addendum pages not found in cache",
		}),
	}
}

// ObserveFetch records a download.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveFetch(start time.Time, err error) {
	m.FetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.FetchErrors.Inc()
	}
}

func (m *Metrics) IncrementCacheHit() {
	m.CacheHits.Inc()
}

func (m *Metrics) IncrementCacheMiss() {
	m.CacheMisses.Inc()
}
