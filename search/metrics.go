package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Search outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeDegraded    = "degraded"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// Translation outcomes.
const (
	TranslationSkipped    = "skipped"
	TranslationTranslated = "translated"
	TranslationFailed     = "failed"
)

// Metrics holds the Prometheus metrics recorded by an Engine.
// A nil *Metrics records nothing.
type Metrics struct {
	SearchesTotal         *prometheus.CounterVec
	SubQueryFailuresTotal *prometheus.CounterVec
	SearchSeconds         prometheus.Histogram
	TranslationsTotal     *prometheus.CounterVec
}

// NewMetrics creates search metrics registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SearchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minutes_search_requests_total",
				Help: "Total hybrid searches by outcome",
			},
			[]string{"outcome"},
		),
		SubQueryFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minutes_search_subquery_failures_total",
				Help: "Sub-query failures by index",
			},
			[]string{"index"},
		),
		SearchSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "minutes_search_seconds",
				Help:    "End-to-end hybrid search latency",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),
		TranslationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minutes_search_translations_total",
				Help: "Query translations by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (m *Metrics) observeSearch(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(outcome).Inc()
	m.SearchSeconds.Observe(elapsed.Seconds())
}

func (m *Metrics) subQueryFailed(index string) {
	if m == nil {
		return
	}
	m.SubQueryFailuresTotal.WithLabelValues(index).Inc()
}

func (m *Metrics) translation(outcome string) {
	if m == nil {
		return
	}
	m.TranslationsTotal.WithLabelValues(outcome).Inc()
}
