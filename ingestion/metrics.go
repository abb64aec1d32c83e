package ingestion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics recorded during ingestion.
// A nil *Metrics records nothing.
type Metrics struct {
	DocumentsTotal  *prometheus.CounterVec
	RemovalsTotal   *prometheus.CounterVec
	RetriesTotal    *prometheus.CounterVec
	EmbeddingsTotal *prometheus.CounterVec
}

// NewMetrics creates ingestion metrics registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		DocumentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minutes_index_documents_total",
				Help: "Documents indexed by outcome",
			},
			[]string{"outcome"},
		),
		RemovalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minutes_index_removals_total",
				Help: "Documents removed by outcome",
			},
			[]string{"outcome"},
		),
		RetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minutes_index_retries_total",
				Help: "Retried index writes by half",
			},
			[]string{"half"},
		),
		EmbeddingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minutes_embeddings_total",
				Help: "Embedding provider calls by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (m *Metrics) document(outcome string) {
	if m != nil {
		m.DocumentsTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) removal(outcome string) {
	if m != nil {
		m.RemovalsTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) retry(half string) {
	if m != nil {
		m.RetriesTotal.WithLabelValues(half).Inc()
	}
}

func (m *Metrics) embedding(outcome string) {
	if m != nil {
		m.EmbeddingsTotal.WithLabelValues(outcome).Inc()
	}
}
