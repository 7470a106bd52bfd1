package app

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for governance operations.
type Metrics struct {
	transactions       *prometheus.CounterVec
	decisions          *prometheus.CounterVec
	rejections         *prometheus.CounterVec
	resolutionDuration prometheus.Histogram
	votes              prometheus.Counter
}

// NewMetrics creates the collectors and registers them with registerer.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	metrics := &Metrics{
		transactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "molt_governance_equity_transactions_total",
				Help: "Equity ledger transactions appended, by type",
			},
			[]string{"type"},
		),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "molt_governance_decisions_total",
				Help: "Decisions reaching a status, by status",
			},
			[]string{"status"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "molt_governance_rejections_total",
				Help: "Domain rejections, by operation and code",
			},
			[]string{"operation", "code"},
		),
		resolutionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "molt_governance_resolution_duration_seconds",
				Help:    "Time spent resolving and closing one decision",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
		),
		votes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "molt_governance_votes_total",
				Help: "Votes accepted",
			},
		),
	}
	if registerer == nil {
		return metrics, nil
	}
	for _, collector := range []prometheus.Collector{
		metrics.transactions,
		metrics.decisions,
		metrics.rejections,
		metrics.resolutionDuration,
		metrics.votes,
	} {
		if err := registerer.Register(collector); err != nil {
			return nil, fmt.Errorf("register governance metrics: %w", err)
		}
	}
	return metrics, nil
}

func (m *Metrics) transaction(txType string) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(txType).Inc()
}

func (m *Metrics) decision(status string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(status).Inc()
}

func (m *Metrics) rejection(operation, code string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(operation, code).Inc()
}

func (m *Metrics) vote() {
	if m == nil {
		return
	}
	m.votes.Inc()
}

func (m *Metrics) observeResolution(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.resolutionDuration.Observe(elapsed.Seconds())
}
