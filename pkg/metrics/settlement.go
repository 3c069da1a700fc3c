package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records outcomes of settlement runs.
type SettlementMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
	credited *prometheus.CounterVec
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settlement_duration_seconds",
		Help:    "Duration of settlement runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_runs_total",
		Help: "Settlement runs by outcome.",
	}, []string{"outcome"})
	credited := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_credited_amount",
		Help: "Amounts credited by settlement, by wallet side.",
	}, []string{"side"})
	reg.MustRegister(duration, outcomes, credited)
	return &SettlementMetrics{
		duration: duration,
		outcomes: outcomes,
		credited: credited,
	}
}

// Outcome labels used by the settlement coordinator.
const (
	OutcomeSettled         = "settled"
	OutcomeSkipped         = "skipped"
	OutcomeAlreadyCredited = "already_credited"
	OutcomePOS             = "pos"
	OutcomeFailed          = "failed"
)

// ObserveRun records one finished settlement attempt.
func (m *SettlementMetrics) ObserveRun(outcome string, elapsed time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	label := normalizeLabel(outcome)
	m.duration.WithLabelValues(label).Observe(elapsed.Seconds())
	m.outcomes.WithLabelValues(label).Inc()
}

// AddCredited accumulates the credited amount for a wallet side.
func (m *SettlementMetrics) AddCredited(side string, amount float64) {
	if m == nil || m.credited == nil || amount <= 0 {
		return
	}
	m.credited.WithLabelValues(normalizeLabel(side)).Add(amount)
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return strings.ReplaceAll(value, " ", "_")
}
