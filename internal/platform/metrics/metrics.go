// Package metrics は Prometheus のメトリクスを定義します。
// すべてデフォルトレジストリに登録され、/metrics で公開されます。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal counts evaluation cycles by result (ok, aborted).
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_alerts_cycles_total",
			Help: "Total number of alert evaluation cycles",
		},
		[]string{"result"},
	)
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stock_alerts_cycle_duration_seconds",
			Help:    "Alert evaluation cycle duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)
	// EvaluatedTotal counts per-alert outcomes (idle, triggered, raced, insufficient, error).
	EvaluatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_alerts_evaluated_total",
			Help: "Total number of evaluated alerts by outcome",
		},
		[]string{"outcome"},
	)

	BrokerPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stock_alerts_broker_published_total",
			Help: "Total number of events enqueued to connections",
		},
	)
	BrokerDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stock_alerts_broker_dropped_total",
			Help: "Total number of queued events dropped by backpressure",
		},
	)
	BrokerConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stock_alerts_broker_connections",
			Help: "Live broker connections",
		},
	)
	BrokerTopics = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stock_alerts_broker_topics",
			Help: "Topics with at least one subscriber",
		},
	)
	BrokerForcedDisconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stock_alerts_broker_forced_disconnects_total",
			Help: "Total number of connections disconnected for being degraded",
		},
	)
)

// Outcome labels for EvaluatedTotal.
const (
	OutcomeIdle         = "idle"
	OutcomeTriggered    = "triggered"
	OutcomeRaced        = "raced"
	OutcomeInsufficient = "insufficient"
	OutcomeError        = "error"
)
