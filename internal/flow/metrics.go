package flow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// flowOutcomes counts finished requests by category and terminal state.
	flowOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powerpulse_flow_outcomes_total",
			Help: "Handled requests by category and terminal state.",
		},
		[]string{"category", "state"},
	)

	// flowStageLat records per-stage latency (classify, generate, persist, dispatch).
	flowStageLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "powerpulse_flow_stage_duration_seconds",
			Help:    "Duration of each routing stage in seconds.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 40, 80, 120},
		},
		[]string{"stage"},
	)

	// flowDegradations counts absorbed failures: classification fallbacks,
	// persistence errors and stripped media.
	flowDegradations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powerpulse_flow_degradations_total",
			Help: "Failures absorbed by the router, by kind.",
		},
		[]string{"kind"},
	)

	// dispatchResults counts outbound attempts by result (sent, failed, skipped).
	dispatchResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "powerpulse_dispatch_total",
			Help: "Outbound replies by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(flowOutcomes, flowStageLat, flowDegradations, dispatchResults)
}

// Degradation kinds.
const (
	degradeClassification = "classification"
	degradePersistence    = "persistence"
	degradeMedia          = "media"
	degradeDeliveryRecord = "delivery_record"
)

func observeStage(stage string, start time.Time) {
	flowStageLat.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
