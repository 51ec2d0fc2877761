package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments exported at /metrics.
type Metrics struct {
	MessagesPublished *prometheus.CounterVec
	ToolCalls         *prometheus.CounterVec
	PlansByRisk       *prometheus.CounterVec
	RemindersFired    prometheus.Counter
	OperationLatency  *prometheus.HistogramVec
}

// NewMetrics registers the instruments on the given registerer. Pass
// prometheus.DefaultRegisterer in production; a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dex_messages_published_total",
			Help: "Messages published on the bus, by message type.",
		}, []string{"type"}),
		ToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dex_tool_calls_total",
			Help: "Tool dispatches, by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		PlansByRisk: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dex_plans_total",
			Help: "Plans produced, by risk level.",
		}, []string{"level"}),
		RemindersFired: factory.NewCounter(prometheus.CounterOpts{
			Name: "dex_reminders_fired_total",
			Help: "Reminders that reached their scheduled time and fired.",
		}),
		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dex_operation_duration_seconds",
			Help:    "Latency of pipeline operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}
