package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	CommandsTotal   *prometheus.CounterVec
	FlowEvents      *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	RemindersSent   *prometheus.CounterVec
	SendFailures    prometheus.Counter
	HandlerFailures prometheus.Counter
	WSMessages      *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		CommandsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Chat commands dispatched, by command.",
		}, []string{"command"}),
		FlowEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flow_events_total",
			Help:      "Conversation flow lifecycle events by flow and event.",
		}, []string{"flow", "event"}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of in-progress conversation flows.",
		}),
		RemindersSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Birthday reminders sent, by look-ahead window.",
		}, []string{"window"}),
		SendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Outbound chat messages that could not be delivered.",
		}),
		HandlerFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_failures_total",
			Help:      "Unexpected failures recovered by the error reporter.",
		}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket chat messages by direction.",
		}, []string{"direction"}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
