package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emolearn/emolearn/backend/internal/model/chat"
	"github.com/emolearn/emolearn/backend/internal/model/emotion"
	"github.com/emolearn/emolearn/backend/internal/service/trigger"
)

const namespace = "emolearn"

// Metrics holds the Prometheus collectors for the assistant service. It
// implements assistant.Observer and assistant.SessionCounter.
type Metrics struct {
	registry *prometheus.Registry

	// Orchestrator metrics
	EmotionSignals *prometheus.CounterVec
	GateDecisions  *prometheus.CounterVec
	Transitions    *prometheus.CounterVec
	ReplyLatency   *prometheus.HistogramVec
	ActiveSessions prometheus.Gauge
	EventsDropped  *prometheus.CounterVec

	// WebSocket metrics
	WebSocketConnections prometheus.Gauge
	WebSocketMessages    *prometheus.CounterVec
	WebSocketThrottled   prometheus.Counter
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		EmotionSignals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emotion_signals_total",
			Help:      "Emotion labels received from the detector",
		}, []string{"emotion"}),

		GateDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trigger_decisions_total",
			Help:      "Trigger gate verdicts by action and reason",
		}, []string{"action", "reason"}),

		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assistant_transitions_total",
			Help:      "Assistant visibility transitions",
		}, []string{"from", "to"}),

		ReplyLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reply_duration_seconds",
			Help:      "Reply acquisition latency in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"mode", "outcome"}),

		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "assistant_sessions_active",
			Help:      "Assistant sessions held by the registry",
		}),

		EventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assistant_events_dropped_total",
			Help:      "Events dropped for subscribers that fell behind",
		}, []string{"type"}),

		WebSocketConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections_active",
			Help:      "Number of active WebSocket connections",
		}),

		WebSocketMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_messages_total",
			Help:      "WebSocket frames by type and direction",
		}, []string{"type", "direction"}), // direction: "inbound" or "outbound"

		WebSocketThrottled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_throttled_total",
			Help:      "Inbound WebSocket frames dropped by the rate limiter",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) EmotionObserved(sym emotion.Symbol) {
	m.EmotionSignals.WithLabelValues(sym.Label()).Inc()
}

func (m *Metrics) GateDecided(action trigger.Action, reason trigger.Reason) {
	m.GateDecisions.WithLabelValues(string(action), string(reason)).Inc()
}

func (m *Metrics) Transitioned(from, to chat.Visibility) {
	m.Transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) ReplyCompleted(mode chat.Mode, outcome string, elapsed time.Duration) {
	m.ReplyLatency.WithLabelValues(string(mode), outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) EventDropped(event string) {
	m.EventsDropped.WithLabelValues(event).Inc()
}

func (m *Metrics) SessionsActive(n int) {
	m.ActiveSessions.Set(float64(n))
}

// RecordWebSocketConnect records a new WebSocket connection
func (m *Metrics) RecordWebSocketConnect() {
	m.WebSocketConnections.Inc()
}

// RecordWebSocketDisconnect records a WebSocket disconnection
func (m *Metrics) RecordWebSocketDisconnect() {
	m.WebSocketConnections.Dec()
}

// RecordWebSocketMessage records a WebSocket frame
func (m *Metrics) RecordWebSocketMessage(msgType, direction string) {
	m.WebSocketMessages.WithLabelValues(msgType, direction).Inc()
}

// RecordWebSocketThrottled records a frame dropped by the rate limiter
func (m *Metrics) RecordWebSocketThrottled() {
	m.WebSocketThrottled.Inc()
}
