package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector defines the interface for metrics collection
type Collector interface {
	ConnectionOpened()
	ConnectionClosed()
	DuplicateSession()

	MessageReceived(messageType string)
	UnknownMessage()
	ChatMessage()
	AudioFrame(sizeBytes int)
	BroadcastDropped()

	// Handler returns an HTTP handler for the metrics endpoint
	Handler() http.Handler
}

// PrometheusCollector implements the Collector interface using Prometheus
type PrometheusCollector struct {
	activeConnections prometheus.Gauge
	connectionsTotal  prometheus.Counter
	duplicateSessions prometheus.Counter

	messagesReceived *prometheus.CounterVec
	unknownMessages  prometheus.Counter
	chatMessages     prometheus.Counter
	audioFrames      prometheus.Counter
	audioBytes       prometheus.Counter
	broadcastDrops   prometheus.Counter
}

// NewPrometheusCollector creates a new PrometheusCollector
func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		activeConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lobby_active_connections",
			Help: "Number of active WebSocket connections",
		}),
		connectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lobby_connections_total",
			Help: "Total number of accepted WebSocket connections",
		}),
		duplicateSessions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lobby_duplicate_sessions_total",
			Help: "Total number of handshakes rejected as duplicate sessions",
		}),
		messagesReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lobby_messages_received_total",
			Help: "Total number of messages received by type",
		}, []string{"type"}),
		unknownMessages: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lobby_unknown_messages_total",
			Help: "Total number of messages dropped for an unknown type",
		}),
		chatMessages: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lobby_chat_messages_total",
			Help: "Total number of chat messages relayed",
		}),
		audioFrames: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lobby_audio_frames_total",
			Help: "Total number of audio frames relayed",
		}),
		audioBytes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lobby_audio_bytes_total",
			Help: "Total audio payload bytes relayed",
		}),
		broadcastDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lobby_broadcast_dropped_total",
			Help: "Total number of frames dropped to slow consumers",
		}),
	}
}

func (c *PrometheusCollector) ConnectionOpened() {
	c.activeConnections.Inc()
	c.connectionsTotal.Inc()
}

func (c *PrometheusCollector) ConnectionClosed() {
	c.activeConnections.Dec()
}

func (c *PrometheusCollector) DuplicateSession() {
	c.duplicateSessions.Inc()
}

func (c *PrometheusCollector) MessageReceived(messageType string) {
	c.messagesReceived.WithLabelValues(messageType).Inc()
}

func (c *PrometheusCollector) UnknownMessage() {
	c.unknownMessages.Inc()
}

func (c *PrometheusCollector) ChatMessage() {
	c.chatMessages.Inc()
}

func (c *PrometheusCollector) AudioFrame(sizeBytes int) {
	c.audioFrames.Inc()
	c.audioBytes.Add(float64(sizeBytes))
}

func (c *PrometheusCollector) BroadcastDropped() {
	c.broadcastDrops.Inc()
}

func (c *PrometheusCollector) Handler() http.Handler {
	return promhttp.Handler()
}

// NopCollector discards all metrics. Used in tests.
type NopCollector struct{}

func NewNop() *NopCollector { return &NopCollector{} }

func (*NopCollector) ConnectionOpened()      {}
func (*NopCollector) ConnectionClosed()      {}
func (*NopCollector) DuplicateSession()      {}
func (*NopCollector) MessageReceived(string) {}
func (*NopCollector) UnknownMessage()        {}
func (*NopCollector) ChatMessage()           {}
func (*NopCollector) AudioFrame(int)         {}
func (*NopCollector) BroadcastDropped()      {}
func (*NopCollector) Handler() http.Handler  { return http.NotFoundHandler() }
