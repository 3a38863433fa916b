package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the desk's Prometheus collectors
type Metrics struct {
	registry *prometheus.Registry

	callsEnded      *prometheus.CounterVec
	activeCalls     prometheus.Gauge
	workspaceEvents *prometheus.CounterVec
	sdkState        prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	wsConnections prometheus.Gauge
	wsMessages    prometheus.Counter

	agentAPICalls *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the process-wide metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New creates a metrics set on its own registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		callsEnded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentdesk_calls_ended_total",
				Help: "Calls ended, by final status",
			},
			[]string{"status"},
		),
		activeCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agentdesk_active_calls",
			Help: "Contacts currently connected",
		}),
		workspaceEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentdesk_workspace_events_total",
				Help: "Events received from the agent workspace, by topic",
			},
			[]string{"topic"},
		),
		sdkState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agentdesk_workspace_ready",
			Help: "1 while the workspace session is ready",
		}),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentdesk_http_requests_total",
				Help: "HTTP requests, by route and status code",
			},
			[]string{"endpoint", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentdesk_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"endpoint"},
		),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agentdesk_websocket_active_connections",
			Help: "Open metrics stream connections",
		}),
		wsMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentdesk_websocket_messages_total",
			Help: "Messages broadcast on the metrics stream",
		}),
		agentAPICalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentdesk_agent_api_calls_total",
				Help: "Calls to the agent service, by operation and result",
			},
			[]string{"operation", "result"},
		),
	}

	m.registry.MustRegister(
		m.callsEnded,
		m.activeCalls,
		m.workspaceEvents,
		m.sdkState,
		m.httpRequests,
		m.httpDuration,
		m.wsConnections,
		m.wsMessages,
		m.agentAPICalls,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordCallEnded counts a finished call by its status
func (m *Metrics) RecordCallEnded(status string) {
	m.callsEnded.WithLabelValues(status).Inc()
}

// SetActiveCalls sets the number of connected contacts
func (m *Metrics) SetActiveCalls(n int) {
	m.activeCalls.Set(float64(n))
}

// RecordWorkspaceEvent counts an event received from the workspace
func (m *Metrics) RecordWorkspaceEvent(topic string) {
	m.workspaceEvents.WithLabelValues(topic).Inc()
}

// SetWorkspaceReady records whether the workspace session is ready
func (m *Metrics) SetWorkspaceReady(ready bool) {
	if ready {
		m.sdkState.Set(1)
		return
	}
	m.sdkState.Set(0)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(endpoint string, statusCode int, duration time.Duration) {
	m.httpRequests.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordWebSocketConnect increments the open connection gauge
func (m *Metrics) RecordWebSocketConnect() {
	m.wsConnections.Inc()
}

// RecordWebSocketDisconnect decrements the open connection gauge
func (m *Metrics) RecordWebSocketDisconnect() {
	m.wsConnections.Dec()
}

// RecordWebSocketMessage counts a broadcast
func (m *Metrics) RecordWebSocketMessage() {
	m.wsMessages.Inc()
}

// RecordAgentAPICall counts an agent service call
func (m *Metrics) RecordAgentAPICall(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.agentAPICalls.WithLabelValues(operation, result).Inc()
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
