// Package metrics provides Prometheus metrics for the app builder.
// Exports HTTP, completion, agent, workflow, cache, WebSocket and key
// verification metrics.
package metrics

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	instance *Metrics

	labelSanitizer = regexp.MustCompile(`[^a-z0-9_-]+`)
)

// Metrics holds all Prometheus metric collectors
type Metrics struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	HTTPResponseSize     *prometheus.HistogramVec

	// Completion Metrics
	CompletionRequestsTotal  *prometheus.CounterVec
	CompletionDuration       *prometheus.HistogramVec
	CompletionTokensUsed     *prometheus.CounterVec
	CompletionsInFlight      *prometheus.GaugeVec
	CompletionStreamedChunks *prometheus.CounterVec

	// Agent Metrics
	AgentAttemptsTotal *prometheus.CounterVec
	AgentDuration      *prometheus.HistogramVec
	AgentFallbacks     *prometheus.CounterVec

	// Workflow Metrics
	WorkflowsTotal   *prometheus.CounterVec
	WorkflowDuration *prometheus.HistogramVec
	WorkflowsActive  prometheus.Gauge
	ProjectsByStatus *prometheus.GaugeVec
	PreviewRenders   *prometheus.CounterVec

	// Cache Metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// WebSocket Metrics
	WebSocketConnectionsGauge prometheus.Gauge
	WebSocketMessagesTotal    *prometheus.CounterVec

	// Key verification
	KeyVerificationsTotal *prometheus.CounterVec

	// System Metrics
	BuildInfo   *prometheus.GaugeVec
	StartupTime prometheus.Gauge
}

// Get returns the singleton Metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = newMetrics()
	})
	return instance
}

// newMetrics creates and registers all Prometheus metrics
func newMetrics() *Metrics {
	m := &Metrics{}

	// HTTP Metrics
	m.HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appbuilder",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by endpoint, method, and status code",
		},
		[]string{"endpoint", "method", "status"},
	)

	m.HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "appbuilder",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint", "method"},
	)

	m.HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "appbuilder",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)

	m.HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "appbuilder",
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"endpoint"},
	)

	// Completion Metrics
	m.CompletionRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appbuilder",
			Subsystem: "completion",
			Name:      "requests_total",
			Help:      "Total completion requests by provider, mode, and outcome",
		},
		[]string{"provider", "mode", "outcome"},
	)

	m.CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "appbuilder",
			Subsystem: "completion",
			Name:      "duration_seconds",
			Help:      "Completion request latency in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"provider", "mode"},
	)

	m.CompletionTokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appbuilder",
			Subsystem: "completion",
			Name:      "tokens_total",
			Help:      "Tokens consumed by provider and direction",
		},
		[]string{"provider", "direction"},
	)

	m.CompletionsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "appbuilder",
			Subsystem: "completion",
			Name:      "in_flight",
			Help:      "Completion requests currently waiting on a provider",
		},
		[]string{"provider"},
	)

	m.CompletionStreamedChunks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appbuilder",
			Subsystem: "completion",
			Name:      "stream_chunks_total",
			Help:      "Streamed content chunks delivered by provider",
		},
		[]string{"provider"},
	)

	// Agent Metrics
	m.AgentAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appbuilder",
			Subsystem: "agent",
			Name:      "attempts_total",
			Help:      "Agent execution attempts by role and outcome",
		},
		[]string{"role", "outcome"},
	)

	m.AgentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "appbuilder",
			Subsystem: "agent",
			Name:      "duration_seconds",
			Help:      "Agent execution time in seconds",
			Buckets:   []float64{.5, 1, 2, 5, 10, 20, 40, 80, 160},
		},
		[]string{"role"},
	)

	m.AgentFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appbuilder",
			Subsystem: "agent",
			Name:      "fallbacks_total",
			Help:      "Agent outputs produced from canned data, by role and reason",
		},
		[]string{"role", "reason"},
	)

	// Workflow Metrics
	m.WorkflowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appbuilder",
			Subsystem: "workflow",
			Name:      "runs_total",
			Help:      "Workflow runs by final status",
		},
		[]string{"status"},
	)

	m.WorkflowDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "appbuilder",
			Subsystem: "workflow",
			Name:      "duration_seconds",
			Help:      "End-to-end workflow duration in seconds",
			Buckets:   []float64{5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"status"},
	)

	m.WorkflowsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "appbuilder",
			Subsystem: "workflow",
			Name:      "active",
			Help:      "Workflows currently running",
		},
	)

	m.ProjectsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "appbuilder",
			Subsystem: "workflow",
			Name:      "projects",
			Help:      "Persisted projects by status",
		},
		[]string{"status"},
	)

	m.PreviewRenders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appbuilder",
			Subsystem: "preview",
			Name:      "renders_total",
			Help:      "Preview documents rendered by archetype",
		},
		[]string{"archetype"},
	)

	// Cache Metrics
	m.CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appbuilder",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache"},
	)

	m.CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appbuilder",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache"},
	)

	// WebSocket Metrics
	m.WebSocketConnectionsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "appbuilder",
			Subsystem: "websocket",
			Name:      "connections",
			Help:      "Number of active WebSocket connections",
		},
	)

	m.WebSocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appbuilder",
			Subsystem: "websocket",
			Name:      "messages_total",
			Help:      "WebSocket messages by type and direction",
		},
		[]string{"type", "direction"},
	)

	// Key verification
	m.KeyVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appbuilder",
			Subsystem: "keys",
			Name:      "verifications_total",
			Help:      "API key verifications by service and result",
		},
		[]string{"service", "result"},
	)

	// System Metrics
	m.BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "appbuilder",
			Subsystem: "system",
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "environment"},
	)

	m.StartupTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "appbuilder",
			Subsystem: "system",
			Name:      "startup_time_seconds",
			Help:      "Unix timestamp of process start",
		},
	)

	m.StartupTime.Set(float64(time.Now().Unix()))

	return m
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(endpoint, method string, statusCode int, duration time.Duration, responseSize int) {
	status := statusCodeToLabel(statusCode)
	m.HTTPRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(endpoint, method).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(endpoint).Observe(float64(responseSize))
}

// RecordCompletion records one completion request
func (m *Metrics) RecordCompletion(provider, mode string, err error, duration time.Duration, promptTokens, completionTokens int) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.CompletionRequestsTotal.WithLabelValues(provider, mode, outcome).Inc()
	m.CompletionDuration.WithLabelValues(provider, mode).Observe(duration.Seconds())
	if promptTokens > 0 {
		m.CompletionTokensUsed.WithLabelValues(provider, "input").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.CompletionTokensUsed.WithLabelValues(provider, "output").Add(float64(completionTokens))
	}
}

// RecordAgentAttempt records a single agent attempt
func (m *Metrics) RecordAgentAttempt(role, outcome string, duration time.Duration) {
	m.AgentAttemptsTotal.WithLabelValues(sanitizeLabel(role, "unknown"), sanitizeLabel(outcome, "unknown")).Inc()
	m.AgentDuration.WithLabelValues(sanitizeLabel(role, "unknown")).Observe(duration.Seconds())
}

// RecordAgentFallback records that canned data replaced a model response
func (m *Metrics) RecordAgentFallback(role, reason string) {
	m.AgentFallbacks.WithLabelValues(sanitizeLabel(role, "unknown"), sanitizeLabel(reason, "unknown")).Inc()
}

// RecordWorkflow records a finished workflow
func (m *Metrics) RecordWorkflow(status string, duration time.Duration) {
	label := sanitizeLabel(status, "unknown")
	m.WorkflowsTotal.WithLabelValues(label).Inc()
	m.WorkflowDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordPreviewRender records a rendered preview
func (m *Metrics) RecordPreviewRender(archetype string) {
	m.PreviewRenders.WithLabelValues(sanitizeLabel(archetype, "default")).Inc()
}

// RecordCacheOperation records a cache hit or miss
func (m *Metrics) RecordCacheOperation(cacheName string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cacheName).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cacheName).Inc()
	}
}

// RecordWebSocketConnection records a WebSocket connection change
func (m *Metrics) RecordWebSocketConnection(delta int) {
	m.WebSocketConnectionsGauge.Add(float64(delta))
}

// RecordWebSocketMessage records a WebSocket message
func (m *Metrics) RecordWebSocketMessage(msgType, direction string) {
	m.WebSocketMessagesTotal.WithLabelValues(sanitizeLabel(msgType, "unknown"), direction).Inc()
}

// RecordKeyVerification records an API key check
func (m *Metrics) RecordKeyVerification(service string, success bool) {
	result := "invalid"
	if success {
		result = "valid"
	}
	m.KeyVerificationsTotal.WithLabelValues(sanitizeLabel(service, "unknown"), result).Inc()
}

// SetBuildInfo sets build information
func (m *Metrics) SetBuildInfo(version, environment string) {
	m.BuildInfo.WithLabelValues(version, environment).Set(1)
}

// Helper function to convert status code to label
func statusCodeToLabel(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

func sanitizeLabel(raw, fallback string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return fallback
	}
	s = labelSanitizer.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return fallback
	}
	if len(s) > 63 {
		s = s[:63]
	}
	return s
}
