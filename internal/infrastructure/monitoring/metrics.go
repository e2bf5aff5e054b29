package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Preview metrics
	PreviewSessionsActive prometheus.Gauge
	RendersTotal          *prometheus.CounterVec
	RenderLatency         prometheus.Histogram
	ConsoleEntries        *prometheus.CounterVec
	BridgeDropped         *prometheus.CounterVec

	// Terminal metrics
	TerminalSessionsActive prometheus.Gauge
	CommandsTotal          *prometheus.CounterVec
	CommandDuration        *prometheus.HistogramVec
	CommandsRejected       prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ActivePreviews    int64   `json:"active_previews"`
	ActiveTerminals   int64   `json:"active_terminals"`
	ActiveConnections int64   `json:"active_connections"`
	TotalRenders      int64   `json:"total_renders"`
	TotalCommands     int64   `json:"total_commands"`
	AvgDurationMs     float64 `json:"avg_duration_ms"`
	UptimeSeconds     float64 `json:"uptime_seconds"`

	totalDuration float64
}

// NewMetrics creates a metrics collector on its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codelab_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codelab_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codelab_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codelab_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		// Preview metrics
		PreviewSessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "codelab_preview_sessions_active",
				Help: "Number of open preview sessions",
			},
		),
		RendersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codelab_preview_renders_total",
				Help: "Total number of sandbox renders",
			},
			[]string{"trigger"},
		),
		RenderLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "codelab_preview_render_latency_seconds",
				Help:    "Time from render until the sandbox reports loaded",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		ConsoleEntries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codelab_preview_console_entries_total",
				Help: "Console entries relayed from sandboxes",
			},
			[]string{"level"},
		),
		BridgeDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codelab_preview_bridge_dropped_total",
				Help: "Sandbox messages dropped by the bridge",
			},
			[]string{"reason"},
		),

		// Terminal metrics
		TerminalSessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "codelab_terminal_sessions_active",
				Help: "Number of open terminal sessions",
			},
		),
		CommandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codelab_terminal_commands_total",
				Help: "Total number of interpreted commands",
			},
			[]string{"verb", "status"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codelab_terminal_command_duration_seconds",
				Help:    "Command duration in seconds, including simulated delay",
				Buckets: []float64{.001, .01, .1, .25, .5, 1, 2.5},
			},
			[]string{"verb"},
		),
		CommandsRejected: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "codelab_terminal_commands_rejected_total",
				Help: "Submissions ignored because the terminal was busy",
			},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "codelab_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codelab_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "codelab_uptime_seconds",
			Help: "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry every metric is registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordRender counts a sandbox render by what triggered it
func (m *Metrics) RecordRender(trigger string) {
	m.RendersTotal.WithLabelValues(trigger).Inc()
	m.mu.Lock()
	m.snapshot.TotalRenders++
	m.mu.Unlock()
}

// ObserveRenderLatency records how long a render took to load
func (m *Metrics) ObserveRenderLatency(d time.Duration) {
	m.RenderLatency.Observe(d.Seconds())
}

// RecordConsoleEntry counts a relayed console entry
func (m *Metrics) RecordConsoleEntry(level string) {
	m.ConsoleEntries.WithLabelValues(level).Inc()
}

// RecordBridgeDrop counts a message the bridge did not deliver
func (m *Metrics) RecordBridgeDrop(reason string) {
	m.BridgeDropped.WithLabelValues(reason).Inc()
}

// RecordCommand records an interpreted command
func (m *Metrics) RecordCommand(verb, status string, duration time.Duration) {
	m.CommandsTotal.WithLabelValues(verb, status).Inc()
	m.CommandDuration.WithLabelValues(verb).Observe(duration.Seconds())
	m.mu.Lock()
	m.snapshot.TotalCommands++
	m.mu.Unlock()
}

// IncCommandsRejected counts a submission ignored while busy
func (m *Metrics) IncCommandsRejected() {
	m.CommandsRejected.Inc()
}

// SetPreviewSessionsActive sets the number of open preview sessions
func (m *Metrics) SetPreviewSessionsActive(count int) {
	m.PreviewSessionsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActivePreviews = int64(count)
	m.mu.Unlock()
}

// SetTerminalSessionsActive sets the number of open terminal sessions
func (m *Metrics) SetTerminalSessionsActive(count int) {
	m.TerminalSessionsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveTerminals = int64(count)
	m.mu.Unlock()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns the current values for the JSON stats endpoint
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := m.snapshot
	if snap.TotalRequests > 0 {
		snap.AvgDurationMs = snap.totalDuration / float64(snap.TotalRequests) * 1000
	}
	snap.UptimeSeconds = time.Since(m.startTime).Seconds()
	return snap
}
