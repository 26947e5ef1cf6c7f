package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCollector implements MetricsCollector using Prometheus metrics
type PrometheusCollector struct {
	config   *MetricsConfig
	registry *prometheus.Registry

	// HTTP Metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// WebSocket Metrics
	websocketConnections prometheus.Gauge
	websocketMessages    *prometheus.CounterVec

	// Database Metrics
	databaseQueryDuration *prometheus.HistogramVec

	// Registry mirror metrics
	refreshesTotal  *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	eventsTotal     *prometheus.CounterVec
	snapshotRecords *prometheus.GaugeVec

	// Action metrics
	actionRequests *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	actionMatched  *prometheus.HistogramVec
	mqttRequests   *prometheus.CounterVec
}

// NewPrometheusCollector creates a collector with its own registry, so
// several collectors can coexist in one process.
func NewPrometheusCollector(config *MetricsConfig) *PrometheusCollector {
	if config == nil {
		config = &MetricsConfig{
			Enabled: true,
			Prefix:  "spook",
		}
	}

	prefix := config.Prefix
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	collector := &PrometheusCollector{
		config:   config,
		registry: registry,
	}

	collector.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	collector.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	collector.websocketConnections = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_websocket_connections",
			Help: "Number of connected push clients",
		},
	)

	collector.websocketMessages = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_websocket_messages_total",
			Help: "Total number of push messages",
		},
		[]string{"direction"},
	)

	collector.databaseQueryDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_database_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"operation"},
	)

	collector.refreshesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_registry_refreshes_total",
			Help: "Total number of registry snapshot refreshes",
		},
		[]string{"reason", "success"},
	)

	collector.refreshDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    prefix + "_registry_refresh_duration_seconds",
			Help:    "Registry snapshot refresh duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		},
	)

	collector.eventsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_ha_events_total",
			Help: "Total number of Home Assistant events received",
		},
		[]string{"event_type"},
	)

	collector.snapshotRecords = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_registry_records",
			Help: "Number of records in the current registry snapshot",
		},
		[]string{"registry"},
	)

	collector.actionRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_action_requests_total",
			Help: "Total number of action calls",
		},
		[]string{"action", "transport"},
	)

	collector.actionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_action_duration_seconds",
			Help:    "Action call duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
		[]string{"action"},
	)

	collector.actionMatched = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_action_matched_entities",
			Help:    "Number of entities returned per action call",
			Buckets: prometheus.ExponentialBuckets(1, 4, 9),
		},
		[]string{"action"},
	)

	collector.mqttRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_mqtt_requests_total",
			Help: "Total number of action calls received over MQTT",
		},
		[]string{"action", "success"},
	)

	return collector
}

// Handler serves the collector's registry in the Prometheus text format
func (p *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry, mainly for tests
func (p *PrometheusCollector) Gatherer() prometheus.Gatherer {
	return p.registry
}

// RecordHTTPRequest records HTTP request metrics
func (p *PrometheusCollector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if !p.config.Enabled {
		return
	}

	p.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	p.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordWebSocketConnection records push hub metrics
func (p *PrometheusCollector) RecordWebSocketConnection(action string) {
	if !p.config.Enabled {
		return
	}

	switch action {
	case "connect":
		p.websocketConnections.Inc()
	case "disconnect":
		p.websocketConnections.Dec()
	case "message_sent":
		p.websocketMessages.WithLabelValues("outbound").Inc()
	case "message_received":
		p.websocketMessages.WithLabelValues("inbound").Inc()
	}
}

// RecordDatabaseQuery records database query metrics
func (p *PrometheusCollector) RecordDatabaseQuery(operation string, duration time.Duration) {
	if !p.config.Enabled {
		return
	}

	p.databaseQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRefresh records one registry snapshot refresh
func (p *PrometheusCollector) RecordRefresh(reason string, success bool, duration time.Duration) {
	if !p.config.Enabled {
		return
	}

	p.refreshesTotal.WithLabelValues(reason, successLabel(success)).Inc()
	if success {
		p.refreshDuration.Observe(duration.Seconds())
	}
}

func (p *PrometheusCollector) RecordEvent(eventType string) {
	if !p.config.Enabled {
		return
	}

	p.eventsTotal.WithLabelValues(eventType).Inc()
}

// RecordSnapshot sets the record gauges from snapshot counts
func (p *PrometheusCollector) RecordSnapshot(counts map[string]int) {
	if !p.config.Enabled {
		return
	}

	for registry, n := range counts {
		p.snapshotRecords.WithLabelValues(registry).Set(float64(n))
	}
}

// RecordAction records one action call
func (p *PrometheusCollector) RecordAction(action, transport string, matched int, duration time.Duration) {
	if !p.config.Enabled {
		return
	}

	p.actionRequests.WithLabelValues(action, transport).Inc()
	p.actionDuration.WithLabelValues(action).Observe(duration.Seconds())
	p.actionMatched.WithLabelValues(action).Observe(float64(matched))
}

func (p *PrometheusCollector) RecordMQTTRequest(action string, success bool) {
	if !p.config.Enabled {
		return
	}

	p.mqttRequests.WithLabelValues(action, successLabel(success)).Inc()
}
