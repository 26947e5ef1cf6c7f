package metrics

import (
	"time"
)

// MetricsCollector defines the interface for collecting metrics
type MetricsCollector interface {
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
	RecordWebSocketConnection(action string)
	RecordDatabaseQuery(operation string, duration time.Duration)
	RecordRefresh(reason string, success bool, duration time.Duration)
	RecordEvent(eventType string)
	RecordSnapshot(counts map[string]int)
	RecordAction(action, transport string, matched int, duration time.Duration)
	RecordMQTTRequest(action string, success bool)
}

// MetricsConfig contains configuration for metrics collection
type MetricsConfig struct {
	Enabled bool
	Prefix  string
}

// NoopCollector drops everything. Used when metrics are disabled.
type NoopCollector struct{}

func (NoopCollector) RecordHTTPRequest(string, string, int, time.Duration) {}
func (NoopCollector) RecordWebSocketConnection(string) {}
func (NoopCollector) RecordDatabaseQuery(string, time.Duration) {}
func (NoopCollector) RecordRefresh(string, bool, time.Duration) {}
func (NoopCollector) RecordEvent(string) {}
func (NoopCollector) RecordSnapshot(map[string]int) {}
func (NoopCollector) RecordAction(string, string, int, time.Duration) {}
func (NoopCollector) RecordMQTTRequest(string, bool) {}

func successLabel(success bool) string {
	if success {
		return "true"
	}
	return "false"
}
