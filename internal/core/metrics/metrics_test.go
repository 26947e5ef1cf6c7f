package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector_Records(t *testing.T) {
	c := NewPrometheusCollector(&MetricsConfig{Enabled: true, Prefix: "test"})

	c.RecordRefresh("connect", true, 120*time.Millisecond)
	c.RecordRefresh("event", false, time.Second)
	c.RecordEvent("state_changed")
	c.RecordEvent("state_changed")
	c.RecordSnapshot(map[string]int{"entities": 12, "devices": 3})
	c.RecordAction("list_filtered_entities", "http", 4, time.Millisecond)
	c.RecordMQTTRequest("list_hidden_entities", true)
	c.RecordHTTPRequest("GET", "/health", 200, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.refreshesTotal.WithLabelValues("connect", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.refreshesTotal.WithLabelValues("event", "false")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.eventsTotal.WithLabelValues("state_changed")))
	assert.Equal(t, 12.0, testutil.ToFloat64(c.snapshotRecords.WithLabelValues("entities")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.actionRequests.WithLabelValues("list_filtered_entities", "http")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.mqttRequests.WithLabelValues("list_hidden_entities", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("GET", "/health", "200")))
}

func TestPrometheusCollector_Disabled(t *testing.T) {
	c := NewPrometheusCollector(&MetricsConfig{Enabled: false, Prefix: "off"})

	c.RecordEvent("state_changed")
	assert.Equal(t, 0.0, testutil.ToFloat64(c.eventsTotal.WithLabelValues("state_changed")))
}

func TestPrometheusCollector_Handler(t *testing.T) {
	c := NewPrometheusCollector(nil)
	c.RecordEvent("area_registry_updated")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `spook_ha_events_total{event_type="area_registry_updated"} 1`))
}

func TestHealthChecker(t *testing.T) {
	h := NewHealthChecker(50 * time.Millisecond)

	h.Register("registry", func(context.Context) HealthStatus {
		return NewHealthStatus(StatusHealthy, "loaded")
	})
	report := h.Check(context.Background())
	assert.Equal(t, StatusHealthy, report.Status)
	assert.Equal(t, "All 1 components healthy", report.Message)

	h.Register("database", func(context.Context) HealthStatus {
		return NewHealthStatus(StatusDegraded, "cache disabled")
	})
	report = h.Check(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)

	h.Register("home_assistant", func(context.Context) HealthStatus {
		time.Sleep(300 * time.Millisecond)
		return NewHealthStatus(StatusHealthy, "too late")
	})
	report = h.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Equal(t, "Health check timed out", report.Components["home_assistant"].Message)
	assert.Len(t, report.Components, 3)
}
