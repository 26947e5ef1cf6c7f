package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Level(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, NewWithOutput(&bytes.Buffer{}, "debug", "json").GetLevel())
	assert.Equal(t, logrus.WarnLevel, NewWithOutput(&bytes.Buffer{}, "WARN", "json").GetLevel())
	assert.Equal(t, logrus.InfoLevel, NewWithOutput(&bytes.Buffer{}, "chatty", "json").GetLevel())
}

func TestNew_Format(t *testing.T) {
	var buf bytes.Buffer
	NewWithOutput(&buf, "info", "json").WithField("entity_id", "light.kitchen").Info("hello")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "light.kitchen", line["entity_id"])

	buf.Reset()
	NewWithOutput(&buf, "info", "text").Info("hello")
	assert.Contains(t, buf.String(), `msg=hello`)
}

func TestLogRequest_BatchesSuccess(t *testing.T) {
	var buf bytes.Buffer
	bl := NewWithOutput(&buf, "info", "json")
	bl.SetBatchSize(3)

	bl.LogRequest("GET", "/health", 200, time.Millisecond, nil)
	bl.LogRequest("GET", "/health", 204, 3*time.Millisecond, nil)
	assert.Empty(t, buf.String())

	bl.LogRequest("POST", "/api/v1/services/list_filtered_entities", 200, 2*time.Millisecond, nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var summary map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &summary))
	assert.Equal(t, float64(3), summary["total_requests"])
	endpoints := summary["endpoints"].(map[string]interface{})
	health := endpoints["GET /health"].(map[string]interface{})
	assert.Equal(t, float64(2), health["count"])
	assert.Equal(t, float64(2*time.Millisecond), health["avg_latency"])
}

func TestLogRequest_ErrorsImmediately(t *testing.T) {
	var buf bytes.Buffer
	bl := NewWithOutput(&buf, "info", "json")

	bl.LogRequest("GET", "/api/v1/options/colors", 404, time.Millisecond, logrus.Fields{"request_id": "abc"})

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warning", line["level"])
	assert.Equal(t, "abc", line["request_id"])

	buf.Reset()
	bl.FlushPending()
	assert.Empty(t, buf.String())
}
