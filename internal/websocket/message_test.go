package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		jsonData string
		expected time.Time
	}{
		{
			name:     "milliseconds as string",
			jsonData: `{"type":"ping","data":{},"timestamp":"1753104374613"}`,
			expected: time.UnixMilli(1753104374613),
		},
		{
			name:     "seconds as string",
			jsonData: `{"type":"ping","data":{},"timestamp":"1753104374"}`,
			expected: time.Unix(1753104374, 0),
		},
		{
			name:     "milliseconds as number",
			jsonData: `{"type":"ping","data":{},"timestamp":1753104374613}`,
			expected: time.UnixMilli(1753104374613),
		},
		{
			name:     "RFC3339",
			jsonData: `{"type":"ping","data":{},"timestamp":"2025-07-21T09:26:14.613Z"}`,
			expected: time.Date(2025, 7, 21, 9, 26, 14, 613000000, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg Message
			require.NoError(t, json.Unmarshal([]byte(tt.jsonData), &msg))
			assert.Equal(t, RequestPing, msg.Type)
			assert.True(t, tt.expected.Equal(msg.Timestamp), "got %v", msg.Timestamp)
		})
	}
}

func TestMessageUnmarshalJSON_MissingTimestamp(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(`{"id":"7","type":"call","data":{"action":"list_hidden_entities"}}`), &msg))

	assert.Equal(t, "7", msg.ID)
	assert.Equal(t, "list_hidden_entities", msg.Data["action"])
	assert.WithinDuration(t, time.Now(), msg.Timestamp, time.Minute)
}

func TestMessageConstructors(t *testing.T) {
	msg := ActionCalledMessage("req-1", "list_filtered_entities", "mqtt", 4, 1.25, "")
	assert.Equal(t, MessageTypeActionCalled, msg.Type)
	assert.Equal(t, 4, msg.Data["matched"])
	assert.NotContains(t, msg.Data, "error")

	failed := ActionCalledMessage("req-2", "list_hidden_entities", "http", 0, 0.5, "registry snapshot not loaded")
	assert.Equal(t, "registry snapshot not loaded", failed.Data["error"])

	changed := RegistryChangedMessage("snapshot", map[string]interface{}{"loaded": true, "entities": 12})
	assert.Equal(t, map[string]interface{}{"change": "snapshot", "loaded": true, "entities": 12}, changed.Data)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(OptionsInvalidatedMessage("label_registry").ToJSON(), &decoded))
	assert.Equal(t, MessageTypeOptionsInvalidated, decoded["type"])
	assert.Equal(t, map[string]interface{}{"change": "label_registry"}, decoded["data"])
	assert.NotEmpty(t, decoded["timestamp"])
	assert.NotContains(t, decoded, "id")
}
