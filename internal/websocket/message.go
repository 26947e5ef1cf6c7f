package websocket

import (
	"encoding/json"
	"strconv"
	"time"
)

// Message types for WebSocket communication
const (
	MessageTypeConnection         = "connection"
	MessageTypeHeartbeat          = "heartbeat"
	MessageTypePong               = "pong"
	MessageTypeError              = "error"
	MessageTypeSubscriptionUpdate = "subscription_update"

	MessageTypeOptionsInvalidated = "options_invalidated"
	MessageTypeRegistryChanged    = "registry_changed"
	MessageTypeConnectionStatus   = "connection_status"
	MessageTypeActionCalled       = "action_called"
	MessageTypeResult             = "result"
)

// Client request types
const (
	RequestPing        = "ping"
	RequestSubscribe   = "subscribe"
	RequestUnsubscribe = "unsubscribe"
	RequestCall        = "call"
)

// Topics a client can subscribe to. A client without subscriptions
// receives every topic.
const (
	TopicOptions  = "options"
	TopicRegistry = "registry"
	TopicCalls    = "calls"
)

// Topics lists every broadcast topic
var Topics = []string{TopicOptions, TopicRegistry, TopicCalls}

// Message represents a WebSocket message
type Message struct {
	ID        string                 `json:"id,omitempty"`
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m Message) ToJSON() []byte {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	data, _ := json.Marshal(m)
	return data
}

// UnmarshalJSON accepts RFC 3339 or unix (seconds or milliseconds)
// timestamps, as a string or a number. A missing timestamp becomes now.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias Message
	aux := struct {
		*alias
		Timestamp interface{} `json:"timestamp"`
	}{alias: (*alias)(m)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	m.Timestamp = parseTimestamp(aux.Timestamp)
	return nil
}

func parseTimestamp(v interface{}) time.Time {
	switch ts := v.(type) {
	case float64:
		return unixTime(int64(ts))
	case string:
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			return t
		}
		if i, err := strconv.ParseInt(ts, 10, 64); err == nil {
			return unixTime(i)
		}
	}
	return time.Now().UTC()
}

// unixTime treats values past the year 2286 in seconds as milliseconds
func unixTime(n int64) time.Time {
	if n > 1e10 {
		return time.UnixMilli(n)
	}
	return time.Unix(n, 0)
}

// OptionsInvalidatedMessage tells clients to refetch selector options
func OptionsInvalidatedMessage(change string) Message {
	return Message{
		Type: MessageTypeOptionsInvalidated,
		Data: map[string]interface{}{
			"change": change,
		},
	}
}

// RegistryChangedMessage reports a registry change with the snapshot size
func RegistryChangedMessage(change string, stats map[string]interface{}) Message {
	data := map[string]interface{}{"change": change}
	for k, v := range stats {
		data[k] = v
	}
	return Message{Type: MessageTypeRegistryChanged, Data: data}
}

// ConnectionStatusMessage reports the Home Assistant connection state
func ConnectionStatusMessage(connected bool) Message {
	return Message{
		Type: MessageTypeConnectionStatus,
		Data: map[string]interface{}{
			"connected": connected,
		},
	}
}

// ActionCalledMessage summarises one served action call
func ActionCalledMessage(requestID, action, transport string, matched int, durationMS float64, errText string) Message {
	data := map[string]interface{}{
		"request_id":  requestID,
		"action":      action,
		"transport":   transport,
		"matched":     matched,
		"duration_ms": durationMS,
	}
	if errText != "" {
		data["error"] = errText
	}
	return Message{Type: MessageTypeActionCalled, Data: data}
}

// ErrorMessage answers a client request that could not be served
func ErrorMessage(id, message string) Message {
	return Message{
		ID:   id,
		Type: MessageTypeError,
		Data: map[string]interface{}{
			"message": message,
		},
	}
}
