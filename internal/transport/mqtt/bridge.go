// Package mqtt serves entity filter actions over an MQTT broker. A request
// published to <prefix>/action/<name>/call is answered on its reply_to topic
// or on <prefix>/action/<name>/response.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ekobres/spook/internal/core/actions"
	"github.com/ekobres/spook/internal/core/metrics"
	"github.com/sirupsen/logrus"
)

const callTimeout = 30 * time.Second

// Caller runs an action for a transport
type Caller interface {
	Call(ctx context.Context, requestID, transport, action string, data map[string]interface{}) (interface{}, actions.Call, error)
}

// Transport is the broker side of the bridge
type Transport interface {
	Subscribe(topic string, handler MessageHandler) error
	Publish(topic string, payload []byte, retained bool) error
}

// Request is the payload of a call topic
type Request struct {
	RequestID string                 `json:"request_id,omitempty"`
	ReplyTo   string                 `json:"reply_to,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Response is published for every call
type Response struct {
	RequestID string      `json:"request_id"`
	Action    string      `json:"action"`
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// Bridge connects call topics to an action caller
type Bridge struct {
	transport Transport
	topics    Topics
	caller    Caller
	recorder  metrics.MetricsCollector
	logger    *logrus.Logger
}

// NewBridge creates a bridge. recorder may be nil.
func NewBridge(transport Transport, prefix string, caller Caller, recorder metrics.MetricsCollector, logger *logrus.Logger) *Bridge {
	if recorder == nil {
		recorder = metrics.NoopCollector{}
	}
	return &Bridge{
		transport: transport,
		topics:    Topics{Prefix: prefix},
		caller:    caller,
		recorder:  recorder,
		logger:    logger,
	}
}

// Start subscribes to the call topics of every action
func (b *Bridge) Start() error {
	topic := b.topics.CallWildcard()
	if err := b.transport.Subscribe(topic, b.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	b.logger.WithField("topic", topic).Info("MQTT action bridge listening")
	return nil
}

func (b *Bridge) handleMessage(topic string, payload []byte) {
	action, ok := b.topics.ActionFromCall(topic)
	if !ok {
		b.logger.WithField("topic", topic).Debug("Ignoring message on unexpected MQTT topic")
		return
	}

	req, err := parseRequest(payload)
	if err != nil {
		b.logger.WithError(err).WithField("topic", topic).Warn("Rejected MQTT action request")
		b.recorder.RecordMQTTRequest(action, false)
		b.respond(action, req.ReplyTo, Response{RequestID: req.RequestID, Action: action, Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	result, call, err := b.caller.Call(ctx, req.RequestID, actions.TransportMQTT, action, req.Data)
	b.recorder.RecordMQTTRequest(action, err == nil)

	resp := Response{RequestID: call.RequestID, Action: action, Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.Data = result
	}
	b.respond(action, req.ReplyTo, resp)
}

func (b *Bridge) respond(action, replyTo string, resp Response) {
	if replyTo == "" {
		replyTo = b.topics.Response(action)
	}
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)

	body, err := json.Marshal(resp)
	if err != nil {
		b.logger.WithError(err).WithField("action", action).Error("Failed to encode MQTT response")
		return
	}

	if err := b.transport.Publish(replyTo, body, false); err != nil {
		b.logger.WithError(err).WithFields(logrus.Fields{
			"action":     action,
			"topic":      replyTo,
			"request_id": resp.RequestID,
		}).Warn("Failed to publish MQTT response")
	}
}

// parseRequest accepts an empty payload as a call without data. The partial
// request is returned alongside an error so the reply can keep its id.
func parseRequest(payload []byte) (Request, error) {
	var req Request
	if len(payload) == 0 {
		return req, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if v, ok := raw["request_id"]; ok {
		if err := json.Unmarshal(v, &req.RequestID); err != nil {
			return req, fmt.Errorf("%w: request_id must be a string", ErrInvalidRequest)
		}
	}
	if v, ok := raw["reply_to"]; ok {
		if err := json.Unmarshal(v, &req.ReplyTo); err != nil {
			return req, fmt.Errorf("%w: reply_to must be a string", ErrInvalidRequest)
		}
	}
	if v, ok := raw["data"]; ok && string(v) != "null" {
		if err := json.Unmarshal(v, &req.Data); err != nil {
			return req, fmt.Errorf("%w: data must be an object", ErrInvalidRequest)
		}
	}
	return req, nil
}
