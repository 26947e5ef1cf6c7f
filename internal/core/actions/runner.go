// Package actions runs entity filter actions on behalf of a transport and
// records every call.
package actions

import (
	"context"
	"time"

	"github.com/ekobres/spook/internal/core/entityfilter"
	"github.com/ekobres/spook/internal/core/metrics"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Transport names
const (
	TransportHTTP      = "http"
	TransportMQTT      = "mqtt"
	TransportWebSocket = "websocket"
)

// Dispatcher answers an action by name
type Dispatcher interface {
	Dispatch(ctx context.Context, action string, data map[string]interface{}) (interface{}, error)
}

// History persists served calls
type History interface {
	Record(ctx context.Context, requestID, action, transport string, matched int, duration time.Duration, callErr error)
}

// Call describes one served action call
type Call struct {
	RequestID string        `json:"request_id"`
	Action    string        `json:"action"`
	Transport string        `json:"transport"`
	Matched   int           `json:"matched"`
	Duration  time.Duration `json:"-"`
	Error     string        `json:"error,omitempty"`
	At        time.Time     `json:"at"`
}

// DurationMS is the call duration in fractional milliseconds
func (c Call) DurationMS() float64 {
	return float64(c.Duration.Microseconds()) / 1000
}

// Runner dispatches actions and reports each call to metrics, history and
// listeners.
type Runner struct {
	dispatcher Dispatcher
	recorder   metrics.MetricsCollector
	history    History
	logger     *logrus.Logger

	listeners []func(Call)
}

// NewRunner creates a runner. recorder and history may be nil.
func NewRunner(dispatcher Dispatcher, recorder metrics.MetricsCollector, history History, logger *logrus.Logger) *Runner {
	if recorder == nil {
		recorder = metrics.NoopCollector{}
	}
	return &Runner{
		dispatcher: dispatcher,
		recorder:   recorder,
		history:    history,
		logger:     logger,
	}
}

// OnCall registers a listener run after every call. Listeners must not block.
// Register before serving.
func (r *Runner) OnCall(fn func(Call)) {
	r.listeners = append(r.listeners, fn)
}

// Call runs action with raw call data. An empty requestID is replaced by a
// fresh one; the id used is returned with the call.
func (r *Runner) Call(ctx context.Context, requestID, transport, action string, data map[string]interface{}) (interface{}, Call, error) {
	if requestID == "" {
		requestID = uuid.New().String()
	}

	start := time.Now()
	result, err := r.dispatcher.Dispatch(ctx, action, data)
	duration := time.Since(start)

	call := Call{
		RequestID: requestID,
		Action:    action,
		Transport: transport,
		Matched:   matched(result),
		Duration:  duration,
		At:        start.UTC(),
	}
	if err != nil {
		call.Error = err.Error()
		result = nil
	}

	r.recorder.RecordAction(action, transport, call.Matched, duration)
	if r.history != nil {
		r.history.Record(ctx, requestID, action, transport, call.Matched, duration, err)
	}

	entry := r.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"action":     action,
		"transport":  transport,
		"matched":    call.Matched,
		"duration":   duration,
	})
	if err != nil {
		entry.WithError(err).Warn("Action call failed")
	} else {
		entry.Debug("Action call served")
	}

	for _, fn := range r.listeners {
		fn(call)
	}

	return result, call, err
}

func matched(result interface{}) int {
	switch res := result.(type) {
	case *entityfilter.Result:
		if res != nil {
			return res.Count
		}
	case *entityfilter.HiddenResult:
		if res != nil {
			return res.Count
		}
	}
	return 0
}
