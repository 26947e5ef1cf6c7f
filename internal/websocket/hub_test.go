package websocket

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ekobres/spook/internal/core/actions"
	"github.com/ekobres/spook/internal/core/entityfilter"
	"github.com/ekobres/spook/internal/core/registry"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type stubCaller struct{}

func (stubCaller) Call(_ context.Context, requestID, transport, action string, data map[string]interface{}) (interface{}, actions.Call, error) {
	call := actions.Call{RequestID: requestID, Action: action, Transport: transport}
	if action != entityfilter.ActionListHiddenEntities {
		return nil, call, errors.New("unknown action: " + action)
	}
	return &entityfilter.HiddenResult{Count: 1, Entities: []string{"light.hall"}}, call, nil
}

func startHub(t *testing.T) (*Hub, context.CancelFunc, string) {
	t.Helper()

	hub := NewHub(HubOptions{Heartbeat: time.Hour}, nil, quietLogger())
	hub.SetCaller(stubCaller{})

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleWebSocket(hub, w, r)
	}))
	t.Cleanup(server.Close)

	return hub, cancel, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	welcome := readMessage(t, conn)
	require.Equal(t, MessageTypeConnection, welcome.Type)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func send(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func TestHub_PingAndUnknown(t *testing.T) {
	_, _, url := startHub(t)
	conn := dial(t, url)

	send(t, conn, map[string]interface{}{"id": "p1", "type": "ping"})
	pong := readMessage(t, conn)
	assert.Equal(t, MessageTypePong, pong.Type)
	assert.Equal(t, "p1", pong.ID)

	send(t, conn, map[string]interface{}{"id": "x", "type": "dance"})
	reply := readMessage(t, conn)
	assert.Equal(t, MessageTypeError, reply.Type)
	assert.Equal(t, "x", reply.ID)
	assert.Contains(t, reply.Data["message"], "dance")
}

func TestHub_TopicFiltering(t *testing.T) {
	hub, _, url := startHub(t)
	conn := dial(t, url)

	send(t, conn, map[string]interface{}{"id": "s1", "type": "subscribe", "data": map[string]interface{}{"topics": []string{TopicCalls}}})
	update := readMessage(t, conn)
	assert.Equal(t, MessageTypeSubscriptionUpdate, update.Type)
	assert.Equal(t, []interface{}{TopicCalls}, update.Data["topics"])

	hub.Publish(TopicOptions, OptionsInvalidatedMessage("snapshot"))
	hub.Publish(TopicCalls, ActionCalledMessage("req-1", "list_hidden_entities", "http", 1, 0.2, ""))

	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeActionCalled, msg.Type)
	assert.Equal(t, "req-1", msg.Data["request_id"])

	send(t, conn, map[string]interface{}{"type": "unsubscribe", "data": map[string]interface{}{"topics": TopicCalls}})
	update = readMessage(t, conn)
	assert.Equal(t, []interface{}{}, update.Data["topics"])

	hub.BroadcastToAll(ConnectionStatusMessage(false))
	msg = readMessage(t, conn)
	assert.Equal(t, MessageTypeConnectionStatus, msg.Type)
	assert.Equal(t, false, msg.Data["connected"])
}

func TestHub_Call(t *testing.T) {
	_, _, url := startHub(t)
	conn := dial(t, url)

	send(t, conn, map[string]interface{}{"id": "c1", "type": "call", "data": map[string]interface{}{"action": "list_hidden_entities"}})
	result := readMessage(t, conn)
	assert.Equal(t, MessageTypeResult, result.Type)
	assert.Equal(t, "c1", result.ID)
	assert.Equal(t, map[string]interface{}{"count": float64(1), "entities": []interface{}{"light.hall"}}, result.Data["response"])

	send(t, conn, map[string]interface{}{"id": "c2", "type": "call", "data": map[string]interface{}{"action": "reboot"}})
	failed := readMessage(t, conn)
	assert.Equal(t, MessageTypeError, failed.Type)
	assert.Equal(t, "c2", failed.ID)

	send(t, conn, map[string]interface{}{"id": "c3", "type": "call", "data": map[string]interface{}{"action": "list_hidden_entities", "data": []int{1}}})
	invalid := readMessage(t, conn)
	assert.Equal(t, MessageTypeError, invalid.Type)
	assert.Equal(t, "call data must be an object", invalid.Data["message"])
}

func TestHub_WatchRegistryAndOptions(t *testing.T) {
	hub, _, url := startHub(t)

	store := registry.NewStore(quietLogger())
	hub.WatchOptions(entityfilter.NewOptionProvider(store, quietLogger()))
	hub.WatchRegistry(store)

	conn := dial(t, url)

	store.Replace(registry.NewSnapshot([]registry.Entity{{EntityID: "light.hall", Platform: "hue"}}, nil, nil, nil, nil, nil))

	invalidated := readMessage(t, conn)
	assert.Equal(t, MessageTypeOptionsInvalidated, invalidated.Type)
	assert.Equal(t, "snapshot", invalidated.Data["change"])

	changed := readMessage(t, conn)
	assert.Equal(t, MessageTypeRegistryChanged, changed.Type)
	assert.Equal(t, true, changed.Data["loaded"])
	assert.Equal(t, float64(1), changed.Data["entities"])
}

func TestHub_Stats(t *testing.T) {
	hub, _, url := startHub(t)
	conn := dial(t, url)

	send(t, conn, map[string]interface{}{"type": "ping"})
	readMessage(t, conn)

	stats := hub.GetStats()
	assert.Equal(t, 1, stats.ConnectedClients)
	assert.Equal(t, int64(1), stats.TotalConnections)
	assert.Equal(t, int64(1), stats.MessagesReceived)
	assert.Len(t, hub.GetAllClients(), 1)
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	hub, cancel, url := startHub(t)
	conn := dial(t, url)

	cancel()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.Eventually(t, func() bool { return hub.GetClientCount() == 0 }, time.Second, 10*time.Millisecond)

	late, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		defer late.Close()
		late.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err = late.ReadMessage()
		assert.Error(t, err)
	} else if resp != nil {
		resp.Body.Close()
	}
}
