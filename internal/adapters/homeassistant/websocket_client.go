package homeassistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const defaultRequestTimeout = 30 * time.Second

// WebSocketClient interface defines WebSocket operations
type WebSocketClient interface {
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool
	SendCommand(ctx context.Context, msgType string, data map[string]interface{}) (*WSMessage, error)
	SubscribeToEvents(ctx context.Context, eventType string, handler EventHandler) (int, error)
	Unsubscribe(ctx context.Context, subscriptionID int) error
	SetConnectionStateHandler(handler ConnectionStateHandler)
	// Done is closed when the current connection drops.
	Done() <-chan struct{}
	HAVersion() string
}

// wsClient implements WebSocketClient over a gorilla connection
type wsClient struct {
	wsURL          string
	token          string
	logger         *logrus.Logger
	requestTimeout time.Duration
	dialer         *websocket.Dialer

	mu        sync.RWMutex
	conn      *websocket.Conn
	done      chan struct{}
	connected bool
	haVersion string

	writeMu   sync.Mutex
	messageID atomic.Int64

	pendingMu sync.Mutex
	pending   map[int]chan *WSMessage

	subscriptionMu sync.RWMutex
	subscriptions  map[int]EventHandler

	stateHandler ConnectionStateHandler
}

// NewWebSocketClient creates a new WebSocket client. baseURL is the http(s)
// address of the instance; the websocket endpoint is derived from it.
func NewWebSocketClient(baseURL, token string, requestTimeout time.Duration, logger *logrus.Logger) (WebSocketClient, error) {
	wsURL, err := websocketURL(baseURL)
	if err != nil {
		return nil, err
	}
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	closed := make(chan struct{})
	close(closed)

	return &wsClient{
		wsURL:          wsURL,
		token:          token,
		logger:         logger,
		requestTimeout: requestTimeout,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
			Proxy:            websocket.DefaultDialer.Proxy,
		},
		done:          closed,
		pending:       make(map[int]chan *WSMessage),
		subscriptions: make(map[int]EventHandler),
	}, nil
}

func websocketURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil || u.Host == "" {
		return "", ErrInvalidURL
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", ErrInvalidURL
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/websocket"
	return u.String(), nil
}

// Connect dials the instance and completes the auth handshake
func (c *wsClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.logger.WithField("url", c.wsURL).Info("Connecting to Home Assistant WebSocket")

	conn, _, err := c.dialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return NewHAError(0, "WebSocket dial failed", map[string]interface{}{
			"error": err.Error(),
			"url":   c.wsURL,
		})
	}

	version, err := c.authenticate(ctx, conn)
	if err != nil {
		conn.Close()
		return err
	}

	c.subscriptionMu.Lock()
	c.subscriptions = make(map[int]EventHandler)
	c.subscriptionMu.Unlock()

	done := make(chan struct{})
	c.mu.Lock()
	c.conn = conn
	c.done = done
	c.connected = true
	c.haVersion = version
	handler := c.stateHandler
	c.mu.Unlock()

	go c.readLoop(conn, done)

	c.logger.WithField("ha_version", version).Info("Home Assistant WebSocket authenticated")
	if handler != nil {
		handler(true)
	}
	return nil
}

func (c *wsClient) authenticate(ctx context.Context, conn *websocket.Conn) (string, error) {
	deadline := time.Now().Add(c.requestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{})

	var hello WSMessage
	if err := conn.ReadJSON(&hello); err != nil {
		return "", NewHAError(0, "Failed to read auth_required", map[string]interface{}{"error": err.Error()})
	}
	if hello.Type != "auth_required" {
		return "", NewHAError(0, "Unexpected handshake message", map[string]interface{}{"type": hello.Type})
	}

	if err := conn.WriteJSON(AuthMessage{Type: "auth", AccessToken: c.token}); err != nil {
		return "", NewHAError(0, "Failed to send auth", map[string]interface{}{"error": err.Error()})
	}

	var reply WSMessage
	if err := conn.ReadJSON(&reply); err != nil {
		return "", NewHAError(0, "Failed to read auth result", map[string]interface{}{"error": err.Error()})
	}
	switch reply.Type {
	case "auth_ok":
		return reply.HAVersion, nil
	case "auth_invalid":
		c.logger.WithField("message", reply.Message).Warn("Home Assistant rejected the access token")
		return "", ErrAuthFailed
	default:
		return "", NewHAError(0, "Unexpected auth reply", map[string]interface{}{"type": reply.Type})
	}
}

// readLoop routes results to waiting commands and events to subscribers
func (c *wsClient) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.connected = false
		}
		handler := c.stateHandler
		c.mu.Unlock()

		c.pendingMu.Lock()
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.pendingMu.Unlock()

		if handler != nil {
			handler(false)
		}
		close(done)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.logger.WithError(err).Warn("Home Assistant WebSocket read failed")
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.WithError(err).Debug("Dropping undecodable WebSocket frame")
			continue
		}
		c.handleMessage(&msg)
	}
}

func (c *wsClient) handleMessage(msg *WSMessage) {
	switch msg.Type {
	case "result", "pong":
		c.pendingMu.Lock()
		ch, ok := c.pending[msg.ID]
		if ok {
			delete(c.pending, msg.ID)
		}
		c.pendingMu.Unlock()
		if ok {
			ch <- msg
		}
	case "event":
		c.subscriptionMu.RLock()
		handler, ok := c.subscriptions[msg.ID]
		c.subscriptionMu.RUnlock()
		if ok && msg.Event != nil {
			handler(*msg.Event)
		}
	}
}

// SendCommand sends a command and waits for its result
func (c *wsClient) SendCommand(ctx context.Context, msgType string, data map[string]interface{}) (*WSMessage, error) {
	c.mu.RLock()
	conn, done, connected := c.conn, c.done, c.connected
	c.mu.RUnlock()
	if !connected {
		return nil, ErrWebSocketNotConnected
	}

	id := int(c.messageID.Add(1))
	msg := map[string]interface{}{
		"id":   id,
		"type": msgType,
	}
	for k, v := range data {
		msg[k] = v
	}

	respCh := make(chan *WSMessage, 1)
	c.pendingMu.Lock()
	c.pending[id] = respCh
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	c.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(c.requestTimeout))
	err := conn.WriteJSON(msg)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", msgType, err)
	}

	timer := time.NewTimer(c.requestTimeout)
	defer timer.Stop()

	select {
	case resp, ok := <-respCh:
		if !ok {
			return nil, ErrWebSocketNotConnected
		}
		if resp.Success != nil && !*resp.Success {
			cmdErr := &CommandError{Command: msgType, Message: "unknown error"}
			if resp.Error != nil {
				cmdErr.Code = resp.Error.Code
				cmdErr.Message = resp.Error.Message
			}
			return nil, cmdErr
		}
		return resp, nil
	case <-done:
		return nil, ErrWebSocketNotConnected
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SendCommandTyped sends a command and decodes its result into T
func SendCommandTyped[T any](ctx context.Context, c WebSocketClient, msgType string, data map[string]interface{}) (T, error) {
	var result T
	resp, err := c.SendCommand(ctx, msgType, data)
	if err != nil {
		return result, err
	}
	if len(resp.Result) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return result, NewHAError(0, "Failed to decode command result", map[string]interface{}{
			"command": msgType,
			"error":   err.Error(),
		})
	}
	return result, nil
}

// SubscribeToEvents subscribes to one event type on the bus. The handler runs
// on the read goroutine and must not block.
func (c *wsClient) SubscribeToEvents(ctx context.Context, eventType string, handler EventHandler) (int, error) {
	c.mu.RLock()
	conn, done, connected := c.conn, c.done, c.connected
	c.mu.RUnlock()
	if !connected {
		return 0, ErrWebSocketNotConnected
	}

	id := int(c.messageID.Add(1))

	// Events can arrive before the result frame.
	c.subscriptionMu.Lock()
	c.subscriptions[id] = handler
	c.subscriptionMu.Unlock()
	cleanup := func() {
		c.subscriptionMu.Lock()
		delete(c.subscriptions, id)
		c.subscriptionMu.Unlock()
	}

	respCh := make(chan *WSMessage, 1)
	c.pendingMu.Lock()
	c.pending[id] = respCh
	c.pendingMu.Unlock()

	c.writeMu.Lock()
	conn.SetWriteDeadline(time.Now().Add(c.requestTimeout))
	err := conn.WriteJSON(map[string]interface{}{
		"id":         id,
		"type":       "subscribe_events",
		"event_type": eventType,
	})
	c.writeMu.Unlock()
	if err != nil {
		cleanup()
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return 0, fmt.Errorf("failed to subscribe to %s: %w", eventType, err)
	}

	timer := time.NewTimer(c.requestTimeout)
	defer timer.Stop()

	select {
	case resp, ok := <-respCh:
		if !ok {
			cleanup()
			return 0, ErrWebSocketNotConnected
		}
		if resp.Success != nil && !*resp.Success {
			cleanup()
			cmdErr := &CommandError{Command: "subscribe_events", Message: "subscription failed"}
			if resp.Error != nil {
				cmdErr.Code = resp.Error.Code
				cmdErr.Message = resp.Error.Message
			}
			return 0, cmdErr
		}
	case <-done:
		cleanup()
		return 0, ErrWebSocketNotConnected
	case <-timer.C:
		cleanup()
		return 0, ErrTimeout
	case <-ctx.Done():
		cleanup()
		return 0, ctx.Err()
	}

	c.logger.WithFields(logrus.Fields{
		"event_type":      eventType,
		"subscription_id": id,
	}).Debug("Subscribed to Home Assistant events")

	return id, nil
}

func (c *wsClient) Unsubscribe(ctx context.Context, subscriptionID int) error {
	c.subscriptionMu.Lock()
	delete(c.subscriptions, subscriptionID)
	c.subscriptionMu.Unlock()

	_, err := c.SendCommand(ctx, "unsubscribe_events", map[string]interface{}{
		"subscription": subscriptionID,
	})
	return err
}

func (c *wsClient) Disconnect() error {
	c.mu.Lock()
	conn := c.conn
	c.connected = false
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	c.logger.Info("Disconnected from Home Assistant WebSocket")
	err := conn.Close()
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

func (c *wsClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *wsClient) Done() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.done
}

func (c *wsClient) HAVersion() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.haVersion
}

func (c *wsClient) SetConnectionStateHandler(handler ConnectionStateHandler) {
	c.mu.Lock()
	c.stateHandler = handler
	c.mu.Unlock()
}
