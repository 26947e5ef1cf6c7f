package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/ekobres/spook/internal/core/actions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	// Upper bound for a single call request
	callTimeout = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:    1024,
	WriteBufferSize:   1024,
	EnableCompression: true,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	ID string

	conn *websocket.Conn

	// Buffered channel of outbound messages. Closed by the hub.
	send chan []byte
	// closed is guarded by hub.mu
	closed bool

	hub    *Hub
	logger *logrus.Logger

	UserAgent   string    `json:"user_agent"`
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`

	mu     sync.RWMutex
	topics map[string]bool
}

// HandleWebSocket upgrades the request and attaches the connection to hub
func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		ID:          uuid.New().String(),
		conn:        conn,
		send:        make(chan []byte, 256),
		hub:         hub,
		logger:      hub.logger,
		UserAgent:   r.Header.Get("User-Agent"),
		RemoteAddr:  r.RemoteAddr,
		ConnectedAt: time.Now(),
		topics:      make(map[string]bool),
	}

	select {
	case hub.register <- client:
	case <-hub.done:
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// HandleWebSocketGin is a Gin-compatible wrapper for HandleWebSocket
func HandleWebSocketGin(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		HandleWebSocket(hub, c.Writer, c.Request)
	}
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WithError(err).Error("WebSocket connection error")
			}
			break
		}

		c.hub.countReceived()
		c.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend queues data unless the client is gone or its buffer is full
func (c *Client) trySend(data []byte) bool {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) reply(msg Message) {
	if !c.trySend(msg.ToJSON()) {
		c.logger.WithFields(logrus.Fields{
			"client_id":    c.ID,
			"message_type": msg.Type,
		}).Warn("Dropped reply to WebSocket client")
	}
}

// handleMessage processes incoming messages from the client
func (c *Client) handleMessage(message []byte) {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.WithError(err).Warn("Failed to unmarshal WebSocket message")
		c.reply(ErrorMessage("", "invalid message: "+err.Error()))
		return
	}

	switch msg.Type {
	case RequestPing:
		c.reply(Message{ID: msg.ID, Type: MessageTypePong, Data: map[string]interface{}{}})

	case RequestSubscribe, RequestUnsubscribe:
		topics, ok := stringList(msg.Data["topics"])
		if !ok {
			c.reply(ErrorMessage(msg.ID, "topics must be a list of strings"))
			return
		}
		if msg.Type == RequestSubscribe {
			c.Subscribe(topics...)
		} else {
			c.Unsubscribe(topics...)
		}
		c.reply(Message{
			ID:   msg.ID,
			Type: MessageTypeSubscriptionUpdate,
			Data: map[string]interface{}{"topics": c.Subscriptions()},
		})

	case RequestCall:
		c.handleCall(msg)

	default:
		c.logger.WithField("message_type", msg.Type).Warn("Unknown WebSocket message type")
		c.reply(ErrorMessage(msg.ID, "unknown message type: "+msg.Type))
	}
}

// handleCall runs {"action": name, "data": {...}} and answers with a
// result message carrying the request id.
func (c *Client) handleCall(msg Message) {
	if c.hub.caller == nil {
		c.reply(ErrorMessage(msg.ID, "actions are not available on this connection"))
		return
	}

	action, _ := msg.Data["action"].(string)
	if action == "" {
		c.reply(ErrorMessage(msg.ID, "call requires an action"))
		return
	}

	var data map[string]interface{}
	if raw, present := msg.Data["data"]; present && raw != nil {
		var ok bool
		if data, ok = raw.(map[string]interface{}); !ok {
			c.reply(ErrorMessage(msg.ID, "call data must be an object"))
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	result, call, err := c.hub.caller.Call(ctx, msg.ID, actions.TransportWebSocket, action, data)
	if err != nil {
		c.reply(ErrorMessage(call.RequestID, err.Error()))
		return
	}

	c.reply(Message{
		ID:   call.RequestID,
		Type: MessageTypeResult,
		Data: map[string]interface{}{
			"action":   action,
			"response": result,
		},
	})
}

// Subscribe adds topics to the client's subscriptions
func (c *Client) Subscribe(topics ...string) {
	c.mu.Lock()
	for _, t := range topics {
		c.topics[t] = true
	}
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"client_id": c.ID,
		"topics":    topics,
	}).Debug("Client subscribed to topics")
}

// Unsubscribe removes topics from the client's subscriptions
func (c *Client) Unsubscribe(topics ...string) {
	c.mu.Lock()
	for _, t := range topics {
		delete(c.topics, t)
	}
	c.mu.Unlock()
}

// Subscriptions returns the subscribed topics in order
func (c *Client) Subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	topics := make([]string, 0, len(c.topics))
	for t := range c.topics {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// Wants reports whether a message on topic should reach the client. An
// empty topic or an empty subscription set matches everything.
func (c *Client) Wants(topic string) bool {
	if topic == "" {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.topics) == 0 || c.topics[topic]
}

func stringList(v interface{}) ([]string, bool) {
	switch list := v.(type) {
	case string:
		return []string{list}, true
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
