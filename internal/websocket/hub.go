package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/ekobres/spook/internal/core/actions"
	"github.com/ekobres/spook/internal/core/metrics"
	"github.com/sirupsen/logrus"
)

// Caller runs an action for a client request
type Caller interface {
	Call(ctx context.Context, requestID, transport, action string, data map[string]interface{}) (interface{}, actions.Call, error)
}

type outbound struct {
	topic string
	data  []byte
}

// Hub maintains the set of active clients and broadcasts messages to the clients
type Hub struct {
	clients map[*Client]bool

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	logger   *logrus.Logger
	recorder metrics.MetricsCollector
	caller   Caller

	heartbeat    time.Duration
	pingInterval time.Duration
	writeWait    time.Duration

	mu    sync.RWMutex
	stats *HubStats
}

// HubStats contains hub statistics
type HubStats struct {
	ConnectedClients int       `json:"connected_clients"`
	TotalConnections int64     `json:"total_connections"`
	MessagesSent     int64     `json:"messages_sent"`
	MessagesReceived int64     `json:"messages_received"`
	MessagesDropped  int64     `json:"messages_dropped"`
	LastActivity     time.Time `json:"last_activity"`
}

// HubOptions tunes keepalive timings. Zero values use the defaults.
type HubOptions struct {
	Heartbeat    time.Duration
	PingInterval time.Duration
	WriteTimeout time.Duration
}

// NewHub creates a new WebSocket hub. recorder may be nil.
func NewHub(opts HubOptions, recorder metrics.MetricsCollector, logger *logrus.Logger) *Hub {
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 30 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = pingPeriod
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = writeWait
	}
	if recorder == nil {
		recorder = metrics.NoopCollector{}
	}

	return &Hub{
		clients:      make(map[*Client]bool),
		broadcast:    make(chan outbound, 256),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		done:         make(chan struct{}),
		logger:       logger,
		recorder:     recorder,
		heartbeat:    opts.Heartbeat,
		pingInterval: opts.PingInterval,
		writeWait:    opts.WriteTimeout,
		stats: &HubStats{
			LastActivity: time.Now(),
		},
	}
}

// SetCaller enables "call" requests. Set before Run.
func (h *Hub) SetCaller(caller Caller) {
	h.caller = caller
}

// Run handles client registration and broadcasting until ctx is done, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket hub started")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			h.logger.Info("WebSocket hub stopped")
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.broadcastMessage(msg)

		case <-ticker.C:
			h.sendHeartbeat()
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.stats.TotalConnections++
	h.stats.ConnectedClients = len(h.clients)
	h.stats.LastActivity = time.Now()
	count := len(h.clients)
	h.mu.Unlock()

	h.recorder.RecordWebSocketConnection("connect")

	h.logger.WithFields(logrus.Fields{
		"client_id":         client.ID,
		"remote_addr":       client.RemoteAddr,
		"connected_clients": count,
	}).Info("WebSocket client connected")

	welcome := Message{
		Type: MessageTypeConnection,
		Data: map[string]interface{}{
			"status":    "connected",
			"client_id": client.ID,
			"topics":    Topics,
		},
	}
	client.trySend(welcome.ToJSON())
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		client.closed = true
		close(client.send)
		h.stats.ConnectedClients = len(h.clients)
		h.stats.LastActivity = time.Now()
	}
	count := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}

	h.recorder.RecordWebSocketConnection("disconnect")

	h.logger.WithFields(logrus.Fields{
		"client_id":         client.ID,
		"connected_clients": count,
	}).Info("WebSocket client disconnected")
}

func (h *Hub) closeAll() {
	for _, client := range h.GetAllClients() {
		h.unregisterClient(client)
	}
}

func (h *Hub) broadcastMessage(msg outbound) {
	var slow []*Client
	sent := 0

	h.mu.RLock()
	for client := range h.clients {
		if !client.Wants(msg.topic) {
			continue
		}
		select {
		case client.send <- msg.data:
			sent++
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.WithField("client_id", client.ID).Warn("WebSocket client send buffer full, disconnecting")
		h.unregisterClient(client)
	}

	h.mu.Lock()
	h.stats.MessagesSent += int64(sent)
	h.stats.LastActivity = time.Now()
	h.mu.Unlock()

	for i := 0; i < sent; i++ {
		h.recorder.RecordWebSocketConnection("message_sent")
	}

	h.logger.WithFields(logrus.Fields{
		"topic":        msg.topic,
		"message_size": len(msg.data),
		"clients_sent": sent,
	}).Debug("Message broadcasted to WebSocket clients")
}

func (h *Hub) sendHeartbeat() {
	heartbeat := Message{
		Type: MessageTypeHeartbeat,
		Data: map[string]interface{}{
			"clients": h.GetClientCount(),
		},
	}
	h.Publish("", heartbeat)
}

// Publish queues message for clients subscribed to topic. An empty topic
// reaches every client.
func (h *Hub) Publish(topic string, message Message) {
	select {
	case h.broadcast <- outbound{topic: topic, data: message.ToJSON()}:
	default:
		h.mu.Lock()
		h.stats.MessagesDropped++
		h.mu.Unlock()
		h.logger.WithField("message_type", message.Type).Warn("Broadcast channel is full, message dropped")
	}
}

// BroadcastToAll broadcasts a message to all connected clients
func (h *Hub) BroadcastToAll(message Message) {
	h.Publish("", message)
}

func (h *Hub) countReceived() {
	h.mu.Lock()
	h.stats.MessagesReceived++
	h.stats.LastActivity = time.Now()
	h.mu.Unlock()
	h.recorder.RecordWebSocketConnection("message_received")
}

// GetStats returns current hub statistics
func (h *Hub) GetStats() *HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	statsCopy := *h.stats
	statsCopy.ConnectedClients = len(h.clients)
	return &statsCopy
}

// GetClientCount returns the current number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetAllClients returns a copy of all connected clients
func (h *Hub) GetAllClients() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}

	return clients
}
