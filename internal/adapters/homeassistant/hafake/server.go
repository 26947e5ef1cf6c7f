// Package hafake provides an in-process Home Assistant stand-in for tests.
// It speaks the WebSocket auth handshake, answers commands from a result
// table, tracks event subscriptions and serves REST /api/config.
package hafake

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

type commandError struct {
	Code    string
	Message string
}

type conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	subs    map[int]string
}

func (c *conn) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(v)
}

// Server is a fake Home Assistant instance
type Server struct {
	*httptest.Server

	Token     string
	HAVersion string

	t        *testing.T
	mu       sync.Mutex
	results  map[string]interface{}
	errs     map[string]commandError
	conns    map[*conn]struct{}
	commands map[string]int
}

// New starts a fake instance that accepts token
func New(t *testing.T, token string) *Server {
	t.Helper()

	s := &Server{
		Token:     token,
		HAVersion: "2024.6.0",
		t:         t,
		results:   make(map[string]interface{}),
		errs:      make(map[string]commandError),
		conns:     make(map[*conn]struct{}),
		commands:  make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/websocket", s.handleWebSocket)
	mux.HandleFunc("/api/config", s.handleConfig)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)

	return s
}

// SetResult sets the result returned for a command type
func (s *Server) SetResult(command string, result interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[command] = result
	delete(s.errs, command)
}

// SetError makes a command fail with code
func (s *Server) SetError(command, code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[command] = commandError{Code: code, Message: message}
}

// CommandCount reports how many times a command was received
func (s *Server) CommandCount(command string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commands[command]
}

// Subscribed reports whether any connection subscribed to eventType
func (s *Server) Subscribed(eventType string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		for _, et := range c.subs {
			if et == eventType {
				return true
			}
		}
	}
	return false
}

// WaitSubscribed polls until eventType has a subscriber or timeout passes
func (s *Server) WaitSubscribed(eventType string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.Subscribed(eventType) {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// Fire delivers an event to every subscriber of eventType
func (s *Server) Fire(eventType string, data map[string]interface{}) {
	s.mu.Lock()
	type target struct {
		c  *conn
		id int
	}
	var targets []target
	for c := range s.conns {
		for id, et := range c.subs {
			if et == eventType || et == "" {
				targets = append(targets, target{c: c, id: id})
			}
		}
	}
	s.mu.Unlock()

	for _, tg := range targets {
		tg.c.writeJSON(map[string]interface{}{
			"id":   tg.id,
			"type": "event",
			"event": map[string]interface{}{
				"event_type": eventType,
				"data":       data,
				"origin":     "LOCAL",
				"time_fired": time.Now().UTC().Format(time.RFC3339Nano),
			},
		})
	}
}

// DropConnections closes every open WebSocket connection
func (s *Server) DropConnections() {
	s.mu.Lock()
	conns := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.ws.Close()
	}
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+s.Token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"version":       s.HAVersion,
		"location_name": "Home",
		"time_zone":     "UTC",
		"state":         "RUNNING",
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.t.Errorf("failed to upgrade: %v", err)
		return
	}
	c := &conn{ws: ws, subs: make(map[int]string)}
	defer ws.Close()

	if err := c.writeJSON(map[string]interface{}{"type": "auth_required", "ha_version": s.HAVersion}); err != nil {
		return
	}

	var auth map[string]interface{}
	if err := ws.ReadJSON(&auth); err != nil {
		return
	}
	if auth["type"] != "auth" || auth["access_token"] != s.Token {
		c.writeJSON(map[string]interface{}{"type": "auth_invalid", "message": "Invalid access token"})
		return
	}

	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
	}()

	if err := c.writeJSON(map[string]interface{}{"type": "auth_ok", "ha_version": s.HAVersion}); err != nil {
		return
	}

	for {
		var req map[string]interface{}
		if err := ws.ReadJSON(&req); err != nil {
			return
		}
		if err := s.answer(c, req); err != nil {
			return
		}
	}
}

func (s *Server) answer(c *conn, req map[string]interface{}) error {
	idf, _ := req["id"].(float64)
	id := int(idf)
	msgType, _ := req["type"].(string)

	s.mu.Lock()
	s.commands[msgType]++
	cmdErr, failed := s.errs[msgType]
	result, known := s.results[msgType]
	switch msgType {
	case "subscribe_events":
		eventType, _ := req["event_type"].(string)
		c.subs[id] = eventType
		known = true
	case "unsubscribe_events":
		subf, _ := req["subscription"].(float64)
		delete(c.subs, int(subf))
		known = true
	case "ping":
		s.mu.Unlock()
		return c.writeJSON(map[string]interface{}{"id": id, "type": "pong"})
	}
	s.mu.Unlock()

	if failed {
		return c.writeJSON(errorMessage(id, cmdErr.Code, cmdErr.Message))
	}
	if !known {
		return c.writeJSON(errorMessage(id, "unknown_command", "Unknown command."))
	}
	return c.writeJSON(map[string]interface{}{
		"id":      id,
		"type":    "result",
		"success": true,
		"result":  result,
	})
}

func errorMessage(id int, code, message string) map[string]interface{} {
	return map[string]interface{}{
		"id":      id,
		"type":    "result",
		"success": false,
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	}
}

// WebSocketURL returns the ws:// address of the fake
func (s *Server) WebSocketURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/api/websocket"
}
