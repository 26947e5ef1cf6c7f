package handlers

import (
	"github.com/ekobres/spook/internal/websocket"
	"github.com/ekobres/spook/pkg/utils"
	"github.com/gin-gonic/gin"
)

// WebSocket upgrades the connection and attaches it to the push hub
func (h *Handlers) WebSocket(c *gin.Context) {
	websocket.HandleWebSocket(h.hub, c.Writer, c.Request)
}

// GetWebSocketStats returns push hub statistics
func (h *Handlers) GetWebSocketStats(c *gin.Context) {
	utils.SendSuccess(c, h.hub.GetStats())
}
