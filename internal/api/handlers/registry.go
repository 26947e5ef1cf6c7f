package handlers

import (
	"net/http"

	"github.com/ekobres/spook/internal/core/mirror"
	"github.com/ekobres/spook/pkg/utils"
	"github.com/gin-gonic/gin"
)

// GetRegistryStatus reports the mirror state and the snapshot size
func (h *Handlers) GetRegistryStatus(c *gin.Context) {
	data := gin.H{"snapshot": h.store.Stats()}
	if h.mirror != nil {
		data["mirror"] = h.mirror.Status()
	}
	utils.SendSuccess(c, data)
}

// RefreshRegistry queues a full registry reload
func (h *Handlers) RefreshRegistry(c *gin.Context) {
	if h.mirror == nil {
		utils.SendError(c, http.StatusServiceUnavailable, "Registry mirror is not running")
		return
	}

	h.mirror.RequestRefresh(mirror.ReasonManual)
	c.JSON(http.StatusAccepted, utils.Response{
		Success:   true,
		Data:      gin.H{"queued": true},
		Timestamp: utils.Now(),
	})
}
