package handlers

import (
	"net/http"

	"github.com/ekobres/spook/internal/core/metrics"
	"github.com/ekobres/spook/pkg/utils"
	"github.com/ekobres/spook/pkg/version"
	"github.com/gin-gonic/gin"
)

// Health runs the component checks. Unhealthy answers 503 so load
// balancers and the Supervisor watchdog can act on it.
func (h *Handlers) Health(c *gin.Context) {
	report := h.health.Check(c.Request.Context())

	data := gin.H{
		"status":     report.Status,
		"message":    report.Message,
		"service":    version.Name,
		"version":    version.GetVersion(),
		"components": report.Components,
		"system":     report.SystemInfo,
	}
	if h.mirror != nil {
		data["mirror"] = h.mirror.Status()
	}

	if report.Status == metrics.StatusUnhealthy {
		c.JSON(http.StatusServiceUnavailable, utils.Response{
			Success:   false,
			Data:      data,
			Error:     report.Message,
			Timestamp: utils.Now(),
		})
		return
	}

	utils.SendSuccess(c, data)
}

// Version returns build information
func (h *Handlers) Version(c *gin.Context) {
	utils.SendSuccess(c, version.GetBuildInfo())
}
