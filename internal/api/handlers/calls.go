package handlers

import (
	"net/http"
	"strconv"

	"github.com/ekobres/spook/pkg/utils"
	"github.com/gin-gonic/gin"
)

const (
	defaultCallsLimit = 50
	maxCallsLimit     = 1000
)

// GetRecentCalls lists the newest served action calls
func (h *Handlers) GetRecentCalls(c *gin.Context) {
	if h.calls == nil {
		utils.SendError(c, http.StatusServiceUnavailable, "Call history is disabled")
		return
	}

	limit := defaultCallsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.SendError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxCallsLimit)
	}

	calls, err := h.calls.Recent(c.Request.Context(), limit)
	if err != nil {
		h.log.WithError(err).Error("Failed to list action calls")
		utils.SendError(c, http.StatusInternalServerError, "Failed to list action calls")
		return
	}

	utils.SendSuccessWithMeta(c, calls, gin.H{"count": len(calls), "limit": limit})
}
