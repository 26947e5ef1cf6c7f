package handlers

import (
	"github.com/ekobres/spook/pkg/utils"
	"github.com/gin-gonic/gin"
)

// GetOptions returns the selector choices of one kind
func (h *Handlers) GetOptions(c *gin.Context) {
	kind := c.Param("kind")

	opts, err := h.options.Options(kind)
	if err != nil {
		utils.SendAppError(c, toAppError(err))
		return
	}

	utils.SendSuccessWithMeta(c, opts, gin.H{"kind": kind, "count": len(opts)})
}
