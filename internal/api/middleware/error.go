package middleware

import (
	"fmt"
	"runtime/debug"

	apperrors "github.com/ekobres/spook/pkg/errors"
	"github.com/ekobres/spook/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorHandlingMiddleware recovers panics, logs them with the request
// context and answers 500.
func ErrorHandlingMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.WithFields(logrus.Fields{
			"request_id":  c.GetString(utils.RequestIDKey),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"query":       c.Request.URL.RawQuery,
			"client_ip":   c.ClientIP(),
			"panic":       fmt.Sprintf("%v", recovered),
			"stack_trace": string(debug.Stack()),
		}).Error("Panic recovered in HTTP handler")

		utils.SendAppError(c, apperrors.ErrInternalServer)
	})
}
