package middleware

import (
	"time"

	"github.com/ekobres/spook/pkg/logger"
	"github.com/ekobres/spook/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// LoggingMiddleware logs every request. Successful requests are folded into
// batch summaries by the BatchLogger.
func LoggingMiddleware(log *logger.BatchLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		log.LogRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start), logrus.Fields{
			"client_ip":     c.ClientIP(),
			"method":        c.Request.Method,
			"path":          c.Request.URL.Path,
			"status_code":   c.Writer.Status(),
			"user_agent":    c.Request.UserAgent(),
			"request_id":    c.GetString(utils.RequestIDKey),
			"error_message": c.Errors.ByType(gin.ErrorTypePrivate).String(),
		})
	}
}
