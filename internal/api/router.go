package api

import (
	"net/http"

	"github.com/ekobres/spook/internal/api/handlers"
	"github.com/ekobres/spook/internal/api/middleware"
	"github.com/ekobres/spook/internal/config"
	"github.com/ekobres/spook/internal/core/metrics"
	"github.com/ekobres/spook/pkg/logger"
	"github.com/ekobres/spook/pkg/utils"
	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the main HTTP router. collector may be
// nil, which disables /metrics and request metrics.
func NewRouter(cfg *config.Config, deps handlers.Dependencies, collector *metrics.PrometheusCollector, log *logger.BatchLogger) *gin.Engine {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.Server.Mode == "test" {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	if deps.Logger == nil {
		deps.Logger = log.Logger
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true

	// Global middleware
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.ErrorHandlingMiddleware(log.Logger))
	router.Use(middleware.LoggingMiddleware(log))
	router.Use(middleware.CORSMiddleware())
	if collector != nil {
		router.Use(middleware.MetricsMiddleware(collector))
	}

	h := handlers.NewHandlers(deps)

	router.NoRoute(func(c *gin.Context) {
		utils.SendError(c, http.StatusNotFound, "Endpoint not found")
	})
	router.NoMethod(func(c *gin.Context) {
		utils.SendError(c, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Public routes
	router.GET("/health", h.Health)
	if collector != nil && cfg.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(collector.Handler()))
	}
	if deps.Hub != nil && cfg.WebSocket.Enabled {
		router.GET("/ws", h.WebSocket)
	}

	api := router.Group("/api/v1")
	if cfg.Auth.Enabled {
		api.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret))
	}
	{
		api.GET("/version", h.Version)

		services := api.Group("/services")
		{
			services.GET("", h.ListServices)
			services.POST("/list_filtered_entities", h.ListFilteredEntities)
			services.GET("/list_filtered_entities/fields", h.GetFields)
			services.GET("/list_hidden_entities", h.ListHiddenEntities)
			services.POST("/list_hidden_entities", h.ListHiddenEntities)
		}

		api.GET("/options/:kind", h.GetOptions)

		reg := api.Group("/registry")
		{
			reg.GET("/status", h.GetRegistryStatus)
			reg.POST("/refresh", h.RefreshRegistry)
		}

		api.GET("/calls", h.GetRecentCalls)

		if deps.Hub != nil {
			api.GET("/websocket/stats", h.GetWebSocketStats)
		}
	}

	return router
}
