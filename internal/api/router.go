// Package api serves the monitor control surface over HTTP.
package api

import (
	"net/http"

	"codeberg.org/mutker/robotwatch/internal/logger"
	"github.com/gin-gonic/gin"
)

// NewRouter mounts the control endpoints under /api. metricsHandler is
// served at /metrics when not nil.
func NewRouter(h *Handler, metricsHandler http.Handler, log logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(log))

	api := r.Group("/api")
	{
		// Scheduler
		api.GET("/monitor", h.GetMonitor)
		api.POST("/monitor", h.PostMonitor)

		// Robots
		api.POST("/robots/:id/power-off", h.PowerOff)
		api.POST("/robots/:id/restore", h.Restore)
		api.POST("/robots/:id/check", h.Check)

		api.POST("/reset", h.Reset)

		// Outputs
		api.GET("/notifications", h.GetNotifications)
		api.GET("/incidents", h.GetIncidents)
	}

	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
