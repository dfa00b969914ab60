package api

import (
	"github.com/gin-gonic/gin"

	"github.com/havenmind/safeguard/internal/telemetry"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, handler *Handler, tp *telemetry.Provider) {
	// Health check
	router.GET("/health", handler.HealthCheck)

	if tp != nil {
		router.GET("/metrics", gin.WrapH(tp.Handler()))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Assessment endpoints
		assess := v1.Group("/assess")
		{
			assess.POST("", handler.Assess)            // POST /api/v1/assess
			assess.POST("/batch", handler.AssessBatch) // POST /api/v1/assess/batch
		}

		// Crisis event endpoints
		events := v1.Group("/events")
		{
			events.GET("", handler.ListActiveEvents)               // GET /api/v1/events
			events.GET("/:id", handler.GetEvent)                   // GET /api/v1/events/:id
			events.POST("/:id/escalate", handler.EscalateEvent)    // POST /api/v1/events/:id/escalate
			events.POST("/:id/resolve", handler.ResolveEvent)      // POST /api/v1/events/:id/resolve
			events.GET("/history/:user_id", handler.ListUserHistory) // GET /api/v1/events/history/:user_id
		}
	}
}
