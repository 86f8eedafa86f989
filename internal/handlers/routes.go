package handlers

import (
	"github.com/gin-gonic/gin"

	"ai-app-builder/internal/metrics"
	"ai-app-builder/internal/middleware"
)

// RegisterRoutes mounts every route on r. ws serves the project
// websocket and may be nil.
func (h *Handler) RegisterRoutes(r gin.IRouter, ws gin.HandlerFunc) {
	r.GET("/metrics", metrics.PrometheusHandler())

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/ready", h.Ready)
		api.POST("/generate", h.Generate)

		projects := api.Group("/projects")
		{
			projects.POST("", h.CreateProject)
			projects.GET("", h.ListProjects)
			projects.GET("/:id", h.GetProject)
			projects.DELETE("/:id", h.DeleteProject)
			projects.POST("/:id/cancel", h.CancelProject)
			projects.GET("/:id/preview", middleware.PreviewCSP(), h.GetPreview)
			projects.GET("/:id/codebase", h.GetCodebase)
			projects.GET("/:id/report", h.GetReport)
		}

		keys := api.Group("/keys")
		{
			keys.GET("", h.ListKeys)
			keys.POST("/verify", middleware.VerifyRateLimit(), h.VerifyKey)
			keys.POST("/verify-all", middleware.VerifyRateLimit(), h.VerifyAllKeys)
			keys.PUT("/:service", h.PutKey)
			keys.DELETE("/:service", h.DeleteKey)
		}

		flows := api.Group("/flows")
		{
			flows.POST("/app-name", h.SuggestAppName)
			flows.POST("/features", h.GenerateFeatures)
			flows.POST("/code-metrics", h.EstimateCodeMetrics)
		}

		api.GET("/templates", h.ListTemplates)
		api.GET("/templates/:id", h.GetTemplate)
	}

	if ws != nil {
		r.GET("/ws/projects/:id", ws)
	}
}
