package main

import (
	"github.com/acme/supportlens/internal/config"
	"github.com/acme/supportlens/internal/handlers"
	"github.com/acme/supportlens/internal/middleware"
	"github.com/acme/supportlens/pkg/logger"
	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, cfg *config.Config, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Model calls are the expensive path; keep a tighter limit there.
	chatLimiter := middleware.NewRateLimiter(5, 10)

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "SupportLens API"})
	})
	r.GET("/health", handlers.Health)

	api := r.Group("/api")
	api.Use(middleware.APIKeyAuth(cfg.Auth.APIKey))
	{
		api.POST("/chat", chatLimiter.Middleware(), svc.chatHandler.Chat)
		api.POST("/evaluate/factuality", chatLimiter.Middleware(), svc.evaluateHandler.Factuality)

		prompts := api.Group("/prompts")
		{
			prompts.GET("", svc.promptHandler.List)
			prompts.POST("", svc.promptHandler.Save)
			prompts.POST("/render", svc.promptHandler.Render)
			prompts.GET("/:name", svc.promptHandler.Get)
			prompts.GET("/:name/versions", svc.promptHandler.ListVersions)
		}

		feedback := api.Group("/feedback")
		{
			feedback.POST("", svc.feedbackHandler.Submit)
			feedback.GET("/metrics", svc.feedbackHandler.Metrics)
		}

		api.POST("/interactions/:id/flag", svc.feedbackHandler.Flag)
		api.GET("/costs/report", svc.costHandler.Report)
	}
}
