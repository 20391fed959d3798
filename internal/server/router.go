package server

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/peakline/aeo-backend/internal/handlers"
	"github.com/peakline/aeo-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware *middleware.AuthMiddleware
	JobsHandler    *handlers.JobsHandler
	ScoresHandler  *handlers.ScoresHandler
	EnginesHandler *handlers.EnginesHandler
	ProcessHandler *handlers.ProcessHandler
	AlertsHandler  *handlers.AlertsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	{
		api.POST("/jobs", cfg.JobsHandler.Enqueue)
		api.GET("/jobs", cfg.JobsHandler.List)
		api.GET("/jobs/stats", cfg.JobsHandler.Stats)
		api.GET("/jobs/:id", cfg.JobsHandler.GetByID)

		api.GET("/scores/:promptId", cfg.ScoresHandler.GetByPrompt)
		api.POST("/scores/:promptId/recompute", cfg.ScoresHandler.Recompute)

		api.GET("/engines", cfg.EnginesHandler.List)
		api.GET("/engines/:engine", cfg.EnginesHandler.Get)
		api.PUT("/engines/:engine/maintenance", cfg.EnginesHandler.SetMaintenance)

		api.POST("/process", cfg.ProcessHandler.Trigger)

		api.GET("/alerts", cfg.AlertsHandler.List)
	}

	return router
}

func allowedOrigins() []string {
	raw := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if raw == "" {
		return []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
