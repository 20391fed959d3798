package app

import (
	"github.com/gin-gonic/gin"

	"github.com/peakline/aeo-backend/internal/server"
)

func wireRouter(handlerset Handlers, middlewareset Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AuthMiddleware: middlewareset.Auth,
		JobsHandler:    handlerset.Jobs,
		ScoresHandler:  handlerset.Scores,
		EnginesHandler: handlerset.Engines,
		ProcessHandler: handlerset.Process,
		AlertsHandler:  handlerset.Alerts,
	})
}
