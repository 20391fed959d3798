package app

import (
	"github.com/peakline/aeo-backend/internal/handlers"
)

type Handlers struct {
	Jobs    *handlers.JobsHandler
	Scores  *handlers.ScoresHandler
	Engines *handlers.EnginesHandler
	Process *handlers.ProcessHandler
	Alerts  *handlers.AlertsHandler
}

func wireHandlers(serviceset Services) Handlers {
	return Handlers{
		Jobs:    handlers.NewJobsHandler(serviceset.Jobs),
		Scores:  handlers.NewScoresHandler(serviceset.Scoring),
		Engines: handlers.NewEnginesHandler(serviceset.Authority),
		Process: handlers.NewProcessHandler(serviceset.Processor),
		Alerts:  handlers.NewAlertsHandler(serviceset.Alerts),
	}
}
