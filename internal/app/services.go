package app

import (
	"gorm.io/gorm"

	"github.com/peakline/aeo-backend/internal/authority"
	"github.com/peakline/aeo-backend/internal/clients/engines"
	redisclient "github.com/peakline/aeo-backend/internal/clients/redis"
	"github.com/peakline/aeo-backend/internal/jobs"
	"github.com/peakline/aeo-backend/internal/jobs/handlers"
	"github.com/peakline/aeo-backend/internal/jobs/worker"
	"github.com/peakline/aeo-backend/internal/pkg/logger"
	"github.com/peakline/aeo-backend/internal/scoring"
	"github.com/peakline/aeo-backend/internal/services"
)

type Services struct {
	Authority    *authority.Registry
	Scoring      *scoring.Service
	Jobs         services.JobService
	Alerts       services.AlertService
	EngineClient services.EngineClient
	Processor    *jobs.Processor
	Worker       *worker.Worker

	AlertBus      redisclient.AlertBus
	EngineLimiter redisclient.EngineLimiter
}

// wireServices builds the service graph. Redis and the engine gateway
// are optional at startup: without redis there is no alert fan-out and
// no engine rate limiting, without the gateway the scrape handlers
// fail their jobs into retries.
func wireServices(db *gorm.DB, log *logger.Logger, reposet Repos) (Services, error) {
	var s Services

	bus, err := redisclient.NewAlertBus(log)
	if err != nil {
		log.Warn("Alert bus unavailable, alerts will not fan out", "error", err)
	} else {
		s.AlertBus = bus
	}
	limiter, err := redisclient.NewEngineLimiter(log)
	if err != nil {
		log.Warn("Engine limiter unavailable, inflight limits disabled", "error", err)
	} else {
		s.EngineLimiter = limiter
	}

	client, err := engines.NewGatewayClient(log)
	if err != nil {
		log.Warn("Engine gateway unavailable, scrape jobs will fail into retries", "error", err)
		s.EngineClient = engines.Unconfigured{}
	} else {
		s.EngineClient = client
	}

	s.Authority = authority.NewRegistry(db, log, reposet.EngineAuthority, reposet.EngineOutage)
	s.Scoring = scoring.NewService(db, log, reposet.EngineResults, reposet.Scores, reposet.ScoringConfigs, s.Authority)
	s.Jobs = services.NewJobService(db, log, reposet.Jobs)
	s.Alerts = services.NewAlertService(db, log, reposet.Alerts, s.AlertBus)

	registry := jobs.NewRegistry()
	if err := handlers.RegisterAll(registry, log, s.EngineClient, reposet.EngineResults, s.Authority, s.Scoring, s.Alerts); err != nil {
		return Services{}, err
	}
	s.Processor = jobs.NewProcessor(log, reposet.Jobs, registry, s.EngineLimiter, s.Alerts)
	s.Worker = worker.NewWorker(log, s.Processor)

	return s, nil
}
