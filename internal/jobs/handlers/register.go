package handlers

import (
	"github.com/peakline/aeo-backend/internal/authority"
	"github.com/peakline/aeo-backend/internal/data/repos"
	"github.com/peakline/aeo-backend/internal/jobs"
	"github.com/peakline/aeo-backend/internal/pkg/logger"
	"github.com/peakline/aeo-backend/internal/scoring"
	"github.com/peakline/aeo-backend/internal/services"
)

// RegisterAll wires every known job type into the registry.
func RegisterAll(
	reg *jobs.Registry,
	baseLog *logger.Logger,
	client services.EngineClient,
	results repos.EngineResultRepo,
	registry *authority.Registry,
	scorer *scoring.Service,
	alerts services.AlertService,
) error {
	all := []jobs.Handler{
		NewAnalyzePrompt(baseLog, client, results, registry, scorer),
		NewScrapeLLM(baseLog, client, results, registry),
		NewScrapeAIOverview(baseLog, client, results, registry),
		NewVerifyCitation(baseLog, client),
		NewSendAlert(baseLog, alerts),
	}
	for _, h := range all {
		if err := reg.Register(h); err != nil {
			return err
		}
	}
	return nil
}
