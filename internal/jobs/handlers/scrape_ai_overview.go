package handlers

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/peakline/aeo-backend/internal/authority"
	"github.com/peakline/aeo-backend/internal/data/repos"
	types "github.com/peakline/aeo-backend/internal/domain"
	apperr "github.com/peakline/aeo-backend/internal/pkg/errors"
	"github.com/peakline/aeo-backend/internal/pkg/logger"
	"github.com/peakline/aeo-backend/internal/services"
)

// ScrapeAIOverview is the scrape path pinned to Google's AI Overview;
// the overview block renders for some queries only, so an absent block
// is a clean non-mention, not a failure.
type ScrapeAIOverview struct {
	log      *logger.Logger
	client   services.EngineClient
	results  repos.EngineResultRepo
	registry *authority.Registry
}

func NewScrapeAIOverview(baseLog *logger.Logger, client services.EngineClient, results repos.EngineResultRepo, registry *authority.Registry) *ScrapeAIOverview {
	return &ScrapeAIOverview{
		log:      baseLog.With("handler", "ScrapeAIOverview"),
		client:   client,
		results:  results,
		registry: registry,
	}
}

func (h *ScrapeAIOverview) Type() string { return types.JobTypeScrapeAIOverview }

func (h *ScrapeAIOverview) Engine(job *types.Job) string { return types.EngineAIOverview }

type scrapeAIOverviewPayload struct {
	PromptID uuid.UUID `json:"prompt_id"`
	Prompt   string    `json:"prompt"`
}

func (h *ScrapeAIOverview) Run(ctx context.Context, job *types.Job) (map[string]any, error) {
	var p scrapeAIOverviewPayload
	if err := parsePayload(job, &p); err != nil {
		return nil, err
	}
	if p.PromptID == uuid.Nil || p.Prompt == "" {
		return nil, apperr.Permanent(fmt.Errorf("scrape_ai_overview payload missing prompt_id or prompt"))
	}
	return queryAndStore(ctx, h.log, h.client, h.results, h.registry, p.PromptID, types.EngineAIOverview, p.Prompt)
}
