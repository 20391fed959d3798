package handlers

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/peakline/aeo-backend/internal/authority"
	"github.com/peakline/aeo-backend/internal/data/repos"
	types "github.com/peakline/aeo-backend/internal/domain"
	"github.com/peakline/aeo-backend/internal/pkg/dbctx"
	apperr "github.com/peakline/aeo-backend/internal/pkg/errors"
	"github.com/peakline/aeo-backend/internal/pkg/logger"
	"github.com/peakline/aeo-backend/internal/services"
)

// ScrapeLLM queries one answer engine for one prompt, stores the
// analyzed result, and folds the attempt into the engine's authority
// row.
type ScrapeLLM struct {
	log      *logger.Logger
	client   services.EngineClient
	results  repos.EngineResultRepo
	registry *authority.Registry
}

func NewScrapeLLM(baseLog *logger.Logger, client services.EngineClient, results repos.EngineResultRepo, registry *authority.Registry) *ScrapeLLM {
	return &ScrapeLLM{
		log:      baseLog.With("handler", "ScrapeLLM"),
		client:   client,
		results:  results,
		registry: registry,
	}
}

func (h *ScrapeLLM) Type() string { return types.JobTypeScrapeLLM }

func (h *ScrapeLLM) Engine(job *types.Job) string { return payloadEngine(job) }

type scrapeLLMPayload struct {
	PromptID uuid.UUID `json:"prompt_id"`
	Engine   string    `json:"engine"`
	Prompt   string    `json:"prompt"`
}

func (h *ScrapeLLM) Run(ctx context.Context, job *types.Job) (map[string]any, error) {
	var p scrapeLLMPayload
	if err := parsePayload(job, &p); err != nil {
		return nil, err
	}
	if p.PromptID == uuid.Nil || p.Prompt == "" {
		return nil, apperr.Permanent(fmt.Errorf("scrape_llm payload missing prompt_id or prompt"))
	}
	if !knownEngine(p.Engine) {
		return nil, apperr.Permanent(fmt.Errorf("unknown engine %q", p.Engine))
	}
	return queryAndStore(ctx, h.log, h.client, h.results, h.registry, p.PromptID, p.Engine, p.Prompt)
}

func knownEngine(engine string) bool {
	for _, e := range types.KnownEngines {
		if e == engine {
			return true
		}
	}
	return false
}

// queryAndStore is the shared scrape path: query the engine, record
// the outcome on its authority row whether or not the query succeeded,
// then upsert the analyzed result.
func queryAndStore(ctx context.Context, log *logger.Logger, client services.EngineClient, results repos.EngineResultRepo, registry *authority.Registry, promptID uuid.UUID, engine, prompt string) (map[string]any, error) {
	answer, qErr := client.Query(ctx, engine, prompt)

	success := qErr == nil
	var responseTime *int
	if answer != nil {
		responseTime = answer.ResponseTimeMs
	}
	if rErr := registry.RecordQueryOutcome(ctx, engine, success, responseTime); rErr != nil {
		log.Warn("RecordQueryOutcome failed", "engine", engine, "error", rErr)
	}
	if qErr != nil {
		return nil, fmt.Errorf("query %s: %w", engine, qErr)
	}

	row := &types.EngineResult{
		ID:                   uuid.New(),
		PromptID:             promptID,
		Engine:               engine,
		Mentioned:            answer.Mentioned,
		Position:             answer.Position,
		CitationCount:        answer.CitationCount,
		BrandCitations:       answer.BrandCitations,
		Sentiment:            answer.Sentiment,
		SentimentScore:       answer.SentimentScore,
		CompetitorsMentioned: answer.CompetitorsMentioned,
		ResponseTimeMs:       answer.ResponseTimeMs,
	}
	if row.Sentiment == "" {
		row.Sentiment = types.SentimentNeutral
	}
	if err := results.Upsert(dbctx.Context{Ctx: ctx}, row); err != nil {
		return nil, fmt.Errorf("store engine result: %w", err)
	}
	return map[string]any{
		"engine":    engine,
		"mentioned": answer.Mentioned,
		"citations": answer.CitationCount,
	}, nil
}
