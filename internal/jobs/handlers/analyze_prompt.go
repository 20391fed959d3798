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
	"github.com/peakline/aeo-backend/internal/scoring"
	"github.com/peakline/aeo-backend/internal/services"
)

// AnalyzePrompt fans one prompt out across engines, stores each
// engine's result, and recomputes the composite score from whatever
// came back. Individual engine failures degrade the score rather than
// fail the job; the job fails only when every engine fails.
type AnalyzePrompt struct {
	log      *logger.Logger
	client   services.EngineClient
	results  repos.EngineResultRepo
	registry *authority.Registry
	scorer   *scoring.Service
}

func NewAnalyzePrompt(baseLog *logger.Logger, client services.EngineClient, results repos.EngineResultRepo, registry *authority.Registry, scorer *scoring.Service) *AnalyzePrompt {
	return &AnalyzePrompt{
		log:      baseLog.With("handler", "AnalyzePrompt"),
		client:   client,
		results:  results,
		registry: registry,
		scorer:   scorer,
	}
}

func (h *AnalyzePrompt) Type() string { return types.JobTypeAnalyzePrompt }

type analyzePromptPayload struct {
	PromptID uuid.UUID `json:"prompt_id"`
	Prompt   string    `json:"prompt"`
	Engines  []string  `json:"engines,omitempty"`
}

func (h *AnalyzePrompt) Run(ctx context.Context, job *types.Job) (map[string]any, error) {
	var p analyzePromptPayload
	if err := parsePayload(job, &p); err != nil {
		return nil, err
	}
	if p.PromptID == uuid.Nil || p.Prompt == "" {
		return nil, apperr.Permanent(fmt.Errorf("analyze_prompt payload missing prompt_id or prompt"))
	}
	engines := p.Engines
	if len(engines) == 0 {
		engines = types.KnownEngines
	}
	for _, engine := range engines {
		if !knownEngine(engine) {
			return nil, apperr.Permanent(fmt.Errorf("unknown engine %q", engine))
		}
	}

	queried := 0
	failed := 0
	for _, engine := range engines {
		if _, err := queryAndStore(ctx, h.log, h.client, h.results, h.registry, p.PromptID, engine, p.Prompt); err != nil {
			h.log.Warn("Engine query failed", "prompt_id", p.PromptID, "engine", engine, "error", err)
			failed++
			continue
		}
		queried++
	}
	if queried == 0 {
		return nil, fmt.Errorf("all %d engines failed for prompt %s", failed, p.PromptID)
	}

	score, err := h.scorer.ScoreStored(ctx, p.PromptID, scoring.Options{})
	if err != nil {
		return nil, fmt.Errorf("score prompt %s: %w", p.PromptID, err)
	}

	return map[string]any{
		"prompt_id":           p.PromptID,
		"engines_queried":     queried,
		"engines_failed":      failed,
		"ai_visibility_score": score.AIVisibilityScore,
		"confidence":          score.Confidence,
		"is_estimated":        score.IsEstimated,
	}, nil
}
