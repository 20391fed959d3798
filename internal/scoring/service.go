package scoring

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/peakline/aeo-backend/internal/authority"
	"github.com/peakline/aeo-backend/internal/data/repos"
	types "github.com/peakline/aeo-backend/internal/domain"
	"github.com/peakline/aeo-backend/internal/pkg/dbctx"
	"github.com/peakline/aeo-backend/internal/pkg/logger"
)

type Options struct {
	// ConfigVersion pins a specific scoring config; empty means the
	// active one (or built-in defaults when none is stored).
	ConfigVersion string
}

type Service struct {
	db       *gorm.DB
	log      *logger.Logger
	results  repos.EngineResultRepo
	scores   repos.ScoreResultRepo
	configs  repos.ScoringConfigRepo
	registry *authority.Registry
}

func NewService(db *gorm.DB, baseLog *logger.Logger, results repos.EngineResultRepo, scores repos.ScoreResultRepo, configs repos.ScoringConfigRepo, registry *authority.Registry) *Service {
	return &Service{
		db:       db,
		log:      baseLog.With("component", "ScoringService"),
		results:  results,
		scores:   scores,
		configs:  configs,
		registry: registry,
	}
}

// Score computes and upserts the composite score for a prompt from
// explicit per-engine results.
func (s *Service) Score(ctx context.Context, promptID uuid.UUID, results []*types.EngineResult, totals Totals, opts Options) (*types.ScoreResult, error) {
	ctx, span := otel.Tracer("scoring").Start(ctx, "scoring.Score")
	defer span.End()
	span.SetAttributes(attribute.Int("scoring.engine_results", len(results)))

	if promptID == uuid.Nil {
		return nil, fmt.Errorf("prompt id required")
	}

	cfg, err := s.resolveConfig(ctx, opts)
	if err != nil {
		return nil, err
	}

	auth, err := s.authorityMap(ctx)
	if err != nil {
		return nil, err
	}

	computed := Compute(results, auth, totals, cfg)

	breakdown, err := json.Marshal(computed.Breakdown)
	if err != nil {
		return nil, fmt.Errorf("marshal breakdown: %w", err)
	}
	degraded := computed.DegradedEngines
	if degraded == nil {
		degraded = []string{}
	}
	degradedJSON, err := json.Marshal(degraded)
	if err != nil {
		return nil, fmt.Errorf("marshal degraded engines: %w", err)
	}

	row := &types.ScoreResult{
		PromptID:            promptID,
		AIVisibilityScore:   computed.WeightedAVS,
		UnweightedAVS:       computed.UnweightedAVS,
		CitationScore:       computed.CitationScore,
		BrandAuthorityScore: computed.BrandAuthorityScore,
		ShareOfVoice:        computed.ShareOfVoice,
		Breakdown:           datatypes.JSON(breakdown),
		Confidence:          computed.Confidence,
		IsEstimated:         computed.IsEstimated,
		DegradedEngines:     datatypes.JSON(degradedJSON),
		ScoringVersion:      cfg.Version,
	}
	if err := s.scores.Upsert(dbctx.Context{Ctx: ctx}, row); err != nil {
		return nil, err
	}
	if computed.IsEstimated {
		s.log.Warn("Score computed with unavailable engines", "prompt_id", promptID, "degraded", degraded)
	}
	return row, nil
}

// ScoreStored scores a prompt from its stored engine results, deriving
// totals from the rows and using the previous composite score as the
// historical trend.
func (s *Service) ScoreStored(ctx context.Context, promptID uuid.UUID, opts Options) (*types.ScoreResult, error) {
	dbc := dbctx.Context{Ctx: ctx}
	results, err := s.results.ListByPrompt(dbc, promptID)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no engine results for prompt %s", promptID)
	}

	totals := DeriveTotals(results)
	prev, err := s.scores.GetByPrompt(dbc, promptID)
	if err != nil {
		s.log.Warn("Previous score lookup failed, trend treated as zero", "prompt_id", promptID, "error", err)
	} else if prev != nil {
		totals.HistoricalTrend = prev.AIVisibilityScore
	}

	return s.Score(ctx, promptID, results, totals, opts)
}

func (s *Service) GetByPrompt(ctx context.Context, promptID uuid.UUID) (*types.ScoreResult, error) {
	return s.scores.GetByPrompt(dbctx.Context{Ctx: ctx}, promptID)
}

// DeriveTotals aggregates prompt-level totals from per-engine rows.
func DeriveTotals(results []*types.EngineResult) Totals {
	var t Totals
	for _, r := range results {
		t.BrandCitations += r.BrandCitations
		t.TotalCitations += r.CitationCount
		if r.Mentioned {
			t.BrandMentions++
		}
		t.CompetitorMentions += r.CompetitorsMentioned
	}
	return t
}

func (s *Service) resolveConfig(ctx context.Context, opts Options) (types.ScoringConfig, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if opts.ConfigVersion != "" {
		cfg, err := s.configs.GetByVersion(dbc, opts.ConfigVersion)
		if err != nil {
			return types.ScoringConfig{}, err
		}
		if cfg == nil {
			return types.ScoringConfig{}, fmt.Errorf("scoring config version %q not found", opts.ConfigVersion)
		}
		return *cfg, nil
	}
	cfg, err := s.configs.GetActive(dbc)
	if err != nil {
		return types.ScoringConfig{}, err
	}
	if cfg == nil {
		// Missing config is not an error; defaults keep scoring alive.
		return DefaultConfig(), nil
	}
	return *cfg, nil
}

func (s *Service) authorityMap(ctx context.Context) (map[string]AuthorityInfo, error) {
	rows, err := s.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]AuthorityInfo, len(rows))
	for _, row := range rows {
		out[row.Engine] = AuthorityInfo{Weight: row.AuthorityWeight, Status: row.Status}
	}
	return out, nil
}
