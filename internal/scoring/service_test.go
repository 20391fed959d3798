package scoring

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/peakline/aeo-backend/internal/authority"
	types "github.com/peakline/aeo-backend/internal/domain"
	"github.com/peakline/aeo-backend/internal/pkg/dbctx"
	"github.com/peakline/aeo-backend/internal/pkg/logger"
)

type stubResultRepo struct {
	rows []*types.EngineResult
}

func (f *stubResultRepo) Upsert(dbc dbctx.Context, row *types.EngineResult) error { return nil }
func (f *stubResultRepo) ListByPrompt(dbc dbctx.Context, promptID uuid.UUID) ([]*types.EngineResult, error) {
	return f.rows, nil
}

type stubScoreRepo struct {
	prev     *types.ScoreResult
	prevErr  error
	upserted *types.ScoreResult
}

func (f *stubScoreRepo) Upsert(dbc dbctx.Context, row *types.ScoreResult) error {
	f.upserted = row
	return nil
}
func (f *stubScoreRepo) GetByPrompt(dbc dbctx.Context, promptID uuid.UUID) (*types.ScoreResult, error) {
	return f.prev, f.prevErr
}

type stubConfigRepo struct{}

func (stubConfigRepo) Create(dbc dbctx.Context, cfg *types.ScoringConfig) (*types.ScoringConfig, error) {
	return cfg, nil
}
func (stubConfigRepo) GetActive(dbc dbctx.Context) (*types.ScoringConfig, error) { return nil, nil }
func (stubConfigRepo) GetByVersion(dbc dbctx.Context, version string) (*types.ScoringConfig, error) {
	return nil, nil
}
func (stubConfigRepo) Activate(dbc dbctx.Context, version string) error { return nil }

type stubAuthorityRepo struct{}

func (stubAuthorityRepo) Seed(dbc dbctx.Context, rows []*types.EngineAuthority) error { return nil }
func (stubAuthorityRepo) GetByEngine(dbc dbctx.Context, engine string) (*types.EngineAuthority, error) {
	return nil, nil
}
func (stubAuthorityRepo) List(dbc dbctx.Context) ([]*types.EngineAuthority, error) {
	return nil, nil
}
func (stubAuthorityRepo) UpdateVersioned(dbc dbctx.Context, engine string, version int64, updates map[string]interface{}) (bool, error) {
	return true, nil
}
func (stubAuthorityRepo) SetStatus(dbc dbctx.Context, engine string, status string) (bool, error) {
	return true, nil
}

type stubOutageRepo struct{}

func (stubOutageRepo) OpenIfNone(dbc dbctx.Context, engine string, startedAt time.Time) (bool, error) {
	return false, nil
}
func (stubOutageRepo) CloseOpen(dbc dbctx.Context, engine string, endedAt time.Time) (bool, error) {
	return false, nil
}
func (stubOutageRepo) GetOpen(dbc dbctx.Context, engine string) (*types.EngineOutage, error) {
	return nil, nil
}
func (stubOutageRepo) IncrementAffected(dbc dbctx.Context, engine string) error { return nil }
func (stubOutageRepo) ListByEngine(dbc dbctx.Context, engine string, limit int) ([]*types.EngineOutage, error) {
	return nil, nil
}

func newTrendTestService(t *testing.T, results *stubResultRepo, scores *stubScoreRepo) *Service {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	registry := authority.NewRegistry(nil, log, stubAuthorityRepo{}, stubOutageRepo{})
	return NewService(nil, log, results, scores, stubConfigRepo{}, registry)
}

func trendTestResults() []*types.EngineResult {
	pos := 1
	return []*types.EngineResult{{
		ID:             uuid.New(),
		PromptID:       uuid.New(),
		Engine:         types.EngineChatGPT,
		Mentioned:      true,
		Position:       &pos,
		CitationCount:  2,
		BrandCitations: 1,
		Sentiment:      types.SentimentPositive,
		SentimentScore: 0.5,
	}}
}

func TestScoreStoredSurvivesTrendLookupFailure(t *testing.T) {
	results := &stubResultRepo{rows: trendTestResults()}
	scores := &stubScoreRepo{prevErr: fmt.Errorf("connection reset")}
	svc := newTrendTestService(t, results, scores)

	promptID := uuid.New()
	got, err := svc.ScoreStored(context.Background(), promptID, Options{})
	if err != nil {
		t.Fatalf("ScoreStored: %v", err)
	}
	if scores.upserted == nil {
		t.Fatalf("score not upserted")
	}

	// A failed trend lookup degrades to zero trend, nothing else.
	totals := DeriveTotals(results.rows)
	want := Compute(results.rows, map[string]AuthorityInfo{}, totals, DefaultConfig())
	if !almostEqual(got.AIVisibilityScore, want.WeightedAVS) {
		t.Fatalf("ai_visibility_score: want=%v got=%v", want.WeightedAVS, got.AIVisibilityScore)
	}
	if !almostEqual(got.BrandAuthorityScore, want.BrandAuthorityScore) {
		t.Fatalf("brand_authority_score: want=%v got=%v", want.BrandAuthorityScore, got.BrandAuthorityScore)
	}
}

func TestScoreStoredFeedsPreviousScoreIntoTrend(t *testing.T) {
	results := &stubResultRepo{rows: trendTestResults()}
	scores := &stubScoreRepo{prev: &types.ScoreResult{AIVisibilityScore: 80}}
	svc := newTrendTestService(t, results, scores)

	got, err := svc.ScoreStored(context.Background(), uuid.New(), Options{})
	if err != nil {
		t.Fatalf("ScoreStored: %v", err)
	}

	totals := DeriveTotals(results.rows)
	totals.HistoricalTrend = 80
	want := Compute(results.rows, map[string]AuthorityInfo{}, totals, DefaultConfig())
	if !almostEqual(got.BrandAuthorityScore, want.BrandAuthorityScore) {
		t.Fatalf("brand_authority_score: want=%v got=%v", want.BrandAuthorityScore, got.BrandAuthorityScore)
	}

	// The trend is the only input that differs from the zero-trend run,
	// and it must move the blend.
	zero := totals
	zero.HistoricalTrend = 0
	base := Compute(results.rows, map[string]AuthorityInfo{}, zero, DefaultConfig())
	if almostEqual(want.BrandAuthorityScore, base.BrandAuthorityScore) {
		t.Fatalf("trend had no effect on brand authority blend")
	}
}
