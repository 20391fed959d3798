package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/peakline/aeo-backend/internal/authority"
	types "github.com/peakline/aeo-backend/internal/domain"
	"github.com/peakline/aeo-backend/internal/pkg/dbctx"
	apperr "github.com/peakline/aeo-backend/internal/pkg/errors"
	"github.com/peakline/aeo-backend/internal/pkg/logger"
	"github.com/peakline/aeo-backend/internal/scoring"
	"github.com/peakline/aeo-backend/internal/services"
)

type stubEngineClient struct {
	query  func(ctx context.Context, engine, prompt string) (*services.EngineAnswer, error)
	verify func(ctx context.Context, url string) (bool, error)
}

func (c *stubEngineClient) Query(ctx context.Context, engine, prompt string) (*services.EngineAnswer, error) {
	return c.query(ctx, engine, prompt)
}

func (c *stubEngineClient) VerifyCitation(ctx context.Context, url string) (bool, error) {
	return c.verify(ctx, url)
}

type fakeResultsRepo struct {
	mu   sync.Mutex
	rows map[string]*types.EngineResult
}

func newFakeResultsRepo() *fakeResultsRepo {
	return &fakeResultsRepo{rows: make(map[string]*types.EngineResult)}
}

func (f *fakeResultsRepo) Upsert(dbc dbctx.Context, row *types.EngineResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *row
	f.rows[row.PromptID.String()+"/"+row.Engine] = &cp
	return nil
}

func (f *fakeResultsRepo) ListByPrompt(dbc dbctx.Context, promptID uuid.UUID) ([]*types.EngineResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.EngineResult
	for _, r := range f.rows {
		if r.PromptID == promptID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeAuthorityRepo struct {
	mu   sync.Mutex
	rows map[string]*types.EngineAuthority
}

func newFakeAuthorityRepo() *fakeAuthorityRepo {
	return &fakeAuthorityRepo{rows: make(map[string]*types.EngineAuthority)}
}

func (f *fakeAuthorityRepo) Seed(dbc dbctx.Context, rows []*types.EngineAuthority) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rows {
		if _, exists := f.rows[r.Engine]; !exists {
			cp := *r
			f.rows[r.Engine] = &cp
		}
	}
	return nil
}

func (f *fakeAuthorityRepo) GetByEngine(dbc dbctx.Context, engine string) (*types.EngineAuthority, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[engine]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (f *fakeAuthorityRepo) List(dbc dbctx.Context) ([]*types.EngineAuthority, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.EngineAuthority
	for _, r := range f.rows {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeAuthorityRepo) UpdateVersioned(dbc dbctx.Context, engine string, version int64, updates map[string]interface{}) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[engine]
	if !ok || r.Version != version {
		return false, nil
	}
	raw, err := json.Marshal(updates)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, r); err != nil {
		return false, err
	}
	r.Version = version + 1
	return true, nil
}

func (f *fakeAuthorityRepo) SetStatus(dbc dbctx.Context, engine string, status string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[engine]
	if !ok {
		return false, nil
	}
	r.Status = status
	return true, nil
}

type fakeOutageRepo struct{}

func (fakeOutageRepo) OpenIfNone(dbc dbctx.Context, engine string, startedAt time.Time) (bool, error) {
	return true, nil
}
func (fakeOutageRepo) CloseOpen(dbc dbctx.Context, engine string, endedAt time.Time) (bool, error) {
	return true, nil
}
func (fakeOutageRepo) GetOpen(dbc dbctx.Context, engine string) (*types.EngineOutage, error) {
	return nil, nil
}
func (fakeOutageRepo) IncrementAffected(dbc dbctx.Context, engine string) error { return nil }
func (fakeOutageRepo) ListByEngine(dbc dbctx.Context, engine string, limit int) ([]*types.EngineOutage, error) {
	return nil, nil
}

type fakeScoreRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*types.ScoreResult
}

func newFakeScoreRepo() *fakeScoreRepo {
	return &fakeScoreRepo{rows: make(map[uuid.UUID]*types.ScoreResult)}
}

func (f *fakeScoreRepo) Upsert(dbc dbctx.Context, row *types.ScoreResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *row
	f.rows[row.PromptID] = &cp
	return nil
}

func (f *fakeScoreRepo) GetByPrompt(dbc dbctx.Context, promptID uuid.UUID) (*types.ScoreResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[promptID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

type fakeConfigRepo struct{}

func (fakeConfigRepo) Create(dbc dbctx.Context, cfg *types.ScoringConfig) (*types.ScoringConfig, error) {
	return cfg, nil
}
func (fakeConfigRepo) GetActive(dbc dbctx.Context) (*types.ScoringConfig, error) { return nil, nil }
func (fakeConfigRepo) GetByVersion(dbc dbctx.Context, version string) (*types.ScoringConfig, error) {
	return nil, nil
}
func (fakeConfigRepo) Activate(dbc dbctx.Context, version string) error { return nil }

type fakeAlertSink struct {
	mu      sync.Mutex
	emitted []*types.Alert
}

func (f *fakeAlertSink) Emit(dbc dbctx.Context, ownerID uuid.UUID, alertType, severity, title, message string) (*types.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := &types.Alert{ID: uuid.New(), OwnerID: ownerID, Type: alertType, Severity: severity, Title: title, Message: message}
	f.emitted = append(f.emitted, a)
	return a, nil
}

func (f *fakeAlertSink) ListForOwner(dbc dbctx.Context, ownerID uuid.UUID, limit int) ([]*types.Alert, error) {
	return f.emitted, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func testRegistry(t *testing.T, authorities *fakeAuthorityRepo) *authority.Registry {
	t.Helper()
	reg := authority.NewRegistry(nil, testLogger(t), authorities, fakeOutageRepo{})
	if err := reg.SeedKnownEngines(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return reg
}

func jobWithPayload(t *testing.T, jobType string, payload map[string]any) *types.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &types.Job{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		JobType: jobType,
		Payload: datatypes.JSON(raw),
		Status:  types.JobStatusProcessing,
	}
}

func TestVerifyCitationClassifiesBadURLPermanent(t *testing.T) {
	h := NewVerifyCitation(testLogger(t), &stubEngineClient{
		verify: func(ctx context.Context, url string) (bool, error) { return true, nil },
	})

	bad := []map[string]any{
		{"url": "not a url at all"},
		{"url": "ftp://example.com/doc"},
		{"url": ""},
	}
	for _, payload := range bad {
		_, err := h.Run(context.Background(), jobWithPayload(t, types.JobTypeVerifyCitation, payload))
		if err == nil || !apperr.IsPermanent(err) {
			t.Fatalf("payload %v: want permanent error, got %v", payload, err)
		}
	}

	// Unreachable host is transient: the error must stay retryable.
	h = NewVerifyCitation(testLogger(t), &stubEngineClient{
		verify: func(ctx context.Context, url string) (bool, error) { return false, fmt.Errorf("connection refused") },
	})
	_, err := h.Run(context.Background(), jobWithPayload(t, types.JobTypeVerifyCitation, map[string]any{"url": "https://example.com/a"}))
	if err == nil || apperr.IsPermanent(err) {
		t.Fatalf("transient failure misclassified: %v", err)
	}
}

func TestVerifyCitationReportsOutcome(t *testing.T) {
	h := NewVerifyCitation(testLogger(t), &stubEngineClient{
		verify: func(ctx context.Context, url string) (bool, error) { return false, nil },
	})
	result, err := h.Run(context.Background(), jobWithPayload(t, types.JobTypeVerifyCitation, map[string]any{"url": "https://example.com/cited"}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result["verified"] != false {
		t.Fatalf("result: %v", result)
	}
}

func TestScrapeLLMStoresResultAndRecordsOutcome(t *testing.T) {
	authorities := newFakeAuthorityRepo()
	results := newFakeResultsRepo()
	pos := 2
	rt := 450
	client := &stubEngineClient{
		query: func(ctx context.Context, engine, prompt string) (*services.EngineAnswer, error) {
			return &services.EngineAnswer{
				Engine:         engine,
				Mentioned:      true,
				Position:       &pos,
				CitationCount:  3,
				BrandCitations: 1,
				Sentiment:      types.SentimentPositive,
				SentimentScore: 0.6,
				ResponseTimeMs: &rt,
			}, nil
		},
	}
	h := NewScrapeLLM(testLogger(t), client, results, testRegistry(t, authorities))

	promptID := uuid.New()
	job := jobWithPayload(t, types.JobTypeScrapeLLM, map[string]any{
		"prompt_id": promptID,
		"engine":    types.EngineChatGPT,
		"prompt":    "best running shoes",
	})
	if h.Engine(job) != types.EngineChatGPT {
		t.Fatalf("engine binding: %q", h.Engine(job))
	}

	if _, err := h.Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}

	stored, _ := results.ListByPrompt(dbctx.Context{Ctx: context.Background()}, promptID)
	if len(stored) != 1 || !stored[0].Mentioned || stored[0].CitationCount != 3 {
		t.Fatalf("stored results: %+v", stored)
	}

	auth, _ := authorities.GetByEngine(dbctx.Context{}, types.EngineChatGPT)
	if auth.TotalQueries != 1 || auth.SuccessfulQueries != 1 || auth.ConsecutiveFailures != 0 {
		t.Fatalf("authority counters: %+v", auth)
	}
}

func TestScrapeLLMFailureRecordsFailureWithoutResult(t *testing.T) {
	authorities := newFakeAuthorityRepo()
	results := newFakeResultsRepo()
	client := &stubEngineClient{
		query: func(ctx context.Context, engine, prompt string) (*services.EngineAnswer, error) {
			return nil, fmt.Errorf("engine timeout")
		},
	}
	h := NewScrapeLLM(testLogger(t), client, results, testRegistry(t, authorities))

	promptID := uuid.New()
	job := jobWithPayload(t, types.JobTypeScrapeLLM, map[string]any{
		"prompt_id": promptID,
		"engine":    types.EngineGemini,
		"prompt":    "best running shoes",
	})
	_, err := h.Run(context.Background(), job)
	if err == nil || apperr.IsPermanent(err) {
		t.Fatalf("engine timeout must be retryable: %v", err)
	}

	stored, _ := results.ListByPrompt(dbctx.Context{Ctx: context.Background()}, promptID)
	if len(stored) != 0 {
		t.Fatalf("failed query stored a result: %+v", stored)
	}

	auth, _ := authorities.GetByEngine(dbctx.Context{}, types.EngineGemini)
	if auth.TotalQueries != 1 || auth.ConsecutiveFailures != 1 {
		t.Fatalf("authority counters: %+v", auth)
	}
}

func TestScrapeLLMRejectsUnknownEngine(t *testing.T) {
	h := NewScrapeLLM(testLogger(t), &stubEngineClient{}, newFakeResultsRepo(), testRegistry(t, newFakeAuthorityRepo()))
	job := jobWithPayload(t, types.JobTypeScrapeLLM, map[string]any{
		"prompt_id": uuid.New(),
		"engine":    "bing_chat",
		"prompt":    "anything",
	})
	_, err := h.Run(context.Background(), job)
	if err == nil || !apperr.IsPermanent(err) {
		t.Fatalf("unknown engine must be permanent: %v", err)
	}
}

func TestAnalyzePromptScoresSurvivingEngines(t *testing.T) {
	authorities := newFakeAuthorityRepo()
	results := newFakeResultsRepo()
	scores := newFakeScoreRepo()
	registry := testRegistry(t, authorities)

	client := &stubEngineClient{
		query: func(ctx context.Context, engine, prompt string) (*services.EngineAnswer, error) {
			if engine == types.EngineGemini {
				return nil, fmt.Errorf("engine down")
			}
			pos := 1
			return &services.EngineAnswer{
				Engine:         engine,
				Mentioned:      true,
				Position:       &pos,
				CitationCount:  2,
				BrandCitations: 1,
				Sentiment:      types.SentimentPositive,
				SentimentScore: 0.5,
			}, nil
		},
	}
	scorer := scoring.NewService(nil, testLogger(t), results, scores, fakeConfigRepo{}, registry)
	h := NewAnalyzePrompt(testLogger(t), client, results, registry, scorer)

	promptID := uuid.New()
	job := jobWithPayload(t, types.JobTypeAnalyzePrompt, map[string]any{
		"prompt_id": promptID,
		"prompt":    "best running shoes",
		"engines":   []string{types.EngineChatGPT, types.EngineGemini},
	})
	result, err := h.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result["engines_queried"] != 1 || result["engines_failed"] != 1 {
		t.Fatalf("result: %v", result)
	}

	score, _ := scores.GetByPrompt(dbctx.Context{}, promptID)
	if score == nil {
		t.Fatalf("no score upserted")
	}
	if score.AIVisibilityScore <= 0 {
		t.Fatalf("score: %+v", score)
	}
	if score.ScoringVersion != scoring.DefaultConfigVersion {
		t.Fatalf("scoring version: %q", score.ScoringVersion)
	}
}

func TestAnalyzePromptFailsWhenAllEnginesFail(t *testing.T) {
	authorities := newFakeAuthorityRepo()
	results := newFakeResultsRepo()
	registry := testRegistry(t, authorities)
	client := &stubEngineClient{
		query: func(ctx context.Context, engine, prompt string) (*services.EngineAnswer, error) {
			return nil, fmt.Errorf("engine down")
		},
	}
	scorer := scoring.NewService(nil, testLogger(t), results, newFakeScoreRepo(), fakeConfigRepo{}, registry)
	h := NewAnalyzePrompt(testLogger(t), client, results, registry, scorer)

	job := jobWithPayload(t, types.JobTypeAnalyzePrompt, map[string]any{
		"prompt_id": uuid.New(),
		"prompt":    "best running shoes",
	})
	_, err := h.Run(context.Background(), job)
	if err == nil || apperr.IsPermanent(err) {
		t.Fatalf("total engine failure must stay retryable: %v", err)
	}
}

func TestSendAlertDefaultsOwnerAndSeverity(t *testing.T) {
	sink := &fakeAlertSink{}
	h := NewSendAlert(testLogger(t), sink)

	job := jobWithPayload(t, types.JobTypeSendAlert, map[string]any{
		"title":   "Visibility dropped",
		"message": "AVS fell below 40",
	})
	result, err := h.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result["alert_id"] == nil {
		t.Fatalf("result: %v", result)
	}
	if len(sink.emitted) != 1 {
		t.Fatalf("emitted: %d", len(sink.emitted))
	}
	a := sink.emitted[0]
	if a.OwnerID != job.OwnerID {
		t.Fatalf("owner not defaulted from job: %v", a.OwnerID)
	}
	if a.Severity != types.AlertSeverityInfo {
		t.Fatalf("severity: %q", a.Severity)
	}
}
