package scoring

import (
	"math"
	"testing"

	"github.com/google/uuid"

	types "github.com/peakline/aeo-backend/internal/domain"
)

func intPtr(i int) *int { return &i }

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func result(engine string, mentioned bool, position *int, citations int, sentiment string, sentimentScore float64, competitors int) *types.EngineResult {
	return &types.EngineResult{
		ID:                   uuid.New(),
		PromptID:             uuid.New(),
		Engine:               engine,
		Mentioned:            mentioned,
		Position:             position,
		CitationCount:        citations,
		Sentiment:            sentiment,
		SentimentScore:       sentimentScore,
		CompetitorsMentioned: competitors,
	}
}

func TestEngineScoreMentionedBeatsUnmentioned(t *testing.T) {
	cfg := DefaultConfig()

	a := result("chatgpt", true, intPtr(1), 2, types.SentimentPositive, 0.8, 0)
	b := result("gemini", false, nil, 0, types.SentimentNeutral, 0, 1)

	scoreA, factorsA := EngineScore(a, cfg)
	scoreB, factorsB := EngineScore(b, cfg)

	// A: mention 100, position 100, citation 30, sentiment 98, no penalty
	// → 100*.4 + 100*.1 + 30*.3 + 98*.2 = 78.6
	if !almostEqual(scoreA, 78.6) {
		t.Fatalf("engine A score: got=%v want=78.6 (factors=%+v)", scoreA, factorsA)
	}
	// B: sentiment floor 50*.2 minus one competitor penalty 5 → 5
	if !almostEqual(scoreB, 5) {
		t.Fatalf("engine B score: got=%v want=5 (factors=%+v)", scoreB, factorsB)
	}
	if scoreA <= scoreB {
		t.Fatalf("mentioned engine must outscore unmentioned: %v <= %v", scoreA, scoreB)
	}
}

func TestEngineScorePositionFallbacks(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		res  *types.EngineResult
		want float64
	}{
		{"first position full credit", result("a", true, intPtr(1), 0, types.SentimentNeutral, 0, 0), 100},
		{"decay per rank", result("a", true, intPtr(4), 0, types.SentimentNeutral, 0, 0), 70},
		{"deep rank floors at zero", result("a", true, intPtr(50), 0, types.SentimentNeutral, 0, 0), 0},
		{"mentioned without position", result("a", true, nil, 0, types.SentimentNeutral, 0, 0), 50},
		{"unmentioned without position", result("a", false, nil, 0, types.SentimentNeutral, 0, 0), 0},
	}
	for _, tt := range tests {
		_, factors := EngineScore(tt.res, cfg)
		if !almostEqual(factors.Position, tt.want) {
			t.Errorf("%s: position factor got=%v want=%v", tt.name, factors.Position, tt.want)
		}
	}
}

func TestComputeWeightedMatchesUnweightedAtUnitWeights(t *testing.T) {
	cfg := DefaultConfig()
	results := []*types.EngineResult{
		result("chatgpt", true, intPtr(1), 2, types.SentimentPositive, 0.8, 0),
		result("gemini", false, nil, 0, types.SentimentNeutral, 0, 1),
		result("claude", true, intPtr(3), 1, types.SentimentNegative, -0.4, 2),
	}
	auth := map[string]AuthorityInfo{
		"chatgpt": {Weight: 1.0, Status: types.EngineStatusHealthy},
		"gemini":  {Weight: 1.0, Status: types.EngineStatusHealthy},
		"claude":  {Weight: 1.0, Status: types.EngineStatusHealthy},
	}

	out := Compute(results, auth, Totals{}, cfg)
	if !almostEqual(out.WeightedAVS, out.UnweightedAVS) {
		t.Fatalf("unit weights: weighted=%v unweighted=%v", out.WeightedAVS, out.UnweightedAVS)
	}
}

func TestComputeWeightedBetweenExtremes(t *testing.T) {
	cfg := DefaultConfig()
	results := []*types.EngineResult{
		result("chatgpt", true, intPtr(1), 2, types.SentimentPositive, 0.8, 0),
		result("gemini", false, nil, 0, types.SentimentNeutral, 0, 1),
	}
	auth := map[string]AuthorityInfo{
		"chatgpt": {Weight: 1.2, Status: types.EngineStatusHealthy},
		"gemini":  {Weight: 0.8, Status: types.EngineStatusHealthy},
	}

	out := Compute(results, auth, Totals{}, cfg)

	// (78.6*1.2 + 5*0.8) / 2.0 = 49.16
	if !almostEqual(out.WeightedAVS, 49.16) {
		t.Fatalf("weighted: got=%v want=49.16", out.WeightedAVS)
	}
	if !almostEqual(out.UnweightedAVS, 41.8) {
		t.Fatalf("unweighted: got=%v want=41.8", out.UnweightedAVS)
	}
	// The weighted mean leans toward the higher-authority engine but
	// stays inside the per-engine extremes.
	if out.WeightedAVS <= 5 || out.WeightedAVS >= 78.6 {
		t.Fatalf("weighted mean outside engine score range: %v", out.WeightedAVS)
	}
	if out.WeightedAVS <= out.UnweightedAVS {
		t.Fatalf("higher weight on the better engine should pull the mean up")
	}
}

func TestComputeFallsBackWithoutAuthorityData(t *testing.T) {
	cfg := DefaultConfig()
	results := []*types.EngineResult{
		result("chatgpt", true, intPtr(1), 0, types.SentimentNeutral, 0, 0),
		result("gemini", true, intPtr(2), 0, types.SentimentNeutral, 0, 0),
	}

	out := Compute(results, map[string]AuthorityInfo{}, Totals{}, cfg)
	if !almostEqual(out.WeightedAVS, out.UnweightedAVS) {
		t.Fatalf("no authority data: weighted=%v unweighted=%v", out.WeightedAVS, out.UnweightedAVS)
	}
	if out.IsEstimated {
		t.Fatalf("no authority data should not flag estimation")
	}
}

func TestComputeConfidenceDegradesMonotonically(t *testing.T) {
	cfg := DefaultConfig()
	results := []*types.EngineResult{
		result("chatgpt", true, intPtr(1), 0, types.SentimentNeutral, 0, 0),
		result("gemini", true, intPtr(2), 0, types.SentimentNeutral, 0, 0),
		result("claude", false, nil, 0, types.SentimentNeutral, 0, 0),
	}

	statuses := [][]string{
		{types.EngineStatusHealthy, types.EngineStatusHealthy, types.EngineStatusHealthy},
		{types.EngineStatusDegraded, types.EngineStatusHealthy, types.EngineStatusHealthy},
		{types.EngineStatusDegraded, types.EngineStatusUnavailable, types.EngineStatusHealthy},
		{types.EngineStatusDegraded, types.EngineStatusUnavailable, types.EngineStatusUnavailable},
	}

	prev := math.Inf(1)
	for i, set := range statuses {
		auth := map[string]AuthorityInfo{
			"chatgpt": {Weight: 1, Status: set[0]},
			"gemini":  {Weight: 1, Status: set[1]},
			"claude":  {Weight: 1, Status: set[2]},
		}
		out := Compute(results, auth, Totals{}, cfg)
		if out.Confidence > prev {
			t.Fatalf("confidence increased with more degraded engines: step %d, %v > %v", i, out.Confidence, prev)
		}
		prev = out.Confidence

		wantDegraded := 0
		for _, s := range set {
			if s != types.EngineStatusHealthy {
				wantDegraded++
			}
		}
		if len(out.DegradedEngines) != wantDegraded {
			t.Fatalf("step %d: degraded list %v, want %d entries", i, out.DegradedEngines, wantDegraded)
		}
	}
}

func TestComputeEstimationFlag(t *testing.T) {
	cfg := DefaultConfig()
	results := []*types.EngineResult{
		result("chatgpt", true, intPtr(1), 0, types.SentimentNeutral, 0, 0),
		result("gemini", true, intPtr(2), 0, types.SentimentNeutral, 0, 0),
	}

	degradedOnly := map[string]AuthorityInfo{
		"chatgpt": {Weight: 0.75, Status: types.EngineStatusDegraded},
		"gemini":  {Weight: 1, Status: types.EngineStatusHealthy},
	}
	out := Compute(results, degradedOnly, Totals{}, cfg)
	if out.IsEstimated {
		t.Fatalf("degraded-only should not flag estimation")
	}

	withUnavailable := map[string]AuthorityInfo{
		"chatgpt": {Weight: 0.5, Status: types.EngineStatusUnavailable},
		"gemini":  {Weight: 1, Status: types.EngineStatusHealthy},
	}
	out = Compute(results, withUnavailable, Totals{}, cfg)
	if !out.IsEstimated {
		t.Fatalf("unavailable engine must flag estimation")
	}
}

func TestComputeCitationAndShareOfVoiceEdges(t *testing.T) {
	cfg := DefaultConfig()
	results := []*types.EngineResult{
		result("chatgpt", false, nil, 0, types.SentimentNeutral, 0, 0),
	}

	out := Compute(results, nil, Totals{TotalCitations: 0, BrandMentions: 0, CompetitorMentions: 0}, cfg)
	if out.CitationScore != 0 {
		t.Fatalf("citation score without citations: %v", out.CitationScore)
	}
	if out.ShareOfVoice != 0 {
		t.Fatalf("share of voice with zero denominator: %v", out.ShareOfVoice)
	}

	results2 := []*types.EngineResult{
		result("chatgpt", true, intPtr(1), 4, types.SentimentNeutral, 0, 0),
		result("gemini", true, intPtr(2), 2, types.SentimentNeutral, 0, 0),
	}
	out = Compute(results2, nil, Totals{BrandCitations: 3, TotalCitations: 6, BrandMentions: 2, CompetitorMentions: 2}, cfg)
	// brand share 0.5*50 + mean citations 3*10 = 55
	if !almostEqual(out.CitationScore, 55) {
		t.Fatalf("citation score: got=%v want=55", out.CitationScore)
	}
	if !almostEqual(out.ShareOfVoice, 50) {
		t.Fatalf("share of voice: got=%v want=50", out.ShareOfVoice)
	}
}

func TestComputeEmptyResults(t *testing.T) {
	out := Compute(nil, nil, Totals{}, DefaultConfig())
	if out.WeightedAVS != 0 || out.UnweightedAVS != 0 || out.Confidence != 0 {
		t.Fatalf("empty results should zero out: %+v", out)
	}
	if len(out.Breakdown) != 0 {
		t.Fatalf("empty results should have empty breakdown")
	}
}
