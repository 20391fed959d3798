package scoring

import (
	types "github.com/peakline/aeo-backend/internal/domain"
)

// AuthorityInfo is the slice of an engine's authority row that scoring
// consumes: its weight and current status.
type AuthorityInfo struct {
	Weight float64
	Status string
}

// Totals carries the prompt-level aggregates the per-engine rows alone
// cannot express.
type Totals struct {
	BrandCitations     int
	TotalCitations     int
	BrandMentions      int
	CompetitorMentions int
	// HistoricalTrend feeds the brand authority blend; callers usually
	// pass the previous composite score.
	HistoricalTrend float64
}

type Factors struct {
	Mention           float64 `json:"mention"`
	Position          float64 `json:"position"`
	Citation          float64 `json:"citation"`
	Sentiment         float64 `json:"sentiment"`
	CompetitorPenalty float64 `json:"competitor_penalty"`
}

type EngineBreakdown struct {
	Engine  string  `json:"engine"`
	Score   float64 `json:"score"`
	Factors Factors `json:"factors"`
}

type Computed struct {
	WeightedAVS         float64
	UnweightedAVS       float64
	CitationScore       float64
	BrandAuthorityScore float64
	ShareOfVoice        float64
	Breakdown           []EngineBreakdown
	Confidence          float64
	IsEstimated         bool
	DegradedEngines     []string
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// EngineScore computes one engine's contribution. Every factor is
// clamped to [0,100] before the weighted combination; the competitor
// penalty is the only negative term.
func EngineScore(res *types.EngineResult, cfg types.ScoringConfig) (float64, Factors) {
	var f Factors

	if res.Mentioned {
		f.Mention = clamp(100*cfg.MentionWeight, 0, 100)
	}

	switch {
	case res.Position != nil:
		f.Position = clamp(100-float64(*res.Position-1)*cfg.RankDecay*100, 0, 100)
	case res.Mentioned:
		f.Position = 50
	default:
		f.Position = 0
	}

	f.Citation = clamp(float64(res.CitationCount)*cfg.CitationBonus*100, 0, 100)

	f.Sentiment = clamp(res.SentimentScore*cfg.SentimentMultiplier(res.Sentiment)*50+50, 0, 100)

	f.CompetitorPenalty = -float64(res.CompetitorsMentioned) * cfg.CompetitorPenalty * 100

	score := clamp(
		f.Mention*cfg.WeightVisibility+
			f.Position*cfg.WeightRank+
			f.Citation*cfg.WeightCitations+
			f.Sentiment*cfg.WeightSentiment+
			f.CompetitorPenalty,
		0, 100)
	return score, f
}

// Compute folds per-engine results and current authority state into
// the composite score. Engines missing from auth contribute to the
// unweighted mean but are skipped by the weighted one; when no engine
// has authority data at all, the weighted score falls back to the
// unweighted mean.
func Compute(results []*types.EngineResult, auth map[string]AuthorityInfo, totals Totals, cfg types.ScoringConfig) Computed {
	out := Computed{Breakdown: make([]EngineBreakdown, 0, len(results))}
	if len(results) == 0 {
		return out
	}

	var (
		scoreSum         float64
		weightedSum      float64
		weightSum        float64
		citationCountSum int
		mentionedCount   int
		healthyCount     int
		anyDegraded      bool
	)

	for _, res := range results {
		score, factors := EngineScore(res, cfg)
		out.Breakdown = append(out.Breakdown, EngineBreakdown{Engine: res.Engine, Score: score, Factors: factors})

		scoreSum += score
		citationCountSum += res.CitationCount
		if res.Mentioned {
			mentionedCount++
		}

		info, known := auth[res.Engine]
		if known {
			weightedSum += score * info.Weight
			weightSum += info.Weight
		}
		switch {
		case known && (info.Status == types.EngineStatusDegraded || info.Status == types.EngineStatusUnavailable):
			anyDegraded = true
			out.DegradedEngines = append(out.DegradedEngines, res.Engine)
			if info.Status == types.EngineStatusUnavailable {
				out.IsEstimated = true
			}
		default:
			healthyCount++
		}
	}

	n := float64(len(results))
	out.UnweightedAVS = scoreSum / n
	if weightSum > 0 {
		out.WeightedAVS = weightedSum / weightSum
	} else {
		out.WeightedAVS = out.UnweightedAVS
	}

	if totals.TotalCitations > 0 {
		brandShare := float64(totals.BrandCitations) / float64(totals.TotalCitations)
		meanCitations := float64(citationCountSum) / n
		out.CitationScore = clamp(brandShare*50+meanCitations*10, 0, 100)
	}

	out.BrandAuthorityScore = clamp(out.WeightedAVS*0.5+out.CitationScore*0.3+totals.HistoricalTrend*0.2, 0, 100)

	if denom := totals.BrandMentions + totals.CompetitorMentions; denom > 0 {
		out.ShareOfVoice = 100 * float64(totals.BrandMentions) / float64(denom)
	}

	out.Confidence = clamp(50+10*n+5*float64(mentionedCount), 0, 100)
	if anyDegraded {
		out.Confidence = out.Confidence * float64(healthyCount) / n
	}

	return out
}
