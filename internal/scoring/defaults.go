package scoring

import (
	types "github.com/peakline/aeo-backend/internal/domain"
)

// DefaultConfigVersion is recorded on score results produced without
// any stored scoring config.
const DefaultConfigVersion = "builtin-v1"

// DefaultConfig is the built-in weight set used when no config row
// exists. The four top-level weights sum to 1.0.
func DefaultConfig() types.ScoringConfig {
	return types.ScoringConfig{
		Name:    "builtin",
		Version: DefaultConfigVersion,

		WeightVisibility: 0.4,
		WeightCitations:  0.3,
		WeightSentiment:  0.2,
		WeightRank:       0.1,

		MentionWeight:               1.0,
		RankDecay:                   0.1,
		SentimentMultiplierPositive: 1.2,
		SentimentMultiplierNeutral:  1.0,
		SentimentMultiplierNegative: 0.8,
		CitationBonus:               0.15,
		CompetitorPenalty:           0.05,
	}
}
