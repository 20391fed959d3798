package domain

import (
	"time"

	"github.com/google/uuid"
)

// ScoringConfig is a named, versioned weight set. Exactly one config
// is active at a time; score results record the version that produced
// them for reproducibility.
type ScoringConfig struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name    string    `gorm:"column:name;not null" json:"name"`
	Version string    `gorm:"column:version;not null;uniqueIndex" json:"version"`
	Active  bool      `gorm:"column:active;not null;default:false;index" json:"active"`

	WeightVisibility float64 `gorm:"column:weight_visibility;not null" json:"weight_visibility"`
	WeightCitations  float64 `gorm:"column:weight_citations;not null" json:"weight_citations"`
	WeightSentiment  float64 `gorm:"column:weight_sentiment;not null" json:"weight_sentiment"`
	WeightRank       float64 `gorm:"column:weight_rank;not null" json:"weight_rank"`

	MentionWeight               float64 `gorm:"column:mention_weight;not null" json:"mention_weight"`
	RankDecay                   float64 `gorm:"column:rank_decay;not null" json:"rank_decay"`
	SentimentMultiplierPositive float64 `gorm:"column:sentiment_multiplier_positive;not null" json:"sentiment_multiplier_positive"`
	SentimentMultiplierNeutral  float64 `gorm:"column:sentiment_multiplier_neutral;not null" json:"sentiment_multiplier_neutral"`
	SentimentMultiplierNegative float64 `gorm:"column:sentiment_multiplier_negative;not null" json:"sentiment_multiplier_negative"`
	CitationBonus               float64 `gorm:"column:citation_bonus;not null" json:"citation_bonus"`
	CompetitorPenalty           float64 `gorm:"column:competitor_penalty;not null" json:"competitor_penalty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ScoringConfig) TableName() string { return "scoring_config" }

// SentimentMultiplier returns the multiplier for a sentiment label,
// defaulting to the neutral multiplier for unknown labels.
func (c ScoringConfig) SentimentMultiplier(sentiment string) float64 {
	switch sentiment {
	case SentimentPositive:
		return c.SentimentMultiplierPositive
	case SentimentNegative:
		return c.SentimentMultiplierNegative
	default:
		return c.SentimentMultiplierNeutral
	}
}
