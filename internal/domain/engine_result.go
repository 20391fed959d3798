package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// EngineResult is one engine's answer-analysis for one prompt, written
// by the scrape/analyze handlers and consumed by the scoring engine.
type EngineResult struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PromptID             uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_engine_result_prompt_engine" json:"prompt_id"`
	Engine               string    `gorm:"column:engine;not null;uniqueIndex:idx_engine_result_prompt_engine" json:"engine"`
	Mentioned            bool      `gorm:"column:mentioned;not null;default:false" json:"mentioned"`
	Position             *int      `gorm:"column:position" json:"position,omitempty"`
	CitationCount        int       `gorm:"column:citation_count;not null;default:0" json:"citation_count"`
	BrandCitations       int       `gorm:"column:brand_citations;not null;default:0" json:"brand_citations"`
	Sentiment            string    `gorm:"column:sentiment;not null;default:neutral" json:"sentiment"`
	SentimentScore       float64   `gorm:"column:sentiment_score;not null;default:0" json:"sentiment_score"`
	CompetitorsMentioned int       `gorm:"column:competitors_mentioned;not null;default:0" json:"competitors_mentioned"`
	ResponseTimeMs       *int      `gorm:"column:response_time_ms" json:"response_time_ms,omitempty"`
	CreatedAt            time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (EngineResult) TableName() string { return "engine_result" }
