package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ScoreResult is the composite visibility score for one prompt,
// upserted keyed by prompt id. A newer scoring run overwrites it;
// nothing else mutates a written row.
type ScoreResult struct {
	PromptID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"prompt_id"`
	AIVisibilityScore   float64        `gorm:"column:ai_visibility_score;not null" json:"ai_visibility_score"`
	UnweightedAVS       float64        `gorm:"column:unweighted_avs;not null" json:"unweighted_avs"`
	CitationScore       float64        `gorm:"column:citation_score;not null" json:"citation_score"`
	BrandAuthorityScore float64        `gorm:"column:brand_authority_score;not null" json:"brand_authority_score"`
	ShareOfVoice        float64        `gorm:"column:share_of_voice;not null" json:"share_of_voice"`
	Breakdown           datatypes.JSON `gorm:"column:breakdown;type:jsonb" json:"breakdown"`
	Confidence          float64        `gorm:"column:confidence;not null" json:"confidence"`
	IsEstimated         bool           `gorm:"column:is_estimated;not null;default:false" json:"is_estimated"`
	DegradedEngines     datatypes.JSON `gorm:"column:degraded_engines;type:jsonb" json:"degraded_engines"`
	ScoringVersion      string         `gorm:"column:scoring_version;not null" json:"scoring_version"`
	CreatedAt           time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (ScoreResult) TableName() string { return "score_result" }
