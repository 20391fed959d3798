package domain

import (
	"time"
)

const (
	EngineStatusHealthy     = "healthy"
	EngineStatusDegraded    = "degraded"
	EngineStatusUnavailable = "unavailable"
	EngineStatusMaintenance = "maintenance"
)

const (
	EngineChatGPT    = "chatgpt"
	EnginePerplexity = "perplexity"
	EngineGemini     = "gemini"
	EngineClaude     = "claude"
	EngineAIOverview = "ai_overview"
)

// KnownEngines is the static registry seeded at startup. Rows are
// created once per engine and never deleted.
var KnownEngines = []string{
	EngineChatGPT,
	EnginePerplexity,
	EngineGemini,
	EngineClaude,
	EngineAIOverview,
}

type EngineAuthority struct {
	Engine               string     `gorm:"column:engine;primaryKey" json:"engine"`
	DisplayName          string     `gorm:"column:display_name;not null" json:"display_name"`
	Status               string     `gorm:"column:status;not null;index" json:"status"`
	ConsecutiveFailures  int        `gorm:"column:consecutive_failures;not null;default:0" json:"consecutive_failures"`
	ReliabilityScore     float64    `gorm:"column:reliability_score;not null;default:100" json:"reliability_score"`
	CitationCompleteness float64    `gorm:"column:citation_completeness;not null;default:100" json:"citation_completeness"`
	FreshnessIndex       float64    `gorm:"column:freshness_index;not null;default:100" json:"freshness_index"`
	AuthorityWeight      float64    `gorm:"column:authority_weight;not null;default:1" json:"authority_weight"`
	TotalQueries         int64      `gorm:"column:total_queries;not null;default:0" json:"total_queries"`
	SuccessfulQueries    int64      `gorm:"column:successful_queries;not null;default:0" json:"successful_queries"`
	AvgResponseTimeMs    float64    `gorm:"column:avg_response_time_ms;not null;default:0" json:"avg_response_time_ms"`
	LastSuccessfulQuery  *time.Time `gorm:"column:last_successful_query" json:"last_successful_query,omitempty"`
	LastFailure          *time.Time `gorm:"column:last_failure" json:"last_failure,omitempty"`
	// Version guards concurrent outcome recording: every write is
	// conditional on the version it was computed from.
	Version   int64     `gorm:"column:version;not null;default:0" json:"-"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (EngineAuthority) TableName() string { return "engine_authority" }
