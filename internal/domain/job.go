package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusDeadLetter = "dead_letter"
)

const (
	JobTypeAnalyzePrompt    = "analyze_prompt"
	JobTypeVerifyCitation   = "verify_citation"
	JobTypeScrapeLLM        = "scrape_llm"
	JobTypeScrapeAIOverview = "scrape_ai_overview"
	JobTypeSendAlert        = "send_alert"
)

type Job struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
	JobType      string         `gorm:"column:job_type;not null;index" json:"job_type"`
	Payload      datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	Status       string         `gorm:"column:status;not null;index" json:"status"`
	Priority     int            `gorm:"column:priority;not null;default:0;index" json:"priority"`
	ScheduledFor time.Time      `gorm:"column:scheduled_for;not null;index" json:"scheduled_for"`
	RetryCount   int            `gorm:"column:retry_count;not null;default:0" json:"retry_count"`
	MaxRetries   int            `gorm:"column:max_retries;not null;default:3" json:"max_retries"`
	Result       datatypes.JSON `gorm:"column:result;type:jsonb" json:"result,omitempty"`
	ErrorMessage string         `gorm:"column:error_message" json:"error_message,omitempty"`
	StartedAt    *time.Time     `gorm:"column:started_at;index" json:"started_at,omitempty"`
	CompletedAt  *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Job) TableName() string { return "job" }
