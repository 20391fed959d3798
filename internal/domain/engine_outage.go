package domain

import (
	"time"

	"github.com/google/uuid"
)

// EngineOutage is an append-only log row. At most one open outage
// (EndedAt == nil) exists per engine at any time.
type EngineOutage struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Engine          string     `gorm:"column:engine;not null;index" json:"engine"`
	StartedAt       time.Time  `gorm:"column:started_at;not null" json:"started_at"`
	EndedAt         *time.Time `gorm:"column:ended_at;index" json:"ended_at,omitempty"`
	AffectedQueries int64      `gorm:"column:affected_queries;not null;default:0" json:"affected_queries"`
	CreatedAt       time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

func (EngineOutage) TableName() string { return "engine_outage" }
