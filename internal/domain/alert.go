package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	AlertTypeJobFailed = "job_failed"

	AlertSeverityInfo    = "info"
	AlertSeverityWarning = "warning"
	AlertSeverityError   = "error"
)

type Alert struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	Type      string    `gorm:"column:type;not null;index" json:"type"`
	Title     string    `gorm:"column:title;not null" json:"title"`
	Message   string    `gorm:"column:message" json:"message"`
	Severity  string    `gorm:"column:severity;not null" json:"severity"`
	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (Alert) TableName() string { return "alert" }
