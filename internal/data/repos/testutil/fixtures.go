package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/peakline/aeo-backend/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func SeedJob(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, jobType string, priority int, scheduledFor time.Time) *types.Job {
	tb.Helper()
	j := &types.Job{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		JobType:      jobType,
		Payload:      datatypes.JSON([]byte("{}")),
		Status:       types.JobStatusPending,
		Priority:     priority,
		ScheduledFor: scheduledFor,
		MaxRetries:   3,
	}
	if err := tx.WithContext(ctx).Create(j).Error; err != nil {
		tb.Fatalf("seed job: %v", err)
	}
	return j
}

func SeedAuthority(tb testing.TB, ctx context.Context, tx *gorm.DB, engine string) *types.EngineAuthority {
	tb.Helper()
	a := &types.EngineAuthority{
		Engine:               engine,
		DisplayName:          engine,
		Status:               types.EngineStatusHealthy,
		ReliabilityScore:     100,
		CitationCompleteness: 100,
		FreshnessIndex:       100,
		AuthorityWeight:      1.0,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed authority: %v", err)
	}
	return a
}
