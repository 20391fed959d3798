package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/peakline/aeo-backend/internal/data/repos"
	types "github.com/peakline/aeo-backend/internal/domain"
	"github.com/peakline/aeo-backend/internal/pkg/dbctx"
	"github.com/peakline/aeo-backend/internal/pkg/logger"
)

// EnqueueOptions tunes a single enqueue; zero values fall back to the
// defaults (priority 0, 3 retries, run immediately).
type EnqueueOptions struct {
	Priority     int
	MaxRetries   int
	ScheduledFor time.Time
}

type JobService interface {
	Enqueue(dbc dbctx.Context, ownerID uuid.UUID, jobType string, payload map[string]any, opts EnqueueOptions) (*types.Job, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Job, error)
	ListForOwner(dbc dbctx.Context, ownerID uuid.UUID, limit int) ([]*types.Job, error)
	QueueDepths(dbc dbctx.Context) (map[string]int64, error)
}

type jobService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.JobRepo
}

func NewJobService(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRepo) JobService {
	return &jobService{
		db:   db,
		log:  baseLog.With("service", "JobService"),
		repo: repo,
	}
}

var validJobTypes = map[string]bool{
	types.JobTypeAnalyzePrompt:    true,
	types.JobTypeVerifyCitation:   true,
	types.JobTypeScrapeLLM:        true,
	types.JobTypeScrapeAIOverview: true,
	types.JobTypeSendAlert:        true,
}

func (s *jobService) Enqueue(dbc dbctx.Context, ownerID uuid.UUID, jobType string, payload map[string]any, opts EnqueueOptions) (*types.Job, error) {
	if ownerID == uuid.Nil {
		return nil, fmt.Errorf("missing owner_id")
	}
	if !validJobTypes[jobType] {
		return nil, fmt.Errorf("unknown job_type %q", jobType)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	now := time.Now()
	scheduledFor := opts.ScheduledFor
	if scheduledFor.IsZero() {
		scheduledFor = now
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	job := &types.Job{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		JobType:      jobType,
		Payload:      datatypes.JSON(raw),
		Status:       types.JobStatusPending,
		Priority:     opts.Priority,
		ScheduledFor: scheduledFor,
		RetryCount:   0,
		MaxRetries:   maxRetries,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	created, err := s.repo.Create(dbc, []*types.Job{job})
	if err != nil {
		return nil, err
	}
	s.log.Info("Job enqueued", "job_id", job.ID, "job_type", jobType, "priority", job.Priority, "scheduled_for", scheduledFor)
	return created[0], nil
}

func (s *jobService) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Job, error) {
	return s.repo.GetByID(dbc, id)
}

func (s *jobService) ListForOwner(dbc dbctx.Context, ownerID uuid.UUID, limit int) ([]*types.Job, error) {
	return s.repo.ListByOwner(dbc, ownerID, limit)
}

func (s *jobService) QueueDepths(dbc dbctx.Context) (map[string]int64, error) {
	return s.repo.CountByStatus(dbc)
}
