package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/peakline/aeo-backend/internal/domain"
	"github.com/peakline/aeo-backend/internal/pkg/dbctx"
	"github.com/peakline/aeo-backend/internal/pkg/logger"
)

type JobRepo interface {
	Create(dbc dbctx.Context, jobs []*types.Job) ([]*types.Job, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Job, error)
	ListByOwner(dbc dbctx.Context, ownerID uuid.UUID, limit int) ([]*types.Job, error)
	ClaimDueBatch(dbc dbctx.Context, limit int, now time.Time) ([]*types.Job, error)
	MarkCompleted(dbc dbctx.Context, id uuid.UUID, result datatypes.JSON) (bool, error)
	RescheduleRetry(dbc dbctx.Context, id uuid.UUID, runAt time.Time, errorMessage string) (bool, error)
	MarkDeadLetter(dbc dbctx.Context, id uuid.UUID, errorMessage string) (bool, error)
	Requeue(dbc dbctx.Context, id uuid.UUID, runAt time.Time) (bool, error)
	ReclaimStale(dbc dbctx.Context, olderThan time.Duration) (int64, error)
	CountByStatus(dbc dbctx.Context) (map[string]int64, error)
}

type jobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRepo(db *gorm.DB, baseLog *logger.Logger) JobRepo {
	return &jobRepo{
		db:  db,
		log: baseLog.With("repo", "JobRepo"),
	}
}

func (r *jobRepo) Create(dbc dbctx.Context, jobs []*types.Job) ([]*types.Job, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(jobs) == 0 {
		return []*types.Job{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Job, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var job types.Job
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *jobRepo) ListByOwner(dbc dbctx.Context, ownerID uuid.UUID, limit int) ([]*types.Job, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Job
	if ownerID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 50
	}
	err := transaction.WithContext(dbc.Ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ClaimDueBatch picks up to limit due pending jobs (priority DESC,
// scheduled_for ASC) and flips them to processing in one transaction.
// SKIP LOCKED keeps concurrent invocations from claiming the same row.
func (r *jobRepo) ClaimDueBatch(dbc dbctx.Context, limit int, now time.Time) ([]*types.Job, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		return []*types.Job{}, nil
	}
	var claimed []*types.Job
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var due []*types.Job
		qErr := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND scheduled_for <= ?", types.JobStatusPending, now).
			Order("priority DESC").
			Order("scheduled_for ASC").
			Limit(limit).
			Find(&due).Error
		if qErr != nil {
			return qErr
		}
		if len(due) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, 0, len(due))
		for _, j := range due {
			ids = append(ids, j.ID)
		}
		uErr := txx.Model(&types.Job{}).
			Where("id IN ? AND status = ?", ids, types.JobStatusPending).
			Updates(map[string]interface{}{
				"status":     types.JobStatusProcessing,
				"started_at": now,
				"updated_at": now,
			}).Error
		if uErr != nil {
			return uErr
		}
		for _, j := range due {
			j.Status = types.JobStatusProcessing
			startedAt := now
			j.StartedAt = &startedAt
			j.UpdatedAt = now
		}
		claimed = due
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobRepo) MarkCompleted(dbc dbctx.Context, id uuid.UUID, result datatypes.JSON) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	now := time.Now()
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Job{}).
		Where("id = ? AND status = ?", id, types.JobStatusProcessing).
		Updates(map[string]interface{}{
			"status":       types.JobStatusCompleted,
			"result":       result,
			"completed_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RescheduleRetry sends a failed job back to pending with a new run
// time. The retry_count guard makes the retry budget a database-level
// invariant, not just processor logic.
func (r *jobRepo) RescheduleRetry(dbc dbctx.Context, id uuid.UUID, runAt time.Time, errorMessage string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Job{}).
		Where("id = ? AND status = ? AND retry_count < max_retries", id, types.JobStatusProcessing).
		Updates(map[string]interface{}{
			"status":        types.JobStatusPending,
			"scheduled_for": runAt,
			"retry_count":   gorm.Expr("retry_count + 1"),
			"error_message": errorMessage,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *jobRepo) MarkDeadLetter(dbc dbctx.Context, id uuid.UUID, errorMessage string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	now := time.Now()
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Job{}).
		Where("id = ? AND status = ?", id, types.JobStatusProcessing).
		Updates(map[string]interface{}{
			"status":        types.JobStatusDeadLetter,
			"error_message": errorMessage,
			"completed_at":  now,
			"updated_at":    now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Requeue returns a claimed job to pending without touching its retry
// budget (used when dispatch is deferred, e.g. an engine is over its
// rate limit).
func (r *jobRepo) Requeue(dbc dbctx.Context, id uuid.UUID, runAt time.Time) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Job{}).
		Where("id = ? AND status = ?", id, types.JobStatusProcessing).
		Updates(map[string]interface{}{
			"status":        types.JobStatusPending,
			"scheduled_for": runAt,
			"started_at":    nil,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ReclaimStale requeues jobs stuck in processing past olderThan. A
// handler that never returned leaves its job here; the sweep gives it
// back to the scheduler instead of letting it hang forever.
func (r *jobRepo) ReclaimStale(dbc dbctx.Context, olderThan time.Duration) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	cutoff := now.Add(-olderThan)
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Job{}).
		Where("status = ? AND started_at IS NOT NULL AND started_at < ?", types.JobStatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":        types.JobStatusPending,
			"scheduled_for": now,
			"started_at":    nil,
			"updated_at":    now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *jobRepo) CountByStatus(dbc dbctx.Context) (map[string]int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.Job{}).
		Select("status, count(*) as n").
		Group("status").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}
