package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	redisclient "github.com/peakline/aeo-backend/internal/clients/redis"
	"github.com/peakline/aeo-backend/internal/data/repos"
	types "github.com/peakline/aeo-backend/internal/domain"
	"github.com/peakline/aeo-backend/internal/pkg/dbctx"
	apperr "github.com/peakline/aeo-backend/internal/pkg/errors"
	"github.com/peakline/aeo-backend/internal/pkg/logger"
	"github.com/peakline/aeo-backend/internal/platform/envutil"
	"github.com/peakline/aeo-backend/internal/services"
)

// JobResult is the per-job line item of a batch pass.
type JobResult struct {
	JobID   uuid.UUID `json:"job_id"`
	JobType string    `json:"job_type"`
	Status  string    `json:"status"`
	Error   string    `json:"error,omitempty"`
}

// BatchResult summarizes one ProcessBatch pass.
type BatchResult struct {
	Reclaimed    int64       `json:"reclaimed"`
	Claimed      int         `json:"claimed"`
	Completed    int         `json:"completed"`
	Retried      int         `json:"retried"`
	DeadLettered int         `json:"dead_lettered"`
	Requeued     int         `json:"requeued"`
	Results      []JobResult `json:"results"`
}

type Processor struct {
	log      *logger.Logger
	repo     repos.JobRepo
	registry *Registry
	limiter  redisclient.EngineLimiter
	alerts   services.AlertService

	concurrency  int
	staleAfter   time.Duration
	requeueDelay time.Duration
}

// NewProcessor wires the batch job processor. limiter may be nil;
// engine limits are then not enforced.
func NewProcessor(baseLog *logger.Logger, repo repos.JobRepo, registry *Registry, limiter redisclient.EngineLimiter, alerts services.AlertService) *Processor {
	concurrency := envutil.Int("JOB_CONCURRENCY", 4)
	if concurrency < 1 {
		concurrency = 1
	}
	return &Processor{
		log:          baseLog.With("component", "JobProcessor"),
		repo:         repo,
		registry:     registry,
		limiter:      limiter,
		alerts:       alerts,
		concurrency:  concurrency,
		staleAfter:   envutil.Duration("JOB_STALE_AFTER", 15*time.Minute),
		requeueDelay: envutil.Duration("JOB_REQUEUE_DELAY", 30*time.Second),
	}
}

// ProcessBatch reclaims stale processing jobs, claims up to batchSize
// due jobs, and runs them through their handlers with bounded
// concurrency.
func (p *Processor) ProcessBatch(ctx context.Context, batchSize int) (BatchResult, error) {
	ctx, span := otel.Tracer("jobs").Start(ctx, "jobs.ProcessBatch")
	defer span.End()

	var res BatchResult
	dbc := dbctx.Context{Ctx: ctx}

	// Crashed workers leave jobs stuck in processing; sweep them back
	// before claiming so they re-enter the same scheduling pass.
	reclaimed, err := p.repo.ReclaimStale(dbc, p.staleAfter)
	if err != nil {
		return res, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	if reclaimed > 0 {
		p.log.Warn("Reclaimed stale processing jobs", "count", reclaimed)
	}
	res.Reclaimed = reclaimed

	claimed, err := p.repo.ClaimDueBatch(dbc, batchSize, time.Now())
	if err != nil {
		return res, fmt.Errorf("claim due jobs: %w", err)
	}
	res.Claimed = len(claimed)
	span.SetAttributes(attribute.Int("jobs.claimed", len(claimed)))
	if len(claimed) == 0 {
		return res, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, job := range claimed {
		job := job
		g.Go(func() error {
			outcome, runErr := p.runJob(gctx, job)
			item := JobResult{JobID: job.ID, JobType: job.JobType}
			if runErr != nil {
				item.Error = runErr.Error()
			}
			mu.Lock()
			switch outcome {
			case outcomeCompleted:
				res.Completed++
				item.Status = types.JobStatusCompleted
			case outcomeRetried:
				res.Retried++
				item.Status = types.JobStatusPending
			case outcomeDeadLettered:
				res.DeadLettered++
				item.Status = types.JobStatusDeadLetter
			case outcomeRequeued:
				res.Requeued++
				item.Status = types.JobStatusPending
			}
			res.Results = append(res.Results, item)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	p.log.Info("Batch processed",
		"claimed", res.Claimed,
		"completed", res.Completed,
		"retried", res.Retried,
		"dead_lettered", res.DeadLettered,
		"requeued", res.Requeued,
	)
	return res, nil
}

type jobOutcome int

const (
	outcomeCompleted jobOutcome = iota
	outcomeRetried
	outcomeDeadLettered
	outcomeRequeued
)

func (p *Processor) runJob(ctx context.Context, job *types.Job) (jobOutcome, error) {
	ctx, span := otel.Tracer("jobs").Start(ctx, "jobs.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("job.id", job.ID.String()),
		attribute.String("job.type", job.JobType),
		attribute.Int("job.retry_count", job.RetryCount),
	)

	handler, ok := p.registry.Get(job.JobType)
	if !ok {
		return p.fail(ctx, job, apperr.Permanent(fmt.Errorf("no handler registered for job_type=%s", job.JobType)))
	}

	if eb, bound := handler.(EngineBound); bound && p.limiter != nil {
		if engine := eb.Engine(job); engine != "" {
			canClaim, err := p.limiter.CanClaim(ctx, engine)
			if err != nil {
				p.log.Warn("Engine limiter check failed", "job_id", job.ID, "engine", engine, "error", err)
			} else if !canClaim {
				if _, rqErr := p.repo.Requeue(dbctx.Context{Ctx: ctx}, job.ID, time.Now().Add(p.requeueDelay)); rqErr != nil {
					p.log.Error("Requeue over engine limit failed", "job_id", job.ID, "engine", engine, "error", rqErr)
				}
				return outcomeRequeued, fmt.Errorf("engine %s over inflight limit", engine)
			}
			if err == nil {
				jobID := job.ID.String()
				if cErr := p.limiter.Claim(ctx, engine, jobID); cErr != nil {
					p.log.Warn("Engine limiter claim failed", "job_id", job.ID, "engine", engine, "error", cErr)
				} else {
					defer func() {
						if rErr := p.limiter.Release(ctx, engine, jobID); rErr != nil {
							p.log.Warn("Engine limiter release failed", "job_id", job.ID, "engine", engine, "error", rErr)
						}
					}()
				}
			}
		}
	}

	result, runErr := p.runWithRecovery(ctx, handler, job)
	if runErr != nil {
		return p.fail(ctx, job, runErr)
	}

	var resultJSON datatypes.JSON
	if result != nil {
		raw, mErr := json.Marshal(result)
		if mErr != nil {
			return p.fail(ctx, job, apperr.Permanent(fmt.Errorf("marshal handler result: %w", mErr)))
		}
		resultJSON = datatypes.JSON(raw)
	}
	done, err := p.repo.MarkCompleted(dbctx.Context{Ctx: ctx}, job.ID, resultJSON)
	if err != nil {
		p.log.Error("MarkCompleted failed", "job_id", job.ID, "error", err)
		return outcomeRetried, err
	}
	if !done {
		// Someone else moved the job (stale sweep most likely); nothing
		// left to record here.
		p.log.Warn("Completed job no longer in processing", "job_id", job.ID)
	}
	return outcomeCompleted, nil
}

func (p *Processor) runWithRecovery(ctx context.Context, h Handler, job *types.Job) (result map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Job handler panic", "job_id", job.ID, "job_type", job.JobType, "panic", r)
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Run(ctx, job)
}

// fail routes a handler error: permanent errors and exhausted retry
// budgets dead-letter the job and emit an alert, anything else goes
// back to pending with exponential backoff.
func (p *Processor) fail(ctx context.Context, job *types.Job, runErr error) (jobOutcome, error) {
	dbc := dbctx.Context{Ctx: ctx}

	if !apperr.IsPermanent(runErr) {
		runAt := time.Now().Add(RetryDelay(job.RetryCount))
		rescheduled, err := p.repo.RescheduleRetry(dbc, job.ID, runAt, runErr.Error())
		if err != nil {
			p.log.Error("RescheduleRetry failed", "job_id", job.ID, "error", err)
			return outcomeRetried, runErr
		}
		if rescheduled {
			p.log.Warn("Job rescheduled",
				"job_id", job.ID,
				"job_type", job.JobType,
				"retry_count", job.RetryCount+1,
				"run_at", runAt,
				"error", runErr,
			)
			return outcomeRetried, runErr
		}
		// Refused reschedule means the retry budget is spent.
	}

	deadLettered, err := p.repo.MarkDeadLetter(dbc, job.ID, runErr.Error())
	if err != nil {
		p.log.Error("MarkDeadLetter failed", "job_id", job.ID, "error", err)
		return outcomeDeadLettered, runErr
	}
	if deadLettered {
		p.log.Error("Job dead-lettered",
			"job_id", job.ID,
			"job_type", job.JobType,
			"retry_count", job.RetryCount,
			"permanent", apperr.IsPermanent(runErr),
			"error", runErr,
		)
		p.emitDeadLetterAlert(dbc, job, runErr)
	}
	return outcomeDeadLettered, runErr
}

func (p *Processor) emitDeadLetterAlert(dbc dbctx.Context, job *types.Job, runErr error) {
	if p.alerts == nil {
		return
	}
	title := fmt.Sprintf("Job %s failed permanently", job.JobType)
	message := fmt.Sprintf("job %s dead-lettered after %d retries: %v", job.ID, job.RetryCount, runErr)
	if _, err := p.alerts.Emit(dbc, job.OwnerID, types.AlertTypeJobFailed, types.AlertSeverityWarning, title, message); err != nil {
		p.log.Error("Dead-letter alert failed", "job_id", job.ID, "error", err)
	}
}
