package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/peakline/aeo-backend/internal/pkg/dbctx"
	"github.com/peakline/aeo-backend/internal/requestdata"
	"github.com/peakline/aeo-backend/internal/services"
)

type JobsHandler struct {
	jobs services.JobService
}

func NewJobsHandler(jobs services.JobService) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

type enqueueJobRequest struct {
	JobType      string         `json:"job_type" binding:"required"`
	Payload      map[string]any `json:"payload"`
	Priority     int            `json:"priority"`
	MaxRetries   int            `json:"max_retries"`
	ScheduledFor *time.Time     `json:"scheduled_for"`
}

// POST /api/jobs
func (h *JobsHandler) Enqueue(c *gin.Context) {
	var req enqueueJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ownerID := requestdata.OwnerID(c.Request.Context())

	opts := services.EnqueueOptions{
		Priority:   req.Priority,
		MaxRetries: req.MaxRetries,
	}
	if req.ScheduledFor != nil {
		opts.ScheduledFor = *req.ScheduledFor
	}
	job, err := h.jobs.Enqueue(dbctx.Context{Ctx: c.Request.Context()}, ownerID, req.JobType, req.Payload, opts)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "enqueue_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"job": job})
}

// GET /api/jobs/:id
func (h *JobsHandler) GetByID(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobs.GetByID(dbctx.Context{Ctx: c.Request.Context()}, jobID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "job_lookup_failed", err)
		return
	}
	if job == nil || job.OwnerID != requestdata.OwnerID(c.Request.Context()) {
		RespondError(c, http.StatusNotFound, "job_not_found", fmt.Errorf("job %s not found", jobID))
		return
	}
	RespondOK(c, gin.H{"job": job})
}

// GET /api/jobs
func (h *JobsHandler) List(c *gin.Context) {
	ownerID := requestdata.OwnerID(c.Request.Context())
	jobs, err := h.jobs.ListForOwner(dbctx.Context{Ctx: c.Request.Context()}, ownerID, 50)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "job_list_failed", err)
		return
	}
	RespondOK(c, gin.H{"jobs": jobs})
}

// GET /api/jobs/stats
func (h *JobsHandler) Stats(c *gin.Context) {
	counts, err := h.jobs.QueueDepths(dbctx.Context{Ctx: c.Request.Context()})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "job_stats_failed", err)
		return
	}
	RespondOK(c, gin.H{"counts": counts})
}
