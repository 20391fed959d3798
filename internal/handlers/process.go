package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/peakline/aeo-backend/internal/jobs"
)

type ProcessHandler struct {
	processor *jobs.Processor
}

func NewProcessHandler(processor *jobs.Processor) *ProcessHandler {
	return &ProcessHandler{processor: processor}
}

type processRequest struct {
	BatchSize int `json:"batch_size"`
}

// POST /api/process
func (h *ProcessHandler) Trigger(c *gin.Context) {
	var req processRequest
	// Body is optional; an empty trigger uses the default batch size.
	_ = c.ShouldBindJSON(&req)
	if req.BatchSize <= 0 {
		if q := c.Query("batch_size"); q != "" {
			if n, err := strconv.Atoi(q); err == nil {
				req.BatchSize = n
			}
		}
	}
	if req.BatchSize <= 0 {
		req.BatchSize = 10
	}

	res, err := h.processor.ProcessBatch(c.Request.Context(), req.BatchSize)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "process_failed", err)
		return
	}
	RespondOK(c, gin.H{"batch": res})
}
