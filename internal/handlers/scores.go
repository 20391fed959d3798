package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/peakline/aeo-backend/internal/scoring"
)

type ScoresHandler struct {
	scorer *scoring.Service
}

func NewScoresHandler(scorer *scoring.Service) *ScoresHandler {
	return &ScoresHandler{scorer: scorer}
}

// GET /api/scores/:promptId
func (h *ScoresHandler) GetByPrompt(c *gin.Context) {
	promptID, err := uuid.Parse(c.Param("promptId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_prompt_id", err)
		return
	}
	score, err := h.scorer.GetByPrompt(c.Request.Context(), promptID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "score_lookup_failed", err)
		return
	}
	if score == nil {
		RespondError(c, http.StatusNotFound, "score_not_found", fmt.Errorf("no score for prompt %s", promptID))
		return
	}
	RespondOK(c, gin.H{"score": score})
}

// POST /api/scores/:promptId/recompute
func (h *ScoresHandler) Recompute(c *gin.Context) {
	promptID, err := uuid.Parse(c.Param("promptId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_prompt_id", err)
		return
	}
	score, err := h.scorer.ScoreStored(c.Request.Context(), promptID, scoring.Options{
		ConfigVersion: c.Query("config_version"),
	})
	if err != nil {
		RespondError(c, http.StatusBadRequest, "score_recompute_failed", err)
		return
	}
	RespondOK(c, gin.H{"score": score})
}
