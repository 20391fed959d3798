package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/peakline/aeo-backend/internal/authority"
	types "github.com/peakline/aeo-backend/internal/domain"
)

type EnginesHandler struct {
	registry *authority.Registry
}

func NewEnginesHandler(registry *authority.Registry) *EnginesHandler {
	return &EnginesHandler{registry: registry}
}

type engineView struct {
	*types.EngineAuthority
	OpenOutage *types.EngineOutage `json:"open_outage,omitempty"`
}

// GET /api/engines
func (h *EnginesHandler) List(c *gin.Context) {
	rows, err := h.registry.List(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "engine_list_failed", err)
		return
	}
	out := make([]engineView, 0, len(rows))
	for _, row := range rows {
		view := engineView{EngineAuthority: row}
		if row.Status == types.EngineStatusUnavailable {
			if outage, oErr := h.registry.GetOpenOutage(c.Request.Context(), row.Engine); oErr == nil {
				view.OpenOutage = outage
			}
		}
		out = append(out, view)
	}
	RespondOK(c, gin.H{"engines": out})
}

// GET /api/engines/:engine
func (h *EnginesHandler) Get(c *gin.Context) {
	engine := c.Param("engine")
	row, err := h.registry.GetAuthority(c.Request.Context(), engine)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "engine_lookup_failed", err)
		return
	}
	if row == nil {
		RespondError(c, http.StatusNotFound, "engine_not_found", fmt.Errorf("engine %q not found", engine))
		return
	}
	view := engineView{EngineAuthority: row}
	if outage, oErr := h.registry.GetOpenOutage(c.Request.Context(), engine); oErr == nil {
		view.OpenOutage = outage
	}
	RespondOK(c, gin.H{"engine": view})
}

type maintenanceRequest struct {
	Enabled bool `json:"enabled"`
}

// PUT /api/engines/:engine/maintenance
func (h *EnginesHandler) SetMaintenance(c *gin.Context) {
	engine := c.Param("engine")
	var req maintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.registry.SetMaintenance(c.Request.Context(), engine, req.Enabled); err != nil {
		RespondError(c, http.StatusBadRequest, "maintenance_update_failed", err)
		return
	}
	row, err := h.registry.GetAuthority(c.Request.Context(), engine)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "engine_lookup_failed", err)
		return
	}
	RespondOK(c, gin.H{"engine": row})
}
