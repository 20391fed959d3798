package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/peakline/aeo-backend/internal/pkg/dbctx"
	"github.com/peakline/aeo-backend/internal/requestdata"
	"github.com/peakline/aeo-backend/internal/services"
)

type AlertsHandler struct {
	alerts services.AlertService
}

func NewAlertsHandler(alerts services.AlertService) *AlertsHandler {
	return &AlertsHandler{alerts: alerts}
}

// GET /api/alerts
func (h *AlertsHandler) List(c *gin.Context) {
	limit := 50
	if q := c.Query("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}
	ownerID := requestdata.OwnerID(c.Request.Context())
	alerts, err := h.alerts.ListForOwner(dbctx.Context{Ctx: c.Request.Context()}, ownerID, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "alert_list_failed", err)
		return
	}
	RespondOK(c, gin.H{"alerts": alerts})
}
