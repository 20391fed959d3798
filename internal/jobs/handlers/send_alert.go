package handlers

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	types "github.com/peakline/aeo-backend/internal/domain"
	"github.com/peakline/aeo-backend/internal/pkg/dbctx"
	apperr "github.com/peakline/aeo-backend/internal/pkg/errors"
	"github.com/peakline/aeo-backend/internal/pkg/logger"
	"github.com/peakline/aeo-backend/internal/services"
)

// SendAlert delivers a queued alert through the alert sink. Queuing
// alert delivery (rather than emitting inline) lets callers batch and
// retry notification work like any other job.
type SendAlert struct {
	log    *logger.Logger
	alerts services.AlertService
}

func NewSendAlert(baseLog *logger.Logger, alerts services.AlertService) *SendAlert {
	return &SendAlert{
		log:    baseLog.With("handler", "SendAlert"),
		alerts: alerts,
	}
}

func (h *SendAlert) Type() string { return types.JobTypeSendAlert }

type sendAlertPayload struct {
	OwnerID  uuid.UUID `json:"owner_id"`
	Type     string    `json:"type"`
	Severity string    `json:"severity"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
}

func (h *SendAlert) Run(ctx context.Context, job *types.Job) (map[string]any, error) {
	var p sendAlertPayload
	if err := parsePayload(job, &p); err != nil {
		return nil, err
	}
	if p.Title == "" {
		return nil, apperr.Permanent(fmt.Errorf("send_alert payload missing title"))
	}
	ownerID := p.OwnerID
	if ownerID == uuid.Nil {
		ownerID = job.OwnerID
	}
	severity := p.Severity
	if severity == "" {
		severity = types.AlertSeverityInfo
	}
	alertType := p.Type
	if alertType == "" {
		alertType = types.AlertTypeJobFailed
	}

	alert, err := h.alerts.Emit(dbctx.Context{Ctx: ctx}, ownerID, alertType, severity, p.Title, p.Message)
	if err != nil {
		return nil, fmt.Errorf("emit alert: %w", err)
	}
	return map[string]any{"alert_id": alert.ID}, nil
}
