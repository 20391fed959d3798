package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	redisclient "github.com/peakline/aeo-backend/internal/clients/redis"
	"github.com/peakline/aeo-backend/internal/data/repos"
	types "github.com/peakline/aeo-backend/internal/domain"
	"github.com/peakline/aeo-backend/internal/pkg/dbctx"
	"github.com/peakline/aeo-backend/internal/pkg/logger"
)

type AlertService interface {
	Emit(dbc dbctx.Context, ownerID uuid.UUID, alertType, severity, title, message string) (*types.Alert, error)
	ListForOwner(dbc dbctx.Context, ownerID uuid.UUID, limit int) ([]*types.Alert, error)
}

type alertService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.AlertRepo
	bus  redisclient.AlertBus
}

// NewAlertService builds the alert sink. bus may be nil; alerts are
// then persisted without fan-out.
func NewAlertService(db *gorm.DB, baseLog *logger.Logger, repo repos.AlertRepo, bus redisclient.AlertBus) AlertService {
	return &alertService{
		db:   db,
		log:  baseLog.With("service", "AlertService"),
		repo: repo,
		bus:  bus,
	}
}

func (s *alertService) Emit(dbc dbctx.Context, ownerID uuid.UUID, alertType, severity, title, message string) (*types.Alert, error) {
	alert := &types.Alert{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Type:      alertType,
		Title:     title,
		Message:   message,
		Severity:  severity,
		CreatedAt: time.Now(),
	}
	if _, err := s.repo.Create(dbc, alert); err != nil {
		return nil, err
	}
	if s.bus != nil {
		ctx := dbc.Ctx
		if ctx == nil {
			ctx = context.Background()
		}
		// Fan-out is best effort; the persisted row is the source of truth.
		if err := s.bus.Publish(ctx, alert); err != nil {
			s.log.Warn("Alert publish failed", "alert_id", alert.ID, "error", err)
		}
	}
	return alert, nil
}

func (s *alertService) ListForOwner(dbc dbctx.Context, ownerID uuid.UUID, limit int) ([]*types.Alert, error) {
	return s.repo.ListByOwner(dbc, ownerID, limit)
}
