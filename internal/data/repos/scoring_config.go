package repos

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/peakline/aeo-backend/internal/domain"
	"github.com/peakline/aeo-backend/internal/pkg/dbctx"
	"github.com/peakline/aeo-backend/internal/pkg/logger"
)

type ScoringConfigRepo interface {
	Create(dbc dbctx.Context, cfg *types.ScoringConfig) (*types.ScoringConfig, error)
	GetActive(dbc dbctx.Context) (*types.ScoringConfig, error)
	GetByVersion(dbc dbctx.Context, version string) (*types.ScoringConfig, error)
	// Activate swaps the single active pointer in one transaction.
	Activate(dbc dbctx.Context, version string) error
}

type scoringConfigRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScoringConfigRepo(db *gorm.DB, baseLog *logger.Logger) ScoringConfigRepo {
	return &scoringConfigRepo{
		db:  db,
		log: baseLog.With("repo", "ScoringConfigRepo"),
	}
}

func (r *scoringConfigRepo) Create(dbc dbctx.Context, cfg *types.ScoringConfig) (*types.ScoringConfig, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	now := time.Now()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now
	if err := transaction.WithContext(dbc.Ctx).Create(cfg).Error; err != nil {
		return nil, err
	}
	return cfg, nil
}

func (r *scoringConfigRepo) GetActive(dbc dbctx.Context) (*types.ScoringConfig, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.ScoringConfig
	err := transaction.WithContext(dbc.Ctx).
		Where("active = ?", true).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *scoringConfigRepo) GetByVersion(dbc dbctx.Context, version string) (*types.ScoringConfig, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if version == "" {
		return nil, nil
	}
	var row types.ScoringConfig
	err := transaction.WithContext(dbc.Ctx).
		Where("version = ?", version).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *scoringConfigRepo) Activate(dbc dbctx.Context, version string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if version == "" {
		return fmt.Errorf("empty version")
	}
	return transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		res := txx.Model(&types.ScoringConfig{}).
			Where("version = ?", version).
			Updates(map[string]interface{}{"active": true, "updated_at": time.Now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("scoring config version %q not found", version)
		}
		return txx.Model(&types.ScoringConfig{}).
			Where("version <> ? AND active = ?", version, true).
			Updates(map[string]interface{}{"active": false, "updated_at": time.Now()}).Error
	})
}
