package repos

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/peakline/aeo-backend/internal/domain"
	"github.com/peakline/aeo-backend/internal/pkg/dbctx"
	"github.com/peakline/aeo-backend/internal/pkg/logger"
)

type EngineAuthorityRepo interface {
	Seed(dbc dbctx.Context, rows []*types.EngineAuthority) error
	GetByEngine(dbc dbctx.Context, engine string) (*types.EngineAuthority, error)
	List(dbc dbctx.Context) ([]*types.EngineAuthority, error)
	// UpdateVersioned writes the row only if its version still matches
	// the one the update was computed from, and bumps it. Returns false
	// on a lost race so the caller can reload and recompute.
	UpdateVersioned(dbc dbctx.Context, engine string, version int64, updates map[string]interface{}) (bool, error)
	SetStatus(dbc dbctx.Context, engine string, status string) (bool, error)
}

type engineAuthorityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEngineAuthorityRepo(db *gorm.DB, baseLog *logger.Logger) EngineAuthorityRepo {
	return &engineAuthorityRepo{
		db:  db,
		log: baseLog.With("repo", "EngineAuthorityRepo"),
	}
}

func (r *engineAuthorityRepo) Seed(dbc dbctx.Context, rows []*types.EngineAuthority) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "engine"}},
			DoNothing: true,
		}).
		Create(&rows).Error
}

func (r *engineAuthorityRepo) GetByEngine(dbc dbctx.Context, engine string) (*types.EngineAuthority, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if engine == "" {
		return nil, nil
	}
	var row types.EngineAuthority
	err := transaction.WithContext(dbc.Ctx).
		Where("engine = ?", engine).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.Engine == "" {
		return nil, nil
	}
	return &row, nil
}

func (r *engineAuthorityRepo) List(dbc dbctx.Context) ([]*types.EngineAuthority, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.EngineAuthority
	if err := transaction.WithContext(dbc.Ctx).
		Order("engine ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *engineAuthorityRepo) UpdateVersioned(dbc dbctx.Context, engine string, version int64, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if engine == "" {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["version"] = gorm.Expr("version + 1")
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.EngineAuthority{}).
		Where("engine = ? AND version = ?", engine, version).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *engineAuthorityRepo) SetStatus(dbc dbctx.Context, engine string, status string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if engine == "" || status == "" {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.EngineAuthority{}).
		Where("engine = ?", engine).
		Updates(map[string]interface{}{
			"status":     status,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
