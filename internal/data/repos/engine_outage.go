package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/peakline/aeo-backend/internal/domain"
	"github.com/peakline/aeo-backend/internal/pkg/dbctx"
	"github.com/peakline/aeo-backend/internal/pkg/logger"
)

type EngineOutageRepo interface {
	// OpenIfNone starts an outage unless one is already open for the
	// engine. Returns true when a new row was inserted.
	OpenIfNone(dbc dbctx.Context, engine string, startedAt time.Time) (bool, error)
	CloseOpen(dbc dbctx.Context, engine string, endedAt time.Time) (bool, error)
	GetOpen(dbc dbctx.Context, engine string) (*types.EngineOutage, error)
	IncrementAffected(dbc dbctx.Context, engine string) error
	ListByEngine(dbc dbctx.Context, engine string, limit int) ([]*types.EngineOutage, error)
}

type engineOutageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEngineOutageRepo(db *gorm.DB, baseLog *logger.Logger) EngineOutageRepo {
	return &engineOutageRepo{
		db:  db,
		log: baseLog.With("repo", "EngineOutageRepo"),
	}
}

func (r *engineOutageRepo) OpenIfNone(dbc dbctx.Context, engine string, startedAt time.Time) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if engine == "" {
		return false, nil
	}
	// Conditional insert keeps the at-most-one-open invariant without a
	// partial unique index (which AutoMigrate cannot express).
	res := transaction.WithContext(dbc.Ctx).Exec(`
		INSERT INTO engine_outage (id, engine, started_at, affected_queries, created_at)
		SELECT ?, ?, ?, 0, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM engine_outage WHERE engine = ? AND ended_at IS NULL
		)
	`, uuid.New(), engine, startedAt, time.Now(), engine)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *engineOutageRepo) CloseOpen(dbc dbctx.Context, engine string, endedAt time.Time) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if engine == "" {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.EngineOutage{}).
		Where("engine = ? AND ended_at IS NULL", engine).
		Update("ended_at", endedAt)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *engineOutageRepo) GetOpen(dbc dbctx.Context, engine string) (*types.EngineOutage, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if engine == "" {
		return nil, nil
	}
	var row types.EngineOutage
	err := transaction.WithContext(dbc.Ctx).
		Where("engine = ? AND ended_at IS NULL", engine).
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

func (r *engineOutageRepo) IncrementAffected(dbc dbctx.Context, engine string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if engine == "" {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.EngineOutage{}).
		Where("engine = ? AND ended_at IS NULL", engine).
		Update("affected_queries", gorm.Expr("affected_queries + 1")).Error
}

func (r *engineOutageRepo) ListByEngine(dbc dbctx.Context, engine string, limit int) ([]*types.EngineOutage, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.EngineOutage
	if engine == "" {
		return out, nil
	}
	if limit <= 0 {
		limit = 20
	}
	err := transaction.WithContext(dbc.Ctx).
		Where("engine = ?", engine).
		Order("started_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
