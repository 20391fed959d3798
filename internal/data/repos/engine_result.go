package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/peakline/aeo-backend/internal/domain"
	"github.com/peakline/aeo-backend/internal/pkg/dbctx"
	"github.com/peakline/aeo-backend/internal/pkg/logger"
)

type EngineResultRepo interface {
	// Upsert replaces the result for a prompt/engine pair; a rescrape
	// overwrites the previous answer analysis.
	Upsert(dbc dbctx.Context, row *types.EngineResult) error
	ListByPrompt(dbc dbctx.Context, promptID uuid.UUID) ([]*types.EngineResult, error)
}

type engineResultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEngineResultRepo(db *gorm.DB, baseLog *logger.Logger) EngineResultRepo {
	return &engineResultRepo{
		db:  db,
		log: baseLog.With("repo", "EngineResultRepo"),
	}
}

func (r *engineResultRepo) Upsert(dbc dbctx.Context, row *types.EngineResult) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil || row.PromptID == uuid.Nil || row.Engine == "" {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "prompt_id"}, {Name: "engine"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"mentioned", "position", "citation_count", "brand_citations",
				"sentiment", "sentiment_score", "competitors_mentioned",
				"response_time_ms", "created_at",
			}),
		}).
		Create(row).Error
}

func (r *engineResultRepo) ListByPrompt(dbc dbctx.Context, promptID uuid.UUID) ([]*types.EngineResult, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.EngineResult
	if promptID == uuid.Nil {
		return out, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Where("prompt_id = ?", promptID).
		Order("engine ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
