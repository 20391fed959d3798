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

type ScoreResultRepo interface {
	// Upsert writes the score for a prompt; a newer scoring run is the
	// only thing that overwrites an existing row.
	Upsert(dbc dbctx.Context, row *types.ScoreResult) error
	GetByPrompt(dbc dbctx.Context, promptID uuid.UUID) (*types.ScoreResult, error)
}

type scoreResultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScoreResultRepo(db *gorm.DB, baseLog *logger.Logger) ScoreResultRepo {
	return &scoreResultRepo{
		db:  db,
		log: baseLog.With("repo", "ScoreResultRepo"),
	}
}

func (r *scoreResultRepo) Upsert(dbc dbctx.Context, row *types.ScoreResult) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil || row.PromptID == uuid.Nil {
		return nil
	}
	now := time.Now()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "prompt_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"ai_visibility_score", "unweighted_avs", "citation_score",
				"brand_authority_score", "share_of_voice", "breakdown",
				"confidence", "is_estimated", "degraded_engines",
				"scoring_version", "updated_at",
			}),
		}).
		Create(row).Error
}

func (r *scoreResultRepo) GetByPrompt(dbc dbctx.Context, promptID uuid.UUID) (*types.ScoreResult, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if promptID == uuid.Nil {
		return nil, nil
	}
	var row types.ScoreResult
	err := transaction.WithContext(dbc.Ctx).
		Where("prompt_id = ?", promptID).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.PromptID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}
