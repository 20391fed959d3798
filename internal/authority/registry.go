package authority

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/peakline/aeo-backend/internal/data/repos"
	types "github.com/peakline/aeo-backend/internal/domain"
	"github.com/peakline/aeo-backend/internal/pkg/dbctx"
	pkgerrors "github.com/peakline/aeo-backend/internal/pkg/errors"
	"github.com/peakline/aeo-backend/internal/pkg/logger"
)

// Lost version races are rare (per-engine contention only), so a small
// retry budget is plenty.
const maxOutcomeAttempts = 3

var displayNames = map[string]string{
	types.EngineChatGPT:    "ChatGPT",
	types.EnginePerplexity: "Perplexity",
	types.EngineGemini:     "Gemini",
	types.EngineClaude:     "Claude",
	types.EngineAIOverview: "Google AI Overview",
}

// Registry tracks per-engine health and the derived authority weight.
type Registry struct {
	db          *gorm.DB
	log         *logger.Logger
	authorities repos.EngineAuthorityRepo
	outages     repos.EngineOutageRepo
}

func NewRegistry(db *gorm.DB, baseLog *logger.Logger, authorities repos.EngineAuthorityRepo, outages repos.EngineOutageRepo) *Registry {
	return &Registry{
		db:          db,
		log:         baseLog.With("component", "AuthorityRegistry"),
		authorities: authorities,
		outages:     outages,
	}
}

// SeedKnownEngines creates one row per known engine; existing rows are
// left untouched.
func (r *Registry) SeedKnownEngines(ctx context.Context) error {
	dbc := dbctx.Context{Ctx: ctx}
	rows := make([]*types.EngineAuthority, 0, len(types.KnownEngines))
	for _, engine := range types.KnownEngines {
		name := displayNames[engine]
		if name == "" {
			name = engine
		}
		rows = append(rows, &types.EngineAuthority{
			Engine:               engine,
			DisplayName:          name,
			Status:               types.EngineStatusHealthy,
			ReliabilityScore:     100,
			CitationCompleteness: 100,
			FreshnessIndex:       100,
			AuthorityWeight:      1.0,
		})
	}
	return r.authorities.Seed(dbc, rows)
}

// RecordQueryOutcome folds one query attempt into the engine's
// authority row. The read-compute-write cycle is guarded by the row
// version, so concurrent callers never lose updates.
func (r *Registry) RecordQueryOutcome(ctx context.Context, engine string, success bool, responseTimeMs *int) error {
	dbc := dbctx.Context{Ctx: ctx}
	now := time.Now()

	for attempt := 0; attempt < maxOutcomeAttempts; attempt++ {
		cur, err := r.authorities.GetByEngine(dbc, engine)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("engine authority %q: %w", engine, pkgerrors.ErrNotFound)
		}

		next := Next(*cur, Outcome{Success: success, ResponseTimeMs: responseTimeMs}, now)

		ok, err := r.authorities.UpdateVersioned(dbc, engine, cur.Version, map[string]interface{}{
			"total_queries":         next.TotalQueries,
			"successful_queries":    next.SuccessfulQueries,
			"consecutive_failures":  next.ConsecutiveFailures,
			"reliability_score":     next.ReliabilityScore,
			"status":                next.Status,
			"authority_weight":      next.AuthorityWeight,
			"avg_response_time_ms":  next.AvgResponseTimeMs,
			"last_successful_query": next.LastSuccessfulQuery,
			"last_failure":          next.LastFailure,
		})
		if err != nil {
			return err
		}
		if !ok {
			r.log.Debug("Authority update lost version race, retrying", "engine", engine, "attempt", attempt+1)
			continue
		}

		return r.applyOutageTransition(dbc, engine, cur.Status, next.Status, success, now)
	}
	return fmt.Errorf("record outcome for %q: version conflict after %d attempts", engine, maxOutcomeAttempts)
}

func (r *Registry) applyOutageTransition(dbc dbctx.Context, engine, prevStatus, nextStatus string, success bool, now time.Time) error {
	if nextStatus == types.EngineStatusUnavailable {
		if prevStatus != types.EngineStatusUnavailable {
			opened, err := r.outages.OpenIfNone(dbc, engine, now)
			if err != nil {
				return err
			}
			if opened {
				r.log.Warn("Engine outage opened", "engine", engine)
			}
		}
		if !success {
			return r.outages.IncrementAffected(dbc, engine)
		}
		return nil
	}
	if nextStatus == types.EngineStatusHealthy && prevStatus != types.EngineStatusHealthy {
		closed, err := r.outages.CloseOpen(dbc, engine, now)
		if err != nil {
			return err
		}
		if closed {
			r.log.Info("Engine outage closed", "engine", engine)
		}
	}
	return nil
}

func (r *Registry) GetAuthority(ctx context.Context, engine string) (*types.EngineAuthority, error) {
	return r.authorities.GetByEngine(dbctx.Context{Ctx: ctx}, engine)
}

func (r *Registry) List(ctx context.Context) ([]*types.EngineAuthority, error) {
	return r.authorities.List(dbctx.Context{Ctx: ctx})
}

func (r *Registry) GetOpenOutage(ctx context.Context, engine string) (*types.EngineOutage, error) {
	return r.outages.GetOpen(dbctx.Context{Ctx: ctx}, engine)
}

// SetMaintenance flips the operator override. Turning it off restores
// the status derived from the current failure streak.
func (r *Registry) SetMaintenance(ctx context.Context, engine string, on bool) error {
	dbc := dbctx.Context{Ctx: ctx}
	if on {
		ok, err := r.authorities.SetStatus(dbc, engine, types.EngineStatusMaintenance)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("engine authority %q: %w", engine, pkgerrors.ErrNotFound)
		}
		return nil
	}
	cur, err := r.authorities.GetByEngine(dbc, engine)
	if err != nil {
		return err
	}
	if cur == nil {
		return fmt.Errorf("engine authority %q: %w", engine, pkgerrors.ErrNotFound)
	}
	restored := StatusFromFailures(cur.ConsecutiveFailures)
	if _, err := r.authorities.SetStatus(dbc, engine, restored); err != nil {
		return err
	}

	// Outcomes recorded during maintenance never cross an outage edge
	// (the status stays maintenance), so the outage log can be out of
	// step with the restored status. Reconcile it here.
	now := time.Now()
	switch restored {
	case types.EngineStatusHealthy:
		closed, err := r.outages.CloseOpen(dbc, engine, now)
		if err != nil {
			return err
		}
		if closed {
			r.log.Info("Engine outage closed", "engine", engine)
		}
	case types.EngineStatusUnavailable:
		opened, err := r.outages.OpenIfNone(dbc, engine, now)
		if err != nil {
			return err
		}
		if opened {
			r.log.Warn("Engine outage opened", "engine", engine)
		}
	}
	return nil
}
