package repos

import (
	"context"
	"testing"
	"time"

	"github.com/peakline/aeo-backend/internal/data/repos/testutil"
	types "github.com/peakline/aeo-backend/internal/domain"
	"github.com/peakline/aeo-backend/internal/pkg/dbctx"
)

func TestEngineAuthorityRepoVersionedUpdates(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewEngineAuthorityRepo(db, testutil.Logger(t))

	seeded := testutil.SeedAuthority(t, ctx, tx, "chatgpt")

	got, err := repo.GetByEngine(dbc, "chatgpt")
	if err != nil {
		t.Fatalf("GetByEngine: %v", err)
	}
	if got == nil || got.Engine != "chatgpt" {
		t.Fatalf("GetByEngine: got %+v", got)
	}

	ok, err := repo.UpdateVersioned(dbc, "chatgpt", got.Version, map[string]interface{}{
		"total_queries":      int64(1),
		"successful_queries": int64(1),
	})
	if err != nil || !ok {
		t.Fatalf("UpdateVersioned: ok=%v err=%v", ok, err)
	}

	// A write computed from the stale version must be rejected.
	ok, err = repo.UpdateVersioned(dbc, "chatgpt", got.Version, map[string]interface{}{
		"total_queries": int64(99),
	})
	if err != nil {
		t.Fatalf("UpdateVersioned stale: %v", err)
	}
	if ok {
		t.Fatalf("UpdateVersioned stale: expected rejection")
	}

	got, _ = repo.GetByEngine(dbc, "chatgpt")
	if got.TotalQueries != 1 {
		t.Fatalf("total_queries: want=1 got=%d", got.TotalQueries)
	}
	if got.Version != seeded.Version+1 {
		t.Fatalf("version: want=%d got=%d", seeded.Version+1, got.Version)
	}

	// Seed is idempotent: re-seeding a known engine does not reset it.
	if err := repo.Seed(dbc, []*types.EngineAuthority{{
		Engine:      "chatgpt",
		DisplayName: "ChatGPT",
		Status:      types.EngineStatusHealthy,
	}}); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	got, _ = repo.GetByEngine(dbc, "chatgpt")
	if got.TotalQueries != 1 {
		t.Fatalf("Seed overwrote existing row: total_queries=%d", got.TotalQueries)
	}
}

func TestEngineOutageRepoSingleOpenOutage(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewEngineOutageRepo(db, testutil.Logger(t))

	now := time.Now().UTC()

	opened, err := repo.OpenIfNone(dbc, "gemini", now)
	if err != nil || !opened {
		t.Fatalf("OpenIfNone: opened=%v err=%v", opened, err)
	}

	// Second open while one is outstanding is a no-op.
	opened, err = repo.OpenIfNone(dbc, "gemini", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("OpenIfNone second: %v", err)
	}
	if opened {
		t.Fatalf("OpenIfNone second: expected no-op while outage open")
	}

	if err := repo.IncrementAffected(dbc, "gemini"); err != nil {
		t.Fatalf("IncrementAffected: %v", err)
	}
	open, err := repo.GetOpen(dbc, "gemini")
	if err != nil {
		t.Fatalf("GetOpen: %v", err)
	}
	if open == nil || open.AffectedQueries != 1 {
		t.Fatalf("GetOpen: got %+v", open)
	}

	closed, err := repo.CloseOpen(dbc, "gemini", now.Add(10*time.Minute))
	if err != nil || !closed {
		t.Fatalf("CloseOpen: closed=%v err=%v", closed, err)
	}
	if open, _ := repo.GetOpen(dbc, "gemini"); open != nil {
		t.Fatalf("GetOpen after close: got %+v", open)
	}

	// A new outage can open once the previous one ended.
	opened, err = repo.OpenIfNone(dbc, "gemini", now.Add(time.Hour))
	if err != nil || !opened {
		t.Fatalf("OpenIfNone after close: opened=%v err=%v", opened, err)
	}
	rows, err := repo.ListByEngine(dbc, "gemini", 10)
	if err != nil {
		t.Fatalf("ListByEngine: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("ListByEngine: want=2 got=%d", len(rows))
	}
}
