//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"ai-interview-platform/internal/domain"
	"ai-interview-platform/internal/domain/model"
)

func seedInterview(t *testing.T, id string) {
	t.Helper()
	_, err := testPool.Exec(context.Background(), `
INSERT INTO interviews (id, owner_id, title, published) VALUES ($1, 'owner-1', 'Backend Screen', TRUE)`, id)
	if err != nil {
		t.Fatalf("failed to seed interview: %v", err)
	}
}

func TestSessionRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewSessionRepo(testPool)

	t.Run("should save and load a session", func(t *testing.T) {
		cleanup(t)
		seedInterview(t, "iv-1")

		s := model.NewSession(uuid.NewString(), "iv-1", "cand-1", "res-1", "tok-1")
		s.Begin(time.Now())
		if err := repo.Save(ctx, nil, s); err != nil {
			t.Fatalf("save: %v", err)
		}

		got, err := repo.FindByID(ctx, nil, s.ID)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.Status != model.SessionInProgress || got.CandidateID != "cand-1" {
			t.Errorf("loaded session = %+v", got)
		}
	})

	t.Run("second session for same candidate and interview is rejected", func(t *testing.T) {
		cleanup(t)
		seedInterview(t, "iv-1")

		first := model.NewSession(uuid.NewString(), "iv-1", "cand-1", "res-1", "tok-1")
		if err := repo.Save(ctx, nil, first); err != nil {
			t.Fatalf("save first: %v", err)
		}
		second := model.NewSession(uuid.NewString(), "iv-1", "cand-1", "res-1", "tok-2")
		if err := repo.Save(ctx, nil, second); !errors.Is(err, domain.ErrAlreadyExists) {
			t.Errorf("err = %v, want ErrAlreadyExists", err)
		}
	})

	t.Run("MarkCompleted flips exactly once", func(t *testing.T) {
		cleanup(t)
		seedInterview(t, "iv-1")

		s := model.NewSession(uuid.NewString(), "iv-1", "cand-1", "res-1", "tok-1")
		s.Begin(time.Now())
		if err := repo.Save(ctx, nil, s); err != nil {
			t.Fatal(err)
		}

		ok, err := repo.MarkCompleted(ctx, nil, s.ID, time.Now())
		if err != nil || !ok {
			t.Fatalf("first MarkCompleted = %v, %v; want true, nil", ok, err)
		}
		ok, err = repo.MarkCompleted(ctx, nil, s.ID, time.Now())
		if err != nil || ok {
			t.Fatalf("second MarkCompleted = %v, %v; want false, nil", ok, err)
		}
	})

	t.Run("Finalize is gated on evaluated_at", func(t *testing.T) {
		cleanup(t)
		seedInterview(t, "iv-1")

		s := model.NewSession(uuid.NewString(), "iv-1", "cand-1", "res-1", "tok-1")
		s.Begin(time.Now())
		if err := repo.Save(ctx, nil, s); err != nil {
			t.Fatal(err)
		}

		ok, err := repo.Finalize(ctx, nil, s.ID, 17.5, 25, 70, "solid performance", time.Now())
		if err != nil || !ok {
			t.Fatalf("first Finalize = %v, %v; want true, nil", ok, err)
		}
		ok, err = repo.Finalize(ctx, nil, s.ID, 1, 1, 100, "should not win", time.Now())
		if err != nil || ok {
			t.Fatalf("second Finalize = %v, %v; want false, nil", ok, err)
		}

		got, err := repo.FindByID(ctx, nil, s.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.FinalScore == nil || *got.FinalScore != 17.5 || got.Summary != "solid performance" {
			t.Errorf("finalized session = %+v", got)
		}
	})

	t.Run("idle sweep finds stale in_progress sessions only", func(t *testing.T) {
		cleanup(t)
		seedInterview(t, "iv-1")

		stale := model.NewSession(uuid.NewString(), "iv-1", "cand-1", "res-1", "tok-1")
		stale.Begin(time.Now())
		if err := repo.Save(ctx, nil, stale); err != nil {
			t.Fatal(err)
		}
		// Backdate the activity stamp past the idle window.
		if _, err := testPool.Exec(ctx,
			`UPDATE sessions SET updated_at = now() - interval '3 hours' WHERE id = $1`, stale.ID); err != nil {
			t.Fatal(err)
		}

		fresh := model.NewSession(uuid.NewString(), "iv-1", "cand-2", "res-2", "tok-2")
		fresh.Begin(time.Now())
		if err := repo.Save(ctx, nil, fresh); err != nil {
			t.Fatal(err)
		}

		idle, err := repo.ListIdleInProgress(ctx, nil, time.Now().Add(-2*time.Hour), 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(idle) != 1 || idle[0].ID != stale.ID {
			t.Errorf("idle sessions = %v, want only the stale one", idle)
		}

		if err := repo.MarkAbandoned(ctx, nil, stale.ID); err != nil {
			t.Fatal(err)
		}
		got, err := repo.FindByID(ctx, nil, stale.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != model.SessionAbandoned {
			t.Errorf("status = %q, want abandoned", got.Status)
		}
	})
}
