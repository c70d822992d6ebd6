package repository

import (
	"context"
	"time"

	"ai-interview-platform/internal/domain/model"
)

type SessionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Session) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Session, error)
	// FindByCandidateAndInterview enforces the per-(candidate, interview)
	// uniqueness invariant at lookup time.
	FindByCandidateAndInterview(ctx context.Context, tx Tx, candidateID, interviewID string) (*model.Session, error)
	FindInProgressByCandidate(ctx context.Context, tx Tx, candidateID string) ([]*model.Session, error)
	// MarkCompleted flips the session to completed exactly once. Returns
	// false when the session was already completed.
	MarkCompleted(ctx context.Context, tx Tx, id string, at time.Time) (bool, error)
	// Finalize persists aggregate results, gated on evaluated_at being
	// unset. Returns false when another finalization already won.
	Finalize(ctx context.Context, tx Tx, id string, finalScore, maxScore, percentage float64, summary string, at time.Time) (bool, error)
	UpdateRecruiterNotes(ctx context.Context, tx Tx, id, notes string) error
	// ListIdleInProgress returns in_progress sessions with no activity since
	// the given instant, for the abandonment sweep.
	ListIdleInProgress(ctx context.Context, tx Tx, idleSince time.Time, limit int) ([]*model.Session, error)
	MarkAbandoned(ctx context.Context, tx Tx, id string) error
}
