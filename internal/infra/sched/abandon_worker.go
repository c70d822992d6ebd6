package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-platform/internal/domain/ports/repository"
	"ai-interview-platform/internal/infra/metrics"
)

// AbandonWorker periodically marks long-idle in_progress sessions abandoned.
// A candidate who walked away keeps their per-question windows until this
// sweep reclaims the session.
type AbandonWorker struct {
	interval time.Duration
	idle     time.Duration
	sessions repository.SessionRepository
	log      *zerolog.Logger
}

func NewAbandonWorker(interval, idle time.Duration, sessions repository.SessionRepository, logger *zerolog.Logger) *AbandonWorker {
	l := logger.With().Str("component", "AbandonWorker").Logger()
	return &AbandonWorker{
		interval: interval,
		idle:     idle,
		sessions: sessions,
		log:      &l,
	}
}

func (w *AbandonWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Dur("idle", w.idle).Msg("Starting abandonment worker")
	// Run once on startup, then on every tick
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping abandonment worker")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *AbandonWorker) sweep(ctx context.Context) {
	idleSince := time.Now().Add(-w.idle)
	stale, err := w.sessions.ListIdleInProgress(ctx, nil, idleSince, 100)
	if err != nil {
		w.log.Error().Err(err).Msg("idle session scan failed")
		return
	}
	for _, s := range stale {
		if err := w.sessions.MarkAbandoned(ctx, nil, s.ID); err != nil {
			w.log.Error().Err(err).Str("session_id", s.ID).Msg("failed to abandon session")
			continue
		}
		metrics.IncSessionEnded("abandoned")
		w.log.Info().Str("session_id", s.ID).Str("candidate_id", s.CandidateID).
			Msg("idle session abandoned")
	}
}
