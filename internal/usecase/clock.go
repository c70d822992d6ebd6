package usecase

import (
	"time"

	"ai-interview-platform/internal/domain/model"
)

// Clock reconciliation. Client-side countdowns are display only; every timing
// decision is re-derived from the session's recorded start instant and the
// fixed per-question time limits. A question's window is a fixed offset from
// started_at, so a client that slept mid-question converges to the correct
// remaining time on every reattach.

// Reconciliation is the authoritative timing of a session's current question,
// expressed in the client's clock frame so the countdown can compare against
// the client's own clock without trusting it.
type Reconciliation struct {
	QuestionStart time.Time
	Deadline      time.Time
	TimeRemaining time.Duration
	TotalElapsed  time.Duration
	ServerTime    time.Time
}

// ReconcileClock computes when the question at index began. The drift term
// (clientNow − serverNow) shifts the instant into the client's frame; the
// remaining time it yields is therefore identical for any client offset.
func ReconcileClock(startedAt time.Time, questions []model.Question, index int, serverNow, clientNow time.Time) Reconciliation {
	drift := clientNow.Sub(serverNow)
	start := startedAt.Add(elapsedBefore(questions, index)).Add(drift)

	var limit time.Duration
	if index >= 0 && index < len(questions) {
		limit = time.Duration(questions[index].TimeLimitSeconds) * time.Second
	}
	deadline := start.Add(limit)

	return Reconciliation{
		QuestionStart: start,
		Deadline:      deadline,
		TimeRemaining: deadline.Sub(clientNow),
		TotalElapsed:  serverNow.Sub(startedAt),
		ServerTime:    serverNow,
	}
}

// QuestionStartServer is the server-frame instant the question at index
// began; used for time-taken accounting on submissions.
func QuestionStartServer(startedAt time.Time, questions []model.Question, index int) time.Time {
	return startedAt.Add(elapsedBefore(questions, index))
}

// QuestionDeadlineServer is the server-frame instant the question at index
// expires. A question whose deadline is not after serverNow is strictly past
// and eligible for auto-advance.
func QuestionDeadlineServer(startedAt time.Time, questions []model.Question, index int) time.Time {
	end := elapsedBefore(questions, index)
	if index >= 0 && index < len(questions) {
		end += time.Duration(questions[index].TimeLimitSeconds) * time.Second
	}
	return startedAt.Add(end)
}

func elapsedBefore(questions []model.Question, index int) time.Duration {
	var sum time.Duration
	for i := 0; i < index && i < len(questions); i++ {
		sum += time.Duration(questions[i].TimeLimitSeconds) * time.Second
	}
	return sum
}
