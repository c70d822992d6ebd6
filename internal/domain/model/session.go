package model

import "time"

type SessionStatus string

const (
	SessionNotStarted SessionStatus = "not_started"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionAbandoned  SessionStatus = "abandoned"
)

// Session is one candidate's attempt at one interview. At most one session
// exists per (candidate, interview) pair.
type Session struct {
	ID          string
	InterviewID string
	CandidateID string
	ResumeID    string
	Status      SessionStatus

	// CurrentQuestion is the 0-based cursor into the interview's fixed,
	// ordered question list. Always within [0, total questions]; equals the
	// total once the session is completed.
	CurrentQuestion int

	// Token is the opaque capability credential issued at start. Every
	// answer submission must present it.
	Token string

	StartedAt   *time.Time
	CompletedAt *time.Time
	LockUntil   *time.Time

	// Aggregate results, written exactly once by the summary aggregator.
	FinalScore  *float64
	MaxScore    *float64
	Percentage  *float64
	Summary     string
	EvaluatedAt *time.Time

	// RecruiterNotes is free text, mutable only by the interview owner.
	RecruiterNotes string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewSession(id, interviewID, candidateID, resumeID, token string) *Session {
	now := time.Now()
	return &Session{
		ID:          id,
		InterviewID: interviewID,
		CandidateID: candidateID,
		ResumeID:    resumeID,
		Status:      SessionNotStarted,
		Token:       token,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Begin flips a fresh session to in_progress and stamps its start time.
func (s *Session) Begin(now time.Time) {
	s.Status = SessionInProgress
	s.StartedAt = &now
	s.UpdatedAt = now
}

// Advance moves the cursor forward by exactly one. The cursor is strictly
// monotonic; it never skips and never regresses.
func (s *Session) Advance() {
	s.CurrentQuestion++
	s.UpdatedAt = time.Now()
}

// Complete marks the session finished. Idempotent: redundant triggers from a
// submission racing an auto-advance sweep leave the first completion intact.
func (s *Session) Complete(now time.Time) {
	if s.Status == SessionCompleted {
		return
	}
	s.Status = SessionCompleted
	s.CompletedAt = &now
	s.UpdatedAt = now
}

// Resumable reports whether a candidate may reattach to this session.
func (s *Session) Resumable() bool {
	return s.Status == SessionInProgress
}
