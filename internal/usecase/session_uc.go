package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"ai-interview-platform/internal/domain"
	"ai-interview-platform/internal/domain/model"
	"ai-interview-platform/internal/domain/ports/adapter"
	"ai-interview-platform/internal/domain/ports/repository"
)

// Compile-time check
var _ SessionUseCase = (*sessionUC)(nil)

// Locker serializes concurrent loads of the same session so the auto-advance
// sweep runs at most once per reattach burst.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// StartResult is returned from Start: the session plus the signed capability
// token the client must present on every answer submission.
type StartResult struct {
	Session *model.Session
	Token   string
}

// ActiveSession is the payload a (re)attaching client needs to render the
// current question and a trustworthy countdown.
type ActiveSession struct {
	Session         *model.Session
	Questions       []model.Question
	Token           string
	TimeRemaining   time.Duration
	TotalElapsed    time.Duration
	ServerTime      time.Time
	CanResume       bool
	WasAutoAdvanced bool
	Completed       bool
}

type SessionUseCase interface {
	// Start creates a session for (candidate, interview, resume). A
	// resumable existing session is returned as-is; a non-resumable one is
	// a Conflict.
	Start(ctx context.Context, candidateID, interviewID, resumeID string) (*StartResult, error)
	// GetActive loads the candidate's session for the interview for active
	// participation, auto-advancing past questions whose time elapsed while
	// the candidate was away. Returns nil when no session exists.
	GetActive(ctx context.Context, candidateID, interviewID string, clientNow time.Time) (*ActiveSession, error)
}

type sessionUC struct {
	sessions    repository.SessionRepository
	catalog     repository.InterviewCatalog
	eligibility adapter.EligibilityChecker
	tm          repository.TransactionManager
	tokens      SessionTokens
	intake      *answerUC
	locker      Locker
	lockTTL     time.Duration
	now         func() time.Time
	log         *zerolog.Logger
}

func NewSessionUseCase(
	sessions repository.SessionRepository,
	catalog repository.InterviewCatalog,
	eligibility adapter.EligibilityChecker,
	tm repository.TransactionManager,
	tokens SessionTokens,
	intake *answerUC,
	locker Locker,
	logger *zerolog.Logger,
) *sessionUC {
	l := logger.With().Str("component", "SessionUC").Logger()
	return &sessionUC{
		sessions:    sessions,
		catalog:     catalog,
		eligibility: eligibility,
		tm:          tm,
		tokens:      tokens,
		intake:      intake,
		locker:      locker,
		lockTTL:     10 * time.Second,
		now:         time.Now,
		log:         &l,
	}
}

func (u *sessionUC) Start(ctx context.Context, candidateID, interviewID, resumeID string) (*StartResult, error) {
	existing, err := u.sessions.FindByCandidateAndInterview(ctx, nil, candidateID, interviewID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		if existing.Resumable() {
			// Starting twice is a no-op that hands back the open session.
			signed, err := u.reissueToken(ctx, existing)
			if err != nil {
				return nil, err
			}
			return &StartResult{Session: existing, Token: signed}, nil
		}
		return nil, domain.ErrConflict
	}

	interview, err := u.catalog.FindInterview(ctx, nil, interviewID)
	if err != nil {
		return nil, err
	}
	now := u.now()
	if !interview.OpenAt(now) {
		return nil, domain.ErrNotEligible
	}
	ok, err := u.eligibility.EligibleToStart(ctx, candidateID, resumeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotEligible
	}

	session := model.NewSession(uuid.NewString(), interviewID, candidateID, resumeID, "")
	tokenID, signed, err := u.tokens.Mint(session.ID)
	if err != nil {
		return nil, err
	}
	session.Token = tokenID
	session.Begin(now)

	if err := u.sessions.Save(ctx, nil, session); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// Lost a create race for the same (candidate, interview).
			return nil, domain.ErrConflict
		}
		return nil, err
	}

	u.log.Info().Str("session_id", session.ID).Str("interview_id", interviewID).
		Str("candidate_id", candidateID).Msg("session started")
	return &StartResult{Session: session, Token: signed}, nil
}

func (u *sessionUC) GetActive(ctx context.Context, candidateID, interviewID string, clientNow time.Time) (*ActiveSession, error) {
	session, err := u.sessions.FindByCandidateAndInterview(ctx, nil, candidateID, interviewID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	switch session.Status {
	case model.SessionInProgress:
		// proceed
	case model.SessionAbandoned:
		return nil, domain.ErrSessionExpired
	default:
		// Completed sessions have no active question; the results view
		// covers them. not_started sessions only exist transiently.
		return nil, nil
	}

	questions, err := u.catalog.ListQuestions(ctx, nil, session.InterviewID)
	if err != nil {
		return nil, err
	}

	advanced, completed, err := u.autoAdvance(ctx, session, questions)
	if err != nil {
		return nil, err
	}

	signed, err := u.reissueToken(ctx, session)
	if err != nil {
		return nil, err
	}

	serverNow := u.now()
	rec := ReconcileClock(*session.StartedAt, questions, session.CurrentQuestion, serverNow, clientNow)
	return &ActiveSession{
		Session:         session,
		Questions:       questions,
		Token:           signed,
		TimeRemaining:   rec.TimeRemaining,
		TotalElapsed:    rec.TotalElapsed,
		ServerTime:      serverNow,
		CanResume:       !completed,
		WasAutoAdvanced: advanced,
		Completed:       completed,
	}, nil
}

// autoAdvance force-submits every question from the cursor up to (but never
// including) the first one whose deadline has not passed. The sentinel
// submissions run through the same intake path as real answers.
func (u *sessionUC) autoAdvance(ctx context.Context, session *model.Session, questions []model.Question) (advanced, completed bool, err error) {
	now := u.now()
	if session.StartedAt == nil ||
		session.CurrentQuestion >= len(questions) ||
		QuestionDeadlineServer(*session.StartedAt, questions, session.CurrentQuestion).After(now) {
		return false, session.Status == model.SessionCompleted, nil
	}

	lockKey := "session:sweep:" + session.ID
	lockToken, err := u.locker.TryLock(ctx, lockKey, u.lockTTL)
	if err != nil {
		// Another loader is sweeping this session right now; report state
		// as-is and let the next poll pick up the advanced cursor.
		return false, false, nil
	}
	defer func() { _ = u.locker.Unlock(ctx, lockKey, lockToken) }()

	var jobs []*model.EvaluationJob
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		// Re-read under the transaction; the cursor may have moved.
		fresh, err := u.sessions.FindByID(ctx, tx, session.ID)
		if err != nil {
			return err
		}
		*session = *fresh

		for session.Status == model.SessionInProgress &&
			session.CurrentQuestion < len(questions) &&
			!QuestionDeadlineServer(*session.StartedAt, questions, session.CurrentQuestion).After(now) {
			job, done, err := u.intake.ForceSubmit(ctx, tx, session, questions, session.CurrentQuestion)
			if err != nil {
				return err
			}
			if job != nil {
				jobs = append(jobs, job)
			}
			advanced = true
			completed = done
		}
		return nil
	})
	if err != nil {
		return false, false, err
	}

	for _, job := range jobs {
		u.intake.EnqueueJob(job)
	}
	if advanced {
		u.log.Info().Str("session_id", session.ID).Int("cursor", session.CurrentQuestion).
			Bool("completed", completed).Msg("auto-advanced past expired questions")
	}
	return advanced, completed, nil
}

// reissueToken mints a fresh capability token on every attach, invalidating
// credentials held by stale tabs or replayed clients.
func (u *sessionUC) reissueToken(ctx context.Context, session *model.Session) (string, error) {
	tokenID, signed, err := u.tokens.Mint(session.ID)
	if err != nil {
		return "", err
	}
	session.Token = tokenID
	if err := u.sessions.Save(ctx, nil, session); err != nil {
		return "", err
	}
	return signed, nil
}
