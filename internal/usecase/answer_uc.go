package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"ai-interview-platform/internal/domain"
	"ai-interview-platform/internal/domain/model"
	"ai-interview-platform/internal/domain/ports/repository"
)

// Compile-time check
var _ AnswerUseCase = (*answerUC)(nil)

// EvaluationEnqueuer hands accepted answers to the asynchronous evaluation
// pipeline. Enqueueing must never fail the candidate-facing submission; the
// implementation owns buffering and retries.
type EvaluationEnqueuer interface {
	Enqueue(job *model.EvaluationJob) error
}

// SessionTokens mints and verifies the opaque capability credential returned
// to the client at session start.
type SessionTokens interface {
	// Mint returns the token identifier stored on the session and the
	// signed credential handed to the client.
	Mint(sessionID string) (tokenID, signed string, err error)
	// Verify decodes a signed credential back into its session and token
	// identifiers.
	Verify(signed string) (sessionID, tokenID string, err error)
}

type SubmitResult struct {
	Completed bool
}

type AnswerUseCase interface {
	// Submit validates and persists a candidate's answer for the question at
	// questionIndex. Answers are accepted strictly in cursor order; a retry
	// of the previous index is a no-op returning the same completion state.
	Submit(ctx context.Context, signedToken string, questionIndex int, answerText string) (*SubmitResult, error)
}

type answerUC struct {
	sessions    repository.SessionRepository
	answers     repository.AnswerRepository
	catalog     repository.InterviewCatalog
	tm          repository.TransactionManager
	tokens      SessionTokens
	queue       EvaluationEnqueuer
	maxAttempts int
	now         func() time.Time
	log         *zerolog.Logger
}

func NewAnswerUseCase(
	sessions repository.SessionRepository,
	answers repository.AnswerRepository,
	catalog repository.InterviewCatalog,
	tm repository.TransactionManager,
	tokens SessionTokens,
	queue EvaluationEnqueuer,
	maxAttempts int,
	logger *zerolog.Logger,
) *answerUC {
	if maxAttempts <= 0 {
		maxAttempts = model.DefaultMaxAttempts
	}
	l := logger.With().Str("component", "AnswerUC").Logger()
	return &answerUC{
		sessions:    sessions,
		answers:     answers,
		catalog:     catalog,
		tm:          tm,
		tokens:      tokens,
		queue:       queue,
		maxAttempts: maxAttempts,
		now:         time.Now,
		log:         &l,
	}
}

func (u *answerUC) Submit(ctx context.Context, signedToken string, questionIndex int, answerText string) (*SubmitResult, error) {
	sessionID, tokenID, err := u.tokens.Verify(signedToken)
	if err != nil {
		return nil, domain.ErrForbidden
	}

	var (
		res SubmitResult
		job *model.EvaluationJob
	)
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		session, err := u.sessions.FindByID(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if session.Token != tokenID {
			return domain.ErrForbidden
		}
		questions, err := u.catalog.ListQuestions(ctx, tx, session.InterviewID)
		if err != nil {
			return err
		}
		job, err = u.accept(ctx, tx, session, questions, questionIndex, answerText, false, &res)
		return err
	})
	if err != nil {
		return nil, err
	}

	if job != nil {
		u.enqueue(job)
	}
	return &res, nil
}

// ForceSubmit records the sentinel answer for a question whose time limit
// elapsed unanswered. It runs inside the caller's transaction and shares the
// validation and completion path with real submissions.
func (u *answerUC) ForceSubmit(ctx context.Context, tx repository.Tx, session *model.Session, questions []model.Question, questionIndex int) (*model.EvaluationJob, bool, error) {
	var res SubmitResult
	job, err := u.accept(ctx, tx, session, questions, questionIndex, model.TimeExpiredAnswer, true, &res)
	if err != nil {
		return nil, false, err
	}
	return job, res.Completed, nil
}

// EnqueueJob publishes a prepared evaluation job. Exposed so the session use
// case can enqueue after its auto-advance transaction commits.
func (u *answerUC) EnqueueJob(job *model.EvaluationJob) {
	u.enqueue(job)
}

// accept is the single write path for answer creation.
func (u *answerUC) accept(ctx context.Context, tx repository.Tx, session *model.Session, questions []model.Question, questionIndex int, answerText string, auto bool, res *SubmitResult) (*model.EvaluationJob, error) {
	total := len(questions)

	switch session.Status {
	case model.SessionInProgress:
		// proceed
	case model.SessionCompleted:
		// A network retry after the final answer completed the session is
		// still a no-op, not an error.
		if dup, err := u.duplicateOf(ctx, tx, session, questionIndex); err != nil {
			return nil, err
		} else if dup {
			res.Completed = true
			return nil, nil
		}
		return nil, domain.ErrOutOfSequence
	case model.SessionAbandoned:
		return nil, domain.ErrSessionExpired
	default:
		return nil, domain.ErrOutOfSequence
	}

	if questionIndex < 0 || questionIndex >= total {
		return nil, domain.ErrOutOfSequence
	}
	if questionIndex != session.CurrentQuestion {
		if dup, err := u.duplicateOf(ctx, tx, session, questionIndex); err != nil {
			return nil, err
		} else if dup {
			res.Completed = session.CurrentQuestion >= total
			return nil, nil
		}
		return nil, domain.ErrOutOfSequence
	}

	question := questions[questionIndex]
	now := u.now()
	answer := &model.Answer{
		ID:            uuid.NewString(),
		SessionID:     session.ID,
		QuestionIndex: questionIndex,
		QuestionID:    question.ID,
		Text:          answerText,
		AutoSubmitted: auto,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	answer.TimeTakenSeconds = u.timeTaken(session, questions, questionIndex, now, auto)

	created, err := u.answers.Create(ctx, tx, answer)
	if err != nil {
		return nil, err
	}
	if !created {
		// Row already present for this (session, question): treat as a
		// duplicate delivery, do not re-enqueue evaluation.
		res.Completed = session.CurrentQuestion >= total
		return nil, nil
	}

	session.Advance()
	if session.CurrentQuestion >= total {
		if _, err := u.sessions.MarkCompleted(ctx, tx, session.ID, now); err != nil {
			return nil, err
		}
		session.Complete(now)
		res.Completed = true
	}
	if err := u.sessions.Save(ctx, tx, session); err != nil {
		return nil, err
	}

	return &model.EvaluationJob{
		ID:            ulid.Make().String(),
		SessionID:     session.ID,
		QuestionIndex: questionIndex,
		AnswerText:    answerText,
		Question:      question,
		CreatedAt:     now,
		MaxAttempts:   u.maxAttempts,
	}, nil
}

// duplicateOf reports whether questionIndex is the most recently accepted
// question and already has an answer row, i.e. a client retry.
func (u *answerUC) duplicateOf(ctx context.Context, tx repository.Tx, session *model.Session, questionIndex int) (bool, error) {
	if questionIndex != session.CurrentQuestion-1 {
		return false, nil
	}
	_, err := u.answers.FindBySessionAndIndex(ctx, tx, session.ID, questionIndex)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (u *answerUC) timeTaken(session *model.Session, questions []model.Question, index int, now time.Time, auto bool) int {
	limit := questions[index].TimeLimitSeconds
	if auto || session.StartedAt == nil {
		return limit
	}
	taken := int(now.Sub(QuestionStartServer(*session.StartedAt, questions, index)) / time.Second)
	if taken < 0 {
		taken = 0
	}
	if taken > limit {
		taken = limit
	}
	return taken
}

func (u *answerUC) enqueue(job *model.EvaluationJob) {
	if err := u.queue.Enqueue(job); err != nil {
		// Evaluation is never fatal to the candidate-facing flow; the
		// abandonment of a job surfaces through the unevaluated answer.
		u.log.Error().Err(err).Str("job_id", job.ID).Str("session_id", job.SessionID).
			Int("question_index", job.QuestionIndex).Msg("failed to enqueue evaluation job")
	}
}
