package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-platform/internal/domain"
	"ai-interview-platform/internal/domain/model"
	"ai-interview-platform/internal/domain/ports/repository"
	"ai-interview-platform/internal/grader"
	"ai-interview-platform/internal/infra/metrics"
)

// SessionFinalizer is invoked after each terminal grading result so a fully
// evaluated session gets its summary computed without waiting for a read.
type SessionFinalizer interface {
	FinalizeIfComplete(ctx context.Context, sessionID string) (bool, error)
}

// Evaluator drains the queue with a fixed pool of workers. Each job gets a
// bounded number of attempts with fixed backoff between them; an exhausted job
// is closed out with a conservative fallback score flagged for manual review,
// so a session never hangs on a dead model.
type Evaluator struct {
	queue     *Queue
	answers   repository.AnswerRepository
	graders   *grader.Registry
	finalizer SessionFinalizer

	callTimeout      time.Duration
	retryBackoff     time.Duration
	fallbackFraction float64

	wg   sync.WaitGroup
	quit chan struct{}
	log  *zerolog.Logger
}

type EvaluatorConfig struct {
	CallTimeout      time.Duration
	RetryBackoff     time.Duration
	FallbackFraction float64
}

func NewEvaluator(
	queue *Queue,
	answers repository.AnswerRepository,
	graders *grader.Registry,
	finalizer SessionFinalizer,
	cfg EvaluatorConfig,
	logger *zerolog.Logger,
) *Evaluator {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 5 * time.Second
	}
	if cfg.FallbackFraction <= 0 || cfg.FallbackFraction > 1 {
		cfg.FallbackFraction = 0.3
	}
	l := logger.With().Str("component", "Evaluator").Logger()
	return &Evaluator{
		queue:            queue,
		answers:          answers,
		graders:          graders,
		finalizer:        finalizer,
		callTimeout:      cfg.CallTimeout,
		retryBackoff:     cfg.RetryBackoff,
		fallbackFraction: cfg.FallbackFraction,
		quit:             make(chan struct{}),
		log:              &l,
	}
}

// Start launches the worker goroutines. Run once; Stop waits for in-flight
// jobs to finish.
func (e *Evaluator) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 2
	}
	e.log.Info().Int("workers", workers).Msg("evaluation workers started")
	for i := 0; i < workers; i++ {
		e.wg.Add(1)
		go func(id int) {
			defer e.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-e.quit:
					return
				case job := <-e.queue.Jobs():
					if job == nil {
						continue
					}
					metrics.SetEvaluationQueueDepth(e.queue.Len())
					e.processJob(ctx, job)
				}
			}
		}(i)
	}
}

func (e *Evaluator) Stop() {
	close(e.quit)
	e.wg.Wait()
	e.log.Info().Msg("evaluation workers stopped")
}

func (e *Evaluator) processJob(ctx context.Context, job *model.EvaluationJob) {
	job.Attempt++
	log := e.log.With().Str("job_id", job.ID).Str("session_id", job.SessionID).
		Int("question_index", job.QuestionIndex).Int("attempt", job.Attempt).Logger()

	g, ok := e.graders.For(job.Question.Type)
	if !ok {
		// No grader can ever score this; retrying is pointless.
		log.Error().Str("question_type", string(job.Question.Type)).Msg("no grader registered")
		e.closeOutExhausted(ctx, job, "none")
		return
	}

	start := time.Now()
	res, err := e.grade(ctx, g, job)
	if err != nil {
		log.Warn().Err(err).Str("grader", g.Name()).Msg("grading attempt failed")
		if job.Exhausted() {
			e.closeOutExhausted(ctx, job, g.Name())
			return
		}
		metrics.IncEvaluationRetry()
		e.queue.EnqueueAfter(job, e.retryBackoff)
		return
	}

	if err := e.persist(ctx, job, res.Score, res.Feedback, g.Name()); err != nil {
		log.Warn().Err(err).Msg("persisting evaluation failed")
		if job.Exhausted() {
			e.closeOutExhausted(ctx, job, g.Name())
			return
		}
		metrics.IncEvaluationRetry()
		e.queue.EnqueueAfter(job, e.retryBackoff)
		return
	}

	metrics.IncEvaluationJob("completed")
	metrics.ObserveEvaluationLatency(g.Name(), time.Since(job.CreatedAt).Seconds())
	log.Info().Str("grader", g.Name()).Float64("score", res.Score).
		Dur("duration_ms", time.Since(start)).Msg("answer evaluated")

	e.finalize(ctx, job.SessionID)
}

// grade runs a single bounded grading attempt.
func (e *Evaluator) grade(ctx context.Context, g grader.Grader, job *model.EvaluationJob) (*grader.Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	res, err := g.Grade(callCtx, job.Question, job.AnswerText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGradingFailure, err)
	}
	return res, nil
}

// closeOutExhausted records the terminal fallback result: partial credit and
// a manual-review flag instead of a hole in the session score.
func (e *Evaluator) closeOutExhausted(ctx context.Context, job *model.EvaluationJob, graderName string) {
	score := 0.0
	if job.AnswerText != model.TimeExpiredAnswer {
		score = job.Question.Points * e.fallbackFraction
	}
	feedback := model.Feedback{
		TotalScore:      score,
		OverallFeedback: "Automatic grading was unavailable for this answer; a provisional score was assigned pending manual review.",
		ManualReview:    true,
	}

	if err := e.persist(ctx, job, score, feedback, graderName); err != nil {
		e.log.Error().Err(err).Str("job_id", job.ID).Str("session_id", job.SessionID).
			Int("question_index", job.QuestionIndex).Msg("failed to record fallback evaluation")
		return
	}

	metrics.IncEvaluationJob("fallback")
	e.log.Error().Str("job_id", job.ID).Str("session_id", job.SessionID).
		Int("question_index", job.QuestionIndex).Int("attempts", job.Attempt).
		Msg("grading attempts exhausted, fallback score recorded")

	e.finalize(ctx, job.SessionID)
}

func (e *Evaluator) persist(ctx context.Context, job *model.EvaluationJob, score float64, feedback model.Feedback, graderName string) error {
	answer, err := e.answers.FindBySessionAndIndex(ctx, nil, job.SessionID, job.QuestionIndex)
	if err != nil {
		return fmt.Errorf("load answer: %w", err)
	}
	now := time.Now()
	answer.Score = &score
	answer.Feedback = feedback
	answer.Evaluated = true
	answer.EvaluatedAt = &now
	answer.GraderUsed = graderName
	answer.UpdatedAt = now
	return e.answers.SaveEvaluation(ctx, nil, answer)
}

func (e *Evaluator) finalize(ctx context.Context, sessionID string) {
	if e.finalizer == nil {
		return
	}
	if _, err := e.finalizer.FinalizeIfComplete(ctx, sessionID); err != nil {
		e.log.Warn().Err(err).Str("session_id", sessionID).Msg("finalize check failed")
	}
}
