package worker

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-platform/internal/domain"
	"ai-interview-platform/internal/domain/model"
	"ai-interview-platform/internal/domain/ports/repository"
	"ai-interview-platform/internal/grader"
)

// flakyGrader fails the first failUntil calls, then succeeds with score.
type flakyGrader struct {
	mu        sync.Mutex
	calls     int
	failUntil int
	score     float64
}

func (g *flakyGrader) Type() model.QuestionType { return model.QuestionTypeShortAnswer }
func (g *flakyGrader) Name() string             { return "flaky" }

func (g *flakyGrader) Grade(ctx context.Context, q model.Question, answerText string) (*grader.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.calls <= g.failUntil {
		return nil, errors.New("model unavailable")
	}
	return &grader.Result{Score: g.score, Feedback: model.Feedback{TotalScore: g.score}}, nil
}

// memAnswers is a minimal in-memory AnswerRepository for worker tests.
type memAnswers struct {
	mu   sync.Mutex
	rows map[string]*model.Answer // key: sessionID/index
}

func newMemAnswers() *memAnswers { return &memAnswers{rows: make(map[string]*model.Answer)} }

func key(sessionID string, index int) string {
	return sessionID + "/" + strconv.Itoa(index)
}

func (m *memAnswers) put(a *model.Answer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[key(a.SessionID, a.QuestionIndex)] = a
}

func (m *memAnswers) get(sessionID string, index int) *model.Answer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[key(sessionID, index)]
}

func (m *memAnswers) Create(ctx context.Context, tx repository.Tx, a *model.Answer) (bool, error) {
	m.put(a)
	return true, nil
}

func (m *memAnswers) FindBySessionAndIndex(ctx context.Context, tx repository.Tx, sessionID string, index int) (*model.Answer, error) {
	if a := m.get(sessionID, index); a != nil {
		cp := *a
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memAnswers) ListBySession(ctx context.Context, tx repository.Tx, sessionID string) ([]*model.Answer, error) {
	return nil, nil
}

func (m *memAnswers) SaveEvaluation(ctx context.Context, tx repository.Tx, a *model.Answer) error {
	m.put(a)
	return nil
}

// notifyFinalizer signals each finalize call.
type notifyFinalizer struct {
	ch chan string
}

func (f *notifyFinalizer) FinalizeIfComplete(ctx context.Context, sessionID string) (bool, error) {
	f.ch <- sessionID
	return false, nil
}

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func testJob(answers *memAnswers) *model.EvaluationJob {
	q := model.Question{Type: model.QuestionTypeShortAnswer, Points: 10}
	answers.put(&model.Answer{
		ID:            "ans-1",
		SessionID:     "sess-1",
		QuestionIndex: 0,
		Text:          "an answer",
	})
	return &model.EvaluationJob{
		ID:          "job-1",
		SessionID:   "sess-1",
		AnswerText:  "an answer",
		Question:    q,
		CreatedAt:   time.Now(),
		MaxAttempts: 3,
	}
}

func runEvaluator(t *testing.T, g grader.Grader, answers *memAnswers, job *model.EvaluationJob) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := NewQueue(8)
	defer queue.Close()
	fin := &notifyFinalizer{ch: make(chan string, 1)}
	ev := NewEvaluator(queue, answers, grader.NewRegistry(g), fin, EvaluatorConfig{
		CallTimeout:      time.Second,
		RetryBackoff:     5 * time.Millisecond,
		FallbackFraction: 0.3,
	}, testLogger())

	ev.Start(ctx, 1)
	defer ev.Stop()

	if err := queue.Enqueue(job); err != nil {
		t.Fatal(err)
	}
	select {
	case sessionID := <-fin.ch:
		return sessionID
	case <-time.After(5 * time.Second):
		t.Fatal("job never reached a terminal result")
		return ""
	}
}

func TestEvaluatorSuccess(t *testing.T) {
	answers := newMemAnswers()
	job := testJob(answers)
	g := &flakyGrader{score: 7.5}

	sessionID := runEvaluator(t, g, answers, job)
	if sessionID != "sess-1" {
		t.Errorf("finalized session = %q, want sess-1", sessionID)
	}

	a := answers.get("sess-1", 0)
	if !a.Evaluated || a.Score == nil || *a.Score != 7.5 {
		t.Errorf("answer = evaluated=%v score=%v, want evaluated with 7.5", a.Evaluated, a.Score)
	}
	if a.GraderUsed != "flaky" {
		t.Errorf("grader used = %q, want flaky", a.GraderUsed)
	}
}

func TestEvaluatorRetriesThenSucceeds(t *testing.T) {
	answers := newMemAnswers()
	job := testJob(answers)
	g := &flakyGrader{failUntil: 2, score: 6.0}

	runEvaluator(t, g, answers, job)

	if g.calls != 3 {
		t.Errorf("grader calls = %d, want 3", g.calls)
	}
	a := answers.get("sess-1", 0)
	if a.Score == nil || *a.Score != 6.0 {
		t.Errorf("score = %v, want the real score 6.0 after retries", a.Score)
	}
	if a.Feedback.ManualReview {
		t.Error("successful retry must not be flagged for manual review")
	}
}

func TestEvaluatorExhaustionFallback(t *testing.T) {
	answers := newMemAnswers()
	job := testJob(answers)
	g := &flakyGrader{failUntil: 100}

	runEvaluator(t, g, answers, job)

	if g.calls != job.MaxAttempts {
		t.Errorf("grader calls = %d, want %d", g.calls, job.MaxAttempts)
	}
	a := answers.get("sess-1", 0)
	if a.Score == nil || *a.Score != 3.0 {
		// 0.3 fallback fraction of 10 points
		t.Errorf("score = %v, want fallback 3.0", a.Score)
	}
	if !a.Feedback.ManualReview {
		t.Error("fallback result must be flagged for manual review")
	}
}

func TestEvaluatorUnknownTypeFallsBackImmediately(t *testing.T) {
	answers := newMemAnswers()
	job := testJob(answers)
	job.Question.Type = model.QuestionType("essay")
	g := &flakyGrader{score: 9}

	runEvaluator(t, g, answers, job)

	if g.calls != 0 {
		t.Errorf("grader calls = %d, want 0 for an unknown question type", g.calls)
	}
	a := answers.get("sess-1", 0)
	if a.Score == nil || !a.Feedback.ManualReview {
		t.Error("unknown type must close out with a manual-review fallback")
	}
}
