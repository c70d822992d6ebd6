package usecase

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"ai-interview-platform/internal/domain"
	"ai-interview-platform/internal/domain/model"
	"ai-interview-platform/internal/domain/ports/repository"
)

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// ---- session repository ----

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	byPair   map[string]string
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{
		sessions: make(map[string]*model.Session),
		byPair:   make(map[string]string),
	}
}

func pairKey(candidateID, interviewID string) string {
	return candidateID + "|" + interviewID
}

func (r *memSessionRepo) Save(_ context.Context, _ repository.Tx, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey(s.CandidateID, s.InterviewID)
	if existing, ok := r.byPair[key]; ok && existing != s.ID {
		return domain.ErrAlreadyExists
	}
	cp := *s
	r.sessions[s.ID] = &cp
	r.byPair[key] = s.ID
	return nil
}

func (r *memSessionRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSessionRepo) FindByCandidateAndInterview(_ context.Context, _ repository.Tx, candidateID, interviewID string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byPair[pairKey(candidateID, interviewID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r.sessions[id]
	return &cp, nil
}

func (r *memSessionRepo) FindInProgressByCandidate(_ context.Context, _ repository.Tx, candidateID string) ([]*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Session
	for _, s := range r.sessions {
		if s.CandidateID == candidateID && s.Status == model.SessionInProgress {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memSessionRepo) MarkCompleted(_ context.Context, _ repository.Tx, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if s.Status != model.SessionInProgress {
		return false, nil
	}
	s.Status = model.SessionCompleted
	s.CompletedAt = &at
	s.UpdatedAt = at
	return true, nil
}

func (r *memSessionRepo) Finalize(_ context.Context, _ repository.Tx, id string, finalScore, maxScore, percentage float64, summary string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if s.EvaluatedAt != nil {
		return false, nil
	}
	s.FinalScore = &finalScore
	s.MaxScore = &maxScore
	s.Percentage = &percentage
	s.Summary = summary
	s.EvaluatedAt = &at
	s.UpdatedAt = at
	return true, nil
}

func (r *memSessionRepo) UpdateRecruiterNotes(_ context.Context, _ repository.Tx, id, notes string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.RecruiterNotes = notes
	return nil
}

func (r *memSessionRepo) ListIdleInProgress(_ context.Context, _ repository.Tx, idleSince time.Time, limit int) ([]*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Session
	for _, s := range r.sessions {
		if s.Status == model.SessionInProgress && s.UpdatedAt.Before(idleSince) {
			cp := *s
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memSessionRepo) MarkAbandoned(_ context.Context, _ repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = model.SessionAbandoned
	return nil
}

// ---- answer repository ----

type memAnswerRepo struct {
	mu      sync.Mutex
	answers map[string]*model.Answer
}

func newMemAnswerRepo() *memAnswerRepo {
	return &memAnswerRepo{answers: make(map[string]*model.Answer)}
}

func answerKey(sessionID string, index int) string {
	return fmt.Sprintf("%s#%d", sessionID, index)
}

func (r *memAnswerRepo) Create(_ context.Context, _ repository.Tx, a *model.Answer) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := answerKey(a.SessionID, a.QuestionIndex)
	if _, ok := r.answers[key]; ok {
		return false, nil
	}
	cp := *a
	r.answers[key] = &cp
	return true, nil
}

func (r *memAnswerRepo) FindBySessionAndIndex(_ context.Context, _ repository.Tx, sessionID string, questionIndex int) (*model.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.answers[answerKey(sessionID, questionIndex)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memAnswerRepo) ListBySession(_ context.Context, _ repository.Tx, sessionID string) ([]*model.Answer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Answer
	for _, a := range r.answers {
		if a.SessionID == sessionID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionIndex < out[j].QuestionIndex })
	return out, nil
}

func (r *memAnswerRepo) SaveEvaluation(_ context.Context, _ repository.Tx, a *model.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := answerKey(a.SessionID, a.QuestionIndex)
	if _, ok := r.answers[key]; !ok {
		return domain.ErrNotFound
	}
	cp := *a
	r.answers[key] = &cp
	return nil
}

// ---- interview catalog ----

type memCatalog struct {
	interviews map[string]*model.Interview
	questions  map[string][]model.Question
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		interviews: make(map[string]*model.Interview),
		questions:  make(map[string][]model.Question),
	}
}

func (c *memCatalog) FindInterview(_ context.Context, _ repository.Tx, interviewID string) (*model.Interview, error) {
	iv, ok := c.interviews[interviewID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *iv
	return &cp, nil
}

func (c *memCatalog) ListQuestions(_ context.Context, _ repository.Tx, interviewID string) ([]model.Question, error) {
	return c.questions[interviewID], nil
}

// ---- transaction manager ----

type mockTxManager struct{}

func (mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

// ---- session tokens ----

type stubTokens struct {
	mu sync.Mutex
	n  int
}

func (t *stubTokens) Mint(sessionID string) (string, string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n++
	tokenID := fmt.Sprintf("tid-%d", t.n)
	return tokenID, "signed|" + sessionID + "|" + tokenID, nil
}

func (t *stubTokens) Verify(signed string) (string, string, error) {
	parts := strings.Split(signed, "|")
	if len(parts) != 3 || parts[0] != "signed" {
		return "", "", fmt.Errorf("malformed token %q", signed)
	}
	return parts[1], parts[2], nil
}

// ---- evaluation queue ----

type stubQueue struct {
	mu   sync.Mutex
	jobs []*model.EvaluationJob
}

func (q *stubQueue) Enqueue(job *model.EvaluationJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *stubQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// ---- locker ----

type stubLocker struct {
	denied bool
}

func (l *stubLocker) TryLock(context.Context, string, time.Duration) (string, error) {
	if l.denied {
		return "", domain.ErrLockNotAcquired
	}
	return "lock-token", nil
}

func (l *stubLocker) Unlock(context.Context, string, string) error { return nil }

// ---- eligibility ----

type stubEligibility struct {
	ok  bool
	err error
}

func (e *stubEligibility) EligibleToStart(context.Context, string, string) (bool, error) {
	return e.ok, e.err
}

// ---- model evaluator ----

type stubAI struct {
	reply string
	err   error
}

func (a *stubAI) Evaluate(context.Context, string, string) (string, error) {
	return a.reply, a.err
}

func (a *stubAI) CountTokens(_ context.Context, text string) (int, error) {
	return len(text) / 4, nil
}

func (a *stubAI) Name() string { return "stub" }

// ---- results cache ----

type memResultsCache struct {
	mu      sync.Mutex
	entries map[string]*Results
}

func newMemResultsCache() *memResultsCache {
	return &memResultsCache{entries: make(map[string]*Results)}
}

func (c *memResultsCache) Get(_ context.Context, sessionID string) (*Results, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.entries[sessionID]
	if !ok {
		return nil, false
	}
	cp := *res
	return &cp, true
}

func (c *memResultsCache) Set(_ context.Context, sessionID string, res *Results) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *res
	c.entries[sessionID] = &cp
}
