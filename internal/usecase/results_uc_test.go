package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ai-interview-platform/internal/domain"
	"ai-interview-platform/internal/domain/model"
)

type resultsFixture struct {
	uc       *resultsUC
	sessions *memSessionRepo
	answers  *memAnswerRepo
	catalog  *memCatalog
	cache    *memResultsCache
	locker   *stubLocker
	ai       *stubAI
}

func newResultsFixture() *resultsFixture {
	sessions := newMemSessionRepo()
	answers := newMemAnswerRepo()
	catalog := newMemCatalog()
	catalog.interviews["intv-1"] = &model.Interview{ID: "intv-1", OwnerID: "rec-1", Published: true}
	catalog.questions["intv-1"] = []model.Question{
		{ID: "q0", Type: model.QuestionTypeMCQ, Difficulty: model.DifficultyEasy, Prompt: "pick one", Points: 5},
		{ID: "q1", Type: model.QuestionTypeShortAnswer, Difficulty: model.DifficultyMedium, Prompt: "explain", Points: 5},
	}

	ai := &stubAI{reply: `{"competency_level":"mid","strengths":["solid basics"],"gaps":["indexing"],"recommendation":"hire","narrative":"A capable candidate overall."}`}
	cache := newMemResultsCache()
	locker := &stubLocker{}
	uc := NewResultsUseCase(sessions, answers, catalog, ai, cache, locker, testLogger())

	return &resultsFixture{uc: uc, sessions: sessions, answers: answers, catalog: catalog, cache: cache, locker: locker, ai: ai}
}

// seedCompletedSession stores a completed session with every answer evaluated.
func (f *resultsFixture) seedCompletedSession(t *testing.T, scores ...float64) *model.Session {
	t.Helper()
	started := fixtureStart
	completed := fixtureStart.Add(5 * time.Minute)
	session := &model.Session{
		ID:              "sess-1",
		InterviewID:     "intv-1",
		CandidateID:     "cand-1",
		Status:          model.SessionCompleted,
		CurrentQuestion: len(scores),
		StartedAt:       &started,
		CompletedAt:     &completed,
		UpdatedAt:       completed,
	}
	if err := f.sessions.Save(context.Background(), nil, session); err != nil {
		t.Fatal(err)
	}
	for idx := range scores {
		score := scores[idx]
		a := &model.Answer{
			ID:            "ans-" + string(rune('a'+idx)),
			SessionID:     session.ID,
			QuestionIndex: idx,
			Text:          "some answer",
			Score:         &score,
			Evaluated:     true,
			Feedback:      model.Feedback{TotalScore: score, OverallFeedback: "fine"},
			GraderUsed:    "stub",
		}
		if _, err := f.answers.Create(context.Background(), nil, a); err != nil {
			t.Fatal(err)
		}
	}
	return session
}

func TestFinalizeAggregatesScores(t *testing.T) {
	f := newResultsFixture()
	session := f.seedCompletedSession(t, 4.0, 3.0)

	won, err := f.uc.FinalizeIfComplete(context.Background(), session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !won {
		t.Fatal("expected finalization to win")
	}

	stored, err := f.sessions.FindByID(context.Background(), nil, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.FinalScore == nil || *stored.FinalScore != 7.0 {
		t.Errorf("final score = %v, want 7.0", stored.FinalScore)
	}
	if stored.MaxScore == nil || *stored.MaxScore != 10.0 {
		t.Errorf("max score = %v, want 10.0", stored.MaxScore)
	}
	if stored.Percentage == nil || *stored.Percentage != 70.0 {
		t.Errorf("percentage = %v, want 70.0", stored.Percentage)
	}
	if !strings.Contains(stored.Summary, "A capable candidate overall.") {
		t.Errorf("summary = %q, want model narrative", stored.Summary)
	}
	if !strings.Contains(stored.Summary, "hire") {
		t.Errorf("summary = %q, want recommendation included", stored.Summary)
	}
}

func TestFinalizeRunsExactlyOnce(t *testing.T) {
	f := newResultsFixture()
	session := f.seedCompletedSession(t, 4.0, 3.0)

	won, err := f.uc.FinalizeIfComplete(context.Background(), session.ID)
	if err != nil || !won {
		t.Fatalf("first call: won=%v err=%v", won, err)
	}
	won, err = f.uc.FinalizeIfComplete(context.Background(), session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if won {
		t.Error("second finalization must be a no-op")
	}
}

func TestFinalizeWaitsForAllEvaluations(t *testing.T) {
	f := newResultsFixture()
	session := f.seedCompletedSession(t, 4.0, 3.0)

	// Flip one answer back to unevaluated.
	a, err := f.answers.FindBySessionAndIndex(context.Background(), nil, session.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	a.Evaluated = false
	a.Score = nil
	if err := f.answers.SaveEvaluation(context.Background(), nil, a); err != nil {
		t.Fatal(err)
	}

	won, err := f.uc.FinalizeIfComplete(context.Background(), session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if won {
		t.Error("finalization must wait for every answer to be evaluated")
	}
}

func TestFinalizeSkipsInProgressSession(t *testing.T) {
	f := newResultsFixture()
	started := fixtureStart
	session := &model.Session{
		ID:          "sess-2",
		InterviewID: "intv-1",
		CandidateID: "cand-1",
		Status:      model.SessionInProgress,
		StartedAt:   &started,
	}
	if err := f.sessions.Save(context.Background(), nil, session); err != nil {
		t.Fatal(err)
	}

	won, err := f.uc.FinalizeIfComplete(context.Background(), session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if won {
		t.Error("an in-progress session must not finalize")
	}
}

func TestFinalizeZeroMaxScore(t *testing.T) {
	f := newResultsFixture()
	f.catalog.questions["intv-1"] = []model.Question{
		{ID: "q0", Type: model.QuestionTypeMCQ, Points: 0},
		{ID: "q1", Type: model.QuestionTypeShortAnswer, Points: 0},
	}
	session := f.seedCompletedSession(t, 0, 0)

	won, err := f.uc.FinalizeIfComplete(context.Background(), session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !won {
		t.Fatal("expected finalization")
	}
	stored, _ := f.sessions.FindByID(context.Background(), nil, session.ID)
	if stored.Percentage == nil || *stored.Percentage != 0 {
		t.Errorf("percentage = %v, want 0 when max score is 0", stored.Percentage)
	}
}

func TestFinalizeSummaryFallbackOnModelFailure(t *testing.T) {
	f := newResultsFixture()
	f.ai.err = errors.New("provider down")
	session := f.seedCompletedSession(t, 4.0, 3.0)

	won, err := f.uc.FinalizeIfComplete(context.Background(), session.ID)
	if err != nil || !won {
		t.Fatalf("won=%v err=%v", won, err)
	}
	stored, _ := f.sessions.FindByID(context.Background(), nil, session.ID)
	if stored.Summary == "" || !strings.Contains(stored.Summary, "Recommendation") {
		t.Errorf("summary = %q, want deterministic fallback text", stored.Summary)
	}
}

func TestGetResultsWhileEvaluating(t *testing.T) {
	f := newResultsFixture()
	session := f.seedCompletedSession(t, 4.0, 3.0)

	res, err := f.uc.GetResults(context.Background(), session.ID, "cand-1", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != "in_progress" {
		t.Errorf("status = %s, want in_progress before finalization", res.Status)
	}
	if res.FinalScore != 0 || len(res.PerQuestion) != 0 {
		t.Errorf("pre-finalization results must carry no partial scores: %+v", res)
	}
}

func TestGetResultsAfterFinalization(t *testing.T) {
	f := newResultsFixture()
	session := f.seedCompletedSession(t, 4.0, 3.0)
	if _, err := f.uc.FinalizeIfComplete(context.Background(), session.ID); err != nil {
		t.Fatal(err)
	}

	res, err := f.uc.GetResults(context.Background(), session.ID, "cand-1", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != "ready" {
		t.Errorf("status = %s, want ready", res.Status)
	}
	if res.FinalScore != 7.0 || res.MaxScore != 10.0 || res.Percentage != 70.0 {
		t.Errorf("totals = %.1f/%.1f (%.0f%%), want 7.0/10.0 (70%%)", res.FinalScore, res.MaxScore, res.Percentage)
	}
	if len(res.PerQuestion) != 2 {
		t.Fatalf("per-question entries = %d, want 2", len(res.PerQuestion))
	}
	if res.PerQuestion[0].Prompt != "pick one" || res.PerQuestion[0].Points != 5 {
		t.Errorf("per-question[0] = %+v", res.PerQuestion[0])
	}
}

func TestGetResultsAccessControl(t *testing.T) {
	f := newResultsFixture()
	session := f.seedCompletedSession(t, 4.0, 3.0)

	if _, err := f.uc.GetResults(context.Background(), session.ID, "cand-2", ""); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("another candidate: err = %v, want ErrForbidden", err)
	}
	if _, err := f.uc.GetResults(context.Background(), session.ID, "rec-9", "recruiter"); err != nil {
		t.Errorf("recruiter: err = %v, want access", err)
	}
}

func TestFinalizationFillsResultsCache(t *testing.T) {
	f := newResultsFixture()
	session := f.seedCompletedSession(t, 4.0, 3.0)

	if _, err := f.uc.FinalizeIfComplete(context.Background(), session.ID); err != nil {
		t.Fatal(err)
	}
	cached, ok := f.cache.Get(context.Background(), session.ID)
	if !ok {
		t.Fatal("finalization must populate the cache")
	}
	if cached.FinalScore != 7.0 {
		t.Errorf("cached final score = %v", cached.FinalScore)
	}
}

func TestUpdateRecruiterNotesOwnerOnly(t *testing.T) {
	f := newResultsFixture()
	session := f.seedCompletedSession(t, 4.0, 3.0)

	if err := f.uc.UpdateRecruiterNotes(context.Background(), session.ID, "rec-1", "recruiter", "strong"); err != nil {
		t.Fatalf("owner: %v", err)
	}
	stored, _ := f.sessions.FindByID(context.Background(), nil, session.ID)
	if stored.RecruiterNotes != "strong" {
		t.Errorf("notes = %q", stored.RecruiterNotes)
	}

	if err := f.uc.UpdateRecruiterNotes(context.Background(), session.ID, "rec-2", "recruiter", "sneaky"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("non-owner recruiter: err = %v, want ErrForbidden", err)
	}
	if err := f.uc.UpdateRecruiterNotes(context.Background(), session.ID, "cand-1", "", "self praise"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("candidate: err = %v, want ErrForbidden", err)
	}
}
