package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-platform/internal/domain"
	"ai-interview-platform/internal/domain/model"
	"ai-interview-platform/internal/domain/ports/adapter"
	"ai-interview-platform/internal/domain/ports/repository"
)

// Compile-time check
var _ ResultsUseCase = (*resultsUC)(nil)

// ResultsCache holds finalized result payloads; finalization fills it, reads
// prefer it. A miss always falls back to the repositories.
type ResultsCache interface {
	Get(ctx context.Context, sessionID string) (*Results, bool)
	Set(ctx context.Context, sessionID string, res *Results)
}

type QuestionResult struct {
	Index            int                `json:"index"`
	Prompt           string             `json:"prompt"`
	Type             model.QuestionType `json:"type"`
	Points           float64            `json:"points"`
	AnswerText       string             `json:"answer_text"`
	Score            *float64           `json:"score,omitempty"`
	Feedback         model.Feedback     `json:"feedback"`
	Evaluated        bool               `json:"evaluated"`
	GraderUsed       string             `json:"grader_used,omitempty"`
	TimeTakenSeconds int                `json:"time_taken_seconds"`
	AutoSubmitted    bool               `json:"auto_submitted"`
}

type Results struct {
	SessionID   string           `json:"session_id"`
	Status      string           `json:"status"` // "in_progress" | "ready"
	FinalScore  float64          `json:"final_score"`
	MaxScore    float64          `json:"max_score"`
	Percentage  float64          `json:"percentage"`
	Summary     string           `json:"summary"`
	EvaluatedAt *time.Time       `json:"evaluated_at,omitempty"`
	PerQuestion []QuestionResult `json:"per_question"`
	Notes       string           `json:"recruiter_notes,omitempty"`
}

type ResultsUseCase interface {
	// GetResults returns the finalized results, or a bare "in_progress"
	// status while any answer is still awaiting evaluation. Candidates see
	// their own sessions; recruiters see any.
	GetResults(ctx context.Context, sessionID, callerID, role string) (*Results, error)
	// FinalizeIfComplete aggregates scores and generates the summary once
	// every answer of a completed session is evaluated. Safe to call
	// redundantly; only the first call wins.
	FinalizeIfComplete(ctx context.Context, sessionID string) (bool, error)
	UpdateRecruiterNotes(ctx context.Context, sessionID, callerID, role, notes string) error
}

type resultsUC struct {
	sessions repository.SessionRepository
	answers  repository.AnswerRepository
	catalog  repository.InterviewCatalog
	ai       adapter.ModelEvaluator
	cache    ResultsCache
	locker   Locker
	now      func() time.Time
	log      *zerolog.Logger
}

func NewResultsUseCase(
	sessions repository.SessionRepository,
	answers repository.AnswerRepository,
	catalog repository.InterviewCatalog,
	ai adapter.ModelEvaluator,
	cache ResultsCache,
	locker Locker,
	logger *zerolog.Logger,
) *resultsUC {
	l := logger.With().Str("component", "ResultsUC").Logger()
	return &resultsUC{
		sessions: sessions,
		answers:  answers,
		catalog:  catalog,
		ai:       ai,
		cache:    cache,
		locker:   locker,
		now:      time.Now,
		log:      &l,
	}
}

func (u *resultsUC) GetResults(ctx context.Context, sessionID, callerID, role string) (*Results, error) {
	session, err := u.sessions.FindByID(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}
	if role != "recruiter" && session.CandidateID != callerID {
		return nil, domain.ErrForbidden
	}

	// Until the aggregator has run, report an explicit processing state;
	// never a partial or false-zero result.
	if session.EvaluatedAt == nil {
		return &Results{SessionID: session.ID, Status: "in_progress"}, nil
	}

	if u.cache != nil {
		if cached, ok := u.cache.Get(ctx, sessionID); ok {
			cached.Notes = session.RecruiterNotes
			return cached, nil
		}
	}

	res, err := u.assemble(ctx, session)
	if err != nil {
		return nil, err
	}
	if u.cache != nil {
		u.cache.Set(ctx, sessionID, res)
	}
	res.Notes = session.RecruiterNotes
	return res, nil
}

func (u *resultsUC) FinalizeIfComplete(ctx context.Context, sessionID string) (bool, error) {
	session, err := u.sessions.FindByID(ctx, nil, sessionID)
	if err != nil {
		return false, err
	}
	if session.Status != model.SessionCompleted || session.EvaluatedAt != nil {
		return false, nil
	}

	lockKey := "session:finalize:" + sessionID
	lockToken, err := u.locker.TryLock(ctx, lockKey, 30*time.Second)
	if err != nil {
		// Another worker is finalizing; it will win the conditional write.
		return false, nil
	}
	defer func() { _ = u.locker.Unlock(ctx, lockKey, lockToken) }()

	answers, err := u.answers.ListBySession(ctx, nil, sessionID)
	if err != nil {
		return false, err
	}
	questions, err := u.catalog.ListQuestions(ctx, nil, session.InterviewID)
	if err != nil {
		return false, err
	}
	if len(answers) < len(questions) {
		return false, nil
	}
	var finalScore float64
	for _, a := range answers {
		if !a.Evaluated {
			return false, nil
		}
		if a.Score != nil {
			finalScore += *a.Score
		}
	}

	maxScore := model.TotalPoints(questions)
	percentage := 0.0
	if maxScore > 0 {
		percentage = finalScore / maxScore * 100
	}
	summary := u.generateSummary(ctx, session, questions, answers, finalScore, maxScore, percentage)

	now := u.now()
	won, err := u.sessions.Finalize(ctx, nil, sessionID, finalScore, maxScore, percentage, summary, now)
	if err != nil {
		return false, err
	}
	if !won {
		return false, nil
	}

	session.FinalScore = &finalScore
	session.MaxScore = &maxScore
	session.Percentage = &percentage
	session.Summary = summary
	session.EvaluatedAt = &now
	if u.cache != nil {
		if res, err := u.assemble(ctx, session); err == nil {
			u.cache.Set(ctx, sessionID, res)
		}
	}

	u.log.Info().Str("session_id", sessionID).Float64("final_score", finalScore).
		Float64("max_score", maxScore).Float64("percentage", percentage).
		Msg("session fully evaluated")
	return true, nil
}

func (u *resultsUC) UpdateRecruiterNotes(ctx context.Context, sessionID, callerID, role, notes string) error {
	session, err := u.sessions.FindByID(ctx, nil, sessionID)
	if err != nil {
		return err
	}
	interview, err := u.catalog.FindInterview(ctx, nil, session.InterviewID)
	if err != nil {
		return err
	}
	if role != "recruiter" || interview.OwnerID != callerID {
		return domain.ErrForbidden
	}
	return u.sessions.UpdateRecruiterNotes(ctx, nil, sessionID, notes)
}

func (u *resultsUC) assemble(ctx context.Context, session *model.Session) (*Results, error) {
	answers, err := u.answers.ListBySession(ctx, nil, session.ID)
	if err != nil {
		return nil, err
	}
	questions, err := u.catalog.ListQuestions(ctx, nil, session.InterviewID)
	if err != nil {
		return nil, err
	}

	res := &Results{
		SessionID:   session.ID,
		Status:      "ready",
		Summary:     session.Summary,
		EvaluatedAt: session.EvaluatedAt,
		PerQuestion: make([]QuestionResult, 0, len(answers)),
	}
	if session.FinalScore != nil {
		res.FinalScore = *session.FinalScore
	}
	if session.MaxScore != nil {
		res.MaxScore = *session.MaxScore
	}
	if session.Percentage != nil {
		res.Percentage = *session.Percentage
	}
	for _, a := range answers {
		qr := QuestionResult{
			Index:            a.QuestionIndex,
			AnswerText:       a.Text,
			Score:            a.Score,
			Feedback:         a.Feedback,
			Evaluated:        a.Evaluated,
			GraderUsed:       a.GraderUsed,
			TimeTakenSeconds: a.TimeTakenSeconds,
			AutoSubmitted:    a.AutoSubmitted,
		}
		if a.QuestionIndex < len(questions) {
			q := questions[a.QuestionIndex]
			qr.Prompt = q.Prompt
			qr.Type = q.Type
			qr.Points = q.Points
		}
		res.PerQuestion = append(res.PerQuestion, qr)
	}
	return res, nil
}

type summaryReply struct {
	CompetencyLevel string   `json:"competency_level"`
	Strengths       []string `json:"strengths"`
	Gaps            []string `json:"gaps"`
	Recommendation  string   `json:"recommendation"`
	Narrative       string   `json:"narrative"`
}

const summarySystemPrompt = `You are a technical interviewer writing a hiring summary. ` +
	`Respond ONLY with a JSON object: {"competency_level": "junior|mid|senior|expert", ` +
	`"strengths": ["..."], "gaps": ["..."], ` +
	`"recommendation": "strong_hire|hire|lean_hire|no_hire", "narrative": "3-4 sentences"}`

func (u *resultsUC) generateSummary(ctx context.Context, session *model.Session, questions []model.Question, answers []*model.Answer, finalScore, maxScore, percentage float64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Candidate scored %.1f out of %.1f (%.0f%%) across %d questions.\n\n", finalScore, maxScore, percentage, len(questions))
	for _, a := range answers {
		if a.QuestionIndex >= len(questions) {
			continue
		}
		q := questions[a.QuestionIndex]
		score := 0.0
		if a.Score != nil {
			score = *a.Score
		}
		fmt.Fprintf(&sb, "Q%d [%s, %s]: %.1f/%.1f", a.QuestionIndex+1, q.Type, q.Difficulty, score, q.Points)
		if a.AutoSubmitted {
			sb.WriteString(" (not answered, time expired)")
		}
		if a.Feedback.OverallFeedback != "" {
			fmt.Fprintf(&sb, " | %s", a.Feedback.OverallFeedback)
		}
		sb.WriteString("\n")
	}

	raw, err := u.ai.Evaluate(ctx, summarySystemPrompt, sb.String())
	if err == nil {
		var reply summaryReply
		if jerr := json.Unmarshal([]byte(stripJSONFences(raw)), &reply); jerr == nil && reply.Narrative != "" {
			return composeSummary(reply)
		}
	} else if !errors.Is(err, context.Canceled) {
		u.log.Warn().Err(err).Str("session_id", session.ID).Msg("summary generation failed, using fallback")
	}
	return fallbackSummary(percentage)
}

func composeSummary(r summaryReply) string {
	var sb strings.Builder
	sb.WriteString(r.Narrative)
	if r.CompetencyLevel != "" {
		fmt.Fprintf(&sb, " Assessed competency level: %s.", r.CompetencyLevel)
	}
	if len(r.Strengths) > 0 {
		fmt.Fprintf(&sb, " Strengths: %s.", strings.Join(r.Strengths, "; "))
	}
	if len(r.Gaps) > 0 {
		fmt.Fprintf(&sb, " Gaps: %s.", strings.Join(r.Gaps, "; "))
	}
	if r.Recommendation != "" {
		fmt.Fprintf(&sb, " Recommendation: %s.", strings.ReplaceAll(r.Recommendation, "_", " "))
	}
	return sb.String()
}

// fallbackSummary keeps finalization moving when the model is unavailable.
func fallbackSummary(percentage float64) string {
	switch {
	case percentage >= 85:
		return "The candidate performed excellently across the interview, demonstrating strong command of the material. Recommendation: hire."
	case percentage >= 65:
		return "The candidate performed well overall with some gaps worth probing in a follow-up round. Recommendation: lean hire."
	case percentage >= 40:
		return "The candidate showed partial understanding with notable gaps in several areas. Recommendation: additional screening advised."
	default:
		return "The candidate struggled with most questions in this interview. Recommendation: no hire for this role at this time."
	}
}

// stripJSONFences removes a ```json ... ``` wrapper some models insist on.
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
