package grader

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"ai-interview-platform/internal/domain/model"
	"ai-interview-platform/internal/domain/ports/adapter"
)

var _ Grader = (*KeywordSemantic)(nil)

// KeywordSemantic scores short answers as keyword coverage (capped at half
// the points) plus a model-assessed semantic component bounded to the other
// half. When the model is unavailable it degrades to keyword-only scoring
// flagged for manual review instead of failing the job.
type KeywordSemantic struct {
	ai  adapter.ModelEvaluator
	log *zerolog.Logger
}

func NewKeywordSemantic(ai adapter.ModelEvaluator, logger *zerolog.Logger) *KeywordSemantic {
	l := logger.With().Str("grader", "keyword_semantic").Logger()
	return &KeywordSemantic{ai: ai, log: &l}
}

func (g *KeywordSemantic) Type() model.QuestionType { return model.QuestionTypeShortAnswer }
func (g *KeywordSemantic) Name() string             { return "keyword_semantic" }

const semanticSystemPrompt = `You are grading a short technical interview answer. ` +
	`Respond ONLY with a JSON object: {"semantic_score": <0.0 to 1.0>, ` +
	`"strengths": ["..."], "improvements": ["..."], "overall_feedback": "<one or two sentences>"}`

type semanticReply struct {
	SemanticScore   float64  `json:"semantic_score"`
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
	OverallFeedback string   `json:"overall_feedback"`
}

func (g *KeywordSemantic) Grade(ctx context.Context, q model.Question, answerText string) (*Result, error) {
	if isUnanswered(answerText) {
		return unansweredResult(), nil
	}

	hits, missed := matchKeywords(answerText, q.Grading.ExpectedKeywords)
	keywordScore := 0.0
	if n := len(q.Grading.ExpectedKeywords); n > 0 {
		keywordScore = float64(len(hits)) / float64(n) * q.Points * 0.5
	}

	feedback := model.Feedback{
		SubScores: map[string]float64{"keyword_score": keywordScore},
	}
	if len(hits) > 0 {
		feedback.Strengths = append(feedback.Strengths, "Mentioned key concepts: "+strings.Join(hits, ", ")+".")
	}
	if len(missed) > 0 {
		feedback.Improvements = append(feedback.Improvements, "Did not mention: "+strings.Join(missed, ", ")+".")
	}
	if note := wordCountNote(answerText, q.Grading.MinWords, q.Grading.MaxWords); note != "" {
		feedback.Improvements = append(feedback.Improvements, note)
	}

	semantic, reply, err := g.semanticComponent(ctx, q, answerText)
	if err != nil {
		// Keyword-only fallback; a human should double-check the score.
		g.log.Warn().Err(err).Str("question_id", q.ID).Msg("semantic grading unavailable, keyword-only score")
		feedback.ManualReview = true
		feedback.OverallFeedback = "Scored on keyword coverage only; semantic review was unavailable."
		feedback.TotalScore = clamp(keywordScore, 0, q.Points)
		return &Result{Score: feedback.TotalScore, Feedback: feedback}, nil
	}

	feedback.SubScores["semantic_score"] = semantic
	feedback.Strengths = append(feedback.Strengths, reply.Strengths...)
	feedback.Improvements = append(feedback.Improvements, reply.Improvements...)
	feedback.OverallFeedback = reply.OverallFeedback

	total := clamp(keywordScore+semantic, 0, q.Points)
	feedback.TotalScore = total
	return &Result{Score: total, Feedback: feedback}, nil
}

// semanticComponent asks the model for a quality score in [0,1] and scales it
// to the half of the points not covered by keywords.
func (g *KeywordSemantic) semanticComponent(ctx context.Context, q model.Question, answerText string) (float64, *semanticReply, error) {
	prompt := fmt.Sprintf("QUESTION: %s\n\nEXPECTED CONCEPTS: %s\n\nCANDIDATE ANSWER: %s",
		q.Prompt, strings.Join(q.Grading.ExpectedKeywords, ", "), answerText)

	raw, err := g.ai.Evaluate(ctx, semanticSystemPrompt, prompt)
	if err != nil {
		return 0, nil, err
	}
	var reply semanticReply
	if err := json.Unmarshal([]byte(stripFences(raw)), &reply); err != nil {
		return 0, nil, fmt.Errorf("parse semantic reply: %w", err)
	}
	return clamp(reply.SemanticScore, 0, 1) * q.Points * 0.5, &reply, nil
}

// matchKeywords does case-insensitive substring matching of the expected
// keywords against the answer.
func matchKeywords(answerText string, keywords []string) (hits, missed []string) {
	lower := strings.ToLower(answerText)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			hits = append(hits, kw)
		} else {
			missed = append(missed, kw)
		}
	}
	return hits, missed
}

func wordCountNote(answerText string, minWords, maxWords int) string {
	n := len(strings.Fields(answerText))
	if minWords > 0 && n < minWords {
		return fmt.Sprintf("Answer is shorter than expected (%d words, expected at least %d).", n, minWords)
	}
	if maxWords > 0 && n > maxWords {
		return fmt.Sprintf("Answer is longer than expected (%d words, expected at most %d).", n, maxWords)
	}
	return ""
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
