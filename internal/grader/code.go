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

var _ Grader = (*Rubric)(nil)

// Rubric scores code answers with a model-assisted review against the
// question's rubric criteria and reference solution. Per-criterion sub-scores
// are preserved in feedback. Model failures propagate as job failures; the
// worker's retry and fallback policy owns what happens next.
type Rubric struct {
	ai  adapter.ModelEvaluator
	log *zerolog.Logger
}

func NewRubric(ai adapter.ModelEvaluator, logger *zerolog.Logger) *Rubric {
	l := logger.With().Str("grader", "rubric").Logger()
	return &Rubric{ai: ai, log: &l}
}

func (g *Rubric) Type() model.QuestionType { return model.QuestionTypeCode }
func (g *Rubric) Name() string             { return "rubric" }

const rubricSystemPrompt = `You are reviewing a candidate's code submission in a technical interview. ` +
	`Score each rubric criterion from 0.0 to 1.0. Respond ONLY with a JSON object: ` +
	`{"criteria": [{"name": "<criterion>", "score": <0.0 to 1.0>, "comment": "<short>"}], ` +
	`"strengths": ["..."], "improvements": ["..."], "overall_feedback": "<two or three sentences>"}`

type rubricReply struct {
	Criteria []struct {
		Name    string  `json:"name"`
		Score   float64 `json:"score"`
		Comment string  `json:"comment"`
	} `json:"criteria"`
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
	OverallFeedback string   `json:"overall_feedback"`
}

func (g *Rubric) Grade(ctx context.Context, q model.Question, answerText string) (*Result, error) {
	if isUnanswered(answerText) {
		return unansweredResult(), nil
	}

	raw, err := g.ai.Evaluate(ctx, rubricSystemPrompt, g.buildPrompt(q, answerText))
	if err != nil {
		return nil, fmt.Errorf("rubric review: %w", err)
	}
	var reply rubricReply
	if err := json.Unmarshal([]byte(stripFences(raw)), &reply); err != nil {
		return nil, fmt.Errorf("parse rubric reply: %w", err)
	}
	if len(reply.Criteria) == 0 {
		return nil, fmt.Errorf("rubric reply carried no criteria scores")
	}

	var sum float64
	sub := make(map[string]float64, len(reply.Criteria))
	var improvements []string
	for _, c := range reply.Criteria {
		s := clamp(c.Score, 0, 1)
		sum += s
		sub[c.Name] = s * q.Points / float64(len(reply.Criteria))
		if c.Comment != "" && s < 1 {
			improvements = append(improvements, fmt.Sprintf("%s: %s", c.Name, c.Comment))
		}
	}
	score := clamp(sum/float64(len(reply.Criteria))*q.Points, 0, q.Points)

	return &Result{
		Score: score,
		Feedback: model.Feedback{
			TotalScore:      score,
			Strengths:       reply.Strengths,
			Improvements:    append(improvements, reply.Improvements...),
			OverallFeedback: reply.OverallFeedback,
			SubScores:       sub,
		},
	}, nil
}

func (g *Rubric) buildPrompt(q model.Question, answerText string) string {
	var sb strings.Builder
	sb.WriteString("QUESTION:\n" + q.Prompt + "\n\n")
	if len(q.Grading.RubricCriteria) > 0 {
		sb.WriteString("RUBRIC CRITERIA:\n")
		for _, c := range q.Grading.RubricCriteria {
			sb.WriteString("- " + c + "\n")
		}
		sb.WriteString("\n")
	}
	if q.Grading.StarterCode != "" {
		sb.WriteString("STARTER CODE:\n" + q.Grading.StarterCode + "\n\n")
	}
	if q.Grading.ReferenceSolution != "" {
		sb.WriteString("REFERENCE SOLUTION (not shown to candidate):\n" + q.Grading.ReferenceSolution + "\n\n")
	}
	sb.WriteString("CANDIDATE SUBMISSION:\n" + answerText + "\n")
	return sb.String()
}
