// Package grader holds the per-question-type scoring strategies invoked by
// the evaluation worker. Each grader is stateless; dispatch happens in one
// place, keyed by the question type.
package grader

import (
	"context"
	"strings"

	"ai-interview-platform/internal/domain/model"
)

// Result is the uniform shape every grader returns. Score is always within
// [0, question points]; Feedback carries the structured breakdown.
type Result struct {
	Score    float64
	Feedback model.Feedback
}

type Grader interface {
	Type() model.QuestionType
	Name() string
	Grade(ctx context.Context, q model.Question, answerText string) (*Result, error)
}

// Registry is the single dispatch point from question type to grader.
type Registry struct {
	byType map[model.QuestionType]Grader
}

func NewRegistry(graders ...Grader) *Registry {
	r := &Registry{byType: make(map[model.QuestionType]Grader, len(graders))}
	for _, g := range graders {
		r.byType[g.Type()] = g
	}
	return r
}

func (r *Registry) For(t model.QuestionType) (Grader, bool) {
	g, ok := r.byType[t]
	return g, ok
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// unansweredResult scores a sentinel (time expired) answer without spending a
// model call on it.
func unansweredResult() *Result {
	return &Result{
		Score: 0,
		Feedback: model.Feedback{
			TotalScore:      0,
			Improvements:    []string{"Question was not answered before the time limit expired."},
			OverallFeedback: "No answer was submitted within the time limit.",
		},
	}
}

func isUnanswered(answerText string) bool {
	return strings.TrimSpace(answerText) == "" || answerText == model.TimeExpiredAnswer
}
