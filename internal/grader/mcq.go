package grader

import (
	"context"
	"fmt"
	"strings"

	"ai-interview-platform/internal/domain/model"
)

var _ Grader = (*ExactMatch)(nil)

// ExactMatch scores multiple-choice answers: full points iff the trimmed
// answer equals the recorded correct option, else zero. Never needs a model.
type ExactMatch struct{}

func NewExactMatch() *ExactMatch { return &ExactMatch{} }

func (g *ExactMatch) Type() model.QuestionType { return model.QuestionTypeMCQ }
func (g *ExactMatch) Name() string             { return "exact_match" }

func (g *ExactMatch) Grade(ctx context.Context, q model.Question, answerText string) (*Result, error) {
	if isUnanswered(answerText) {
		return unansweredResult(), nil
	}

	correct := strings.EqualFold(strings.TrimSpace(answerText), strings.TrimSpace(q.Grading.CorrectOption))
	if correct {
		return &Result{
			Score: q.Points,
			Feedback: model.Feedback{
				TotalScore:      q.Points,
				Strengths:       []string{"Selected the correct option."},
				OverallFeedback: "Correct!",
			},
		}, nil
	}
	return &Result{
		Score: 0,
		Feedback: model.Feedback{
			TotalScore:      0,
			Improvements:    []string{fmt.Sprintf("The correct option was %q.", q.Grading.CorrectOption)},
			OverallFeedback: fmt.Sprintf("Incorrect. The correct option was %q.", q.Grading.CorrectOption),
		},
	}, nil
}
