package model

import "time"

// TimeExpiredAnswer is the sentinel text recorded when the auto-advance
// engine force-submits a question whose time limit elapsed unanswered.
const TimeExpiredAnswer = "No answer (time expired)"

// Answer is the single record for one (session, question) pair. Created once
// by answer intake, updated at most once per evaluation attempt by the
// worker, never touched by the candidate after creation.
type Answer struct {
	ID            string
	SessionID     string
	QuestionIndex int
	QuestionID    string
	Text          string

	Score       *float64
	Feedback    Feedback
	Evaluated   bool
	EvaluatedAt *time.Time
	GraderUsed  string

	TimeTakenSeconds int
	AutoSubmitted    bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Feedback is the uniform structured result every grader produces.
type Feedback struct {
	TotalScore      float64            `json:"total_score"`
	Strengths       []string           `json:"strengths"`
	Improvements    []string           `json:"improvements"`
	OverallFeedback string             `json:"overall_feedback"`
	SubScores       map[string]float64 `json:"sub_scores,omitempty"`
	ManualReview    bool               `json:"manual_review,omitempty"`
}

func (a *Answer) IsSentinel() bool {
	return a.Text == TimeExpiredAnswer
}
