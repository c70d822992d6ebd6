package model

import "time"

// DefaultMaxAttempts bounds retries for a single evaluation job.
const DefaultMaxAttempts = 3

// EvaluationJob is a transient unit of deferred work to score one submitted
// answer. Created by answer intake, consumed and discarded by the evaluation
// worker; never persisted or exposed externally. The question snapshot makes
// the job self-contained so grading survives catalog reads failing later.
type EvaluationJob struct {
	ID            string
	SessionID     string
	QuestionIndex int
	AnswerText    string
	Question      Question
	CreatedAt     time.Time
	Attempt       int
	MaxAttempts   int
}

// Exhausted reports whether the job has no retries left.
func (j *EvaluationJob) Exhausted() bool {
	max := j.MaxAttempts
	if max <= 0 {
		max = DefaultMaxAttempts
	}
	return j.Attempt >= max
}
