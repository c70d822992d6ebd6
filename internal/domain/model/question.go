package model

import "time"

type QuestionType string

const (
	QuestionTypeMCQ         QuestionType = "mcq"
	QuestionTypeShortAnswer QuestionType = "short_answer"
	QuestionTypeCode        QuestionType = "code"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is immutable once assigned to an interview. GradingMaterial holds
// the type-specific fields; only the section matching Type is populated.
type Question struct {
	ID               string
	InterviewID      string
	Position         int
	Type             QuestionType
	Difficulty       Difficulty
	Prompt           string
	TimeLimitSeconds int
	Points           float64

	Grading GradingMaterial
}

// GradingMaterial carries whatever the grader for the question type needs.
type GradingMaterial struct {
	// mcq
	Options       []string `json:"options,omitempty"`
	CorrectOption string   `json:"correct_option,omitempty"`

	// short_answer
	ExpectedKeywords []string `json:"expected_keywords,omitempty"`
	MinWords         int      `json:"min_words,omitempty"`
	MaxWords         int      `json:"max_words,omitempty"`

	// code
	StarterCode       string   `json:"starter_code,omitempty"`
	ReferenceSolution string   `json:"reference_solution,omitempty"`
	RubricCriteria    []string `json:"rubric_criteria,omitempty"`
}

// Interview is the fixed catalog entry a session runs against. The question
// list is ordered and immutable for the lifetime of any session against it.
type Interview struct {
	ID        string
	OwnerID   string
	Title     string
	Published bool
	OpensAt   *time.Time
	Deadline  *time.Time
}

// OpenAt reports whether the interview accepts new sessions at t.
func (iv *Interview) OpenAt(t time.Time) bool {
	if !iv.Published {
		return false
	}
	if iv.OpensAt != nil && t.Before(*iv.OpensAt) {
		return false
	}
	if iv.Deadline != nil && t.After(*iv.Deadline) {
		return false
	}
	return true
}

// TotalPoints sums the point values of an interview's question list.
func TotalPoints(questions []Question) float64 {
	var sum float64
	for _, q := range questions {
		sum += q.Points
	}
	return sum
}
