package repository

import (
	"context"

	"ai-interview-platform/internal/domain/model"
)

// InterviewCatalog supplies the fixed, ordered question set a session runs
// against. The core treats the catalog as read-only; authoring lives in a
// different service.
type InterviewCatalog interface {
	FindInterview(ctx context.Context, tx Tx, interviewID string) (*model.Interview, error)
	// ListQuestions returns the interview's questions ordered by position.
	ListQuestions(ctx context.Context, tx Tx, interviewID string) ([]model.Question, error)
}
