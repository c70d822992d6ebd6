package repository

import (
	"context"

	"ai-interview-platform/internal/domain/model"
)

type AnswerRepository interface {
	// Create inserts the answer row for (session, question index). Returns
	// false without error when a row already exists: resubmission is a
	// no-op, never a duplicate.
	Create(ctx context.Context, tx Tx, a *model.Answer) (bool, error)
	FindBySessionAndIndex(ctx context.Context, tx Tx, sessionID string, questionIndex int) (*model.Answer, error)
	ListBySession(ctx context.Context, tx Tx, sessionID string) ([]*model.Answer, error)
	// SaveEvaluation writes the grading result onto an existing answer.
	// Idempotent: last write wins on the same terminal values.
	SaveEvaluation(ctx context.Context, tx Tx, a *model.Answer) error
}
