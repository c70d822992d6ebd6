package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-interview-platform/internal/domain"
	"ai-interview-platform/internal/domain/model"
	"ai-interview-platform/internal/domain/ports/repository"
)

var _ repository.AnswerRepository = (*answerRepo)(nil)

type answerRepo struct {
	pool *pgxpool.Pool
}

func NewAnswerRepo(pool *pgxpool.Pool) *answerRepo {
	return &answerRepo{pool: pool}
}

const answerColumns = `id, session_id, question_index, question_id, answer_text, score, feedback,
evaluated, evaluated_at, grader_used, time_taken_seconds, auto_submitted, created_at, updated_at`

// Create inserts the answer row. The unique (session_id, question_index)
// constraint makes duplicate deliveries a no-op insert; the caller learns
// about it through the returned bool.
func (r *answerRepo) Create(ctx context.Context, tx repository.Tx, a *model.Answer) (bool, error) {
	const q = `
INSERT INTO answers (id, session_id, question_index, question_id, answer_text,
  time_taken_seconds, auto_submitted, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (session_id, question_index) DO NOTHING;`

	tag, err := execSQL(ctx, r.pool, tx, q,
		a.ID, a.SessionID, a.QuestionIndex, a.QuestionID, a.Text,
		a.TimeTakenSeconds, a.AutoSubmitted, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *answerRepo) FindBySessionAndIndex(ctx context.Context, tx repository.Tx, sessionID string, questionIndex int) (*model.Answer, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`SELECT `+answerColumns+` FROM answers WHERE session_id = $1 AND question_index = $2`,
		sessionID, questionIndex)
	if err != nil {
		return nil, err
	}
	return scanAnswer(row)
}

func (r *answerRepo) ListBySession(ctx context.Context, tx repository.Tx, sessionID string) ([]*model.Answer, error) {
	rows, err := pickRows(ctx, r.pool, tx,
		`SELECT `+answerColumns+` FROM answers WHERE session_id = $1 ORDER BY question_index`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Answer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *answerRepo) SaveEvaluation(ctx context.Context, tx repository.Tx, a *model.Answer) error {
	fb, err := json.Marshal(a.Feedback)
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}
	a.UpdatedAt = time.Now()

	const q = `
UPDATE answers SET score = $3, feedback = $4, evaluated = TRUE, evaluated_at = $5,
  grader_used = $6, updated_at = $7
WHERE session_id = $1 AND question_index = $2;`

	tag, err := execSQL(ctx, r.pool, tx, q,
		a.SessionID, a.QuestionIndex, a.Score, fb, a.EvaluatedAt, a.GraderUsed, a.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanAnswer(row pgx.Row) (*model.Answer, error) {
	var a model.Answer
	var feedback []byte
	err := row.Scan(
		&a.ID, &a.SessionID, &a.QuestionIndex, &a.QuestionID, &a.Text, &a.Score, &feedback,
		&a.Evaluated, &a.EvaluatedAt, &a.GraderUsed, &a.TimeTakenSeconds, &a.AutoSubmitted,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if len(feedback) > 0 {
		if err := json.Unmarshal(feedback, &a.Feedback); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return &a, nil
}
