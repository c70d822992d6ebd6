package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-interview-platform/internal/domain"
	"ai-interview-platform/internal/domain/model"
	"ai-interview-platform/internal/domain/ports/repository"
)

var _ repository.InterviewCatalog = (*catalogRepo)(nil)

// catalogRepo reads the interview catalog. Authoring happens elsewhere, so
// this repository is read-only.
type catalogRepo struct {
	pool *pgxpool.Pool
}

func NewCatalogRepo(pool *pgxpool.Pool) *catalogRepo {
	return &catalogRepo{pool: pool}
}

func (r *catalogRepo) FindInterview(ctx context.Context, tx repository.Tx, interviewID string) (*model.Interview, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`SELECT id, owner_id, title, published, opens_at, deadline FROM interviews WHERE id = $1`,
		interviewID)
	if err != nil {
		return nil, err
	}

	var iv model.Interview
	if err := row.Scan(&iv.ID, &iv.OwnerID, &iv.Title, &iv.Published, &iv.OpensAt, &iv.Deadline); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &iv, nil
}

func (r *catalogRepo) ListQuestions(ctx context.Context, tx repository.Tx, interviewID string) ([]model.Question, error) {
	rows, err := pickRows(ctx, r.pool, tx, `
SELECT id, interview_id, position, question_type, difficulty, prompt, time_limit_seconds, points, grading
FROM interview_questions
WHERE interview_id = $1
ORDER BY position`, interviewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Question
	for rows.Next() {
		var q model.Question
		var qType, difficulty string
		var grading []byte
		if err := rows.Scan(&q.ID, &q.InterviewID, &q.Position, &qType, &difficulty,
			&q.Prompt, &q.TimeLimitSeconds, &q.Points, &grading); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		q.Type = model.QuestionType(qType)
		q.Difficulty = model.Difficulty(difficulty)
		if len(grading) > 0 {
			if err := json.Unmarshal(grading, &q.Grading); err != nil {
				return nil, domain.ErrReadDatabaseRow
			}
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
