package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-interview-platform/internal/domain"
	"ai-interview-platform/internal/domain/model"
	"ai-interview-platform/internal/domain/ports/repository"
)

var _ repository.SessionRepository = (*sessionRepo)(nil)

type sessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *sessionRepo {
	return &sessionRepo{pool: pool}
}

const sessionColumns = `id, interview_id, candidate_id, resume_id, status, current_question, token,
started_at, completed_at, lock_until, final_score, max_score, percentage, summary, evaluated_at,
recruiter_notes, created_at, updated_at`

// Save upserts the mutable session state. Aggregate result columns are owned
// by Finalize and never touched here.
func (r *sessionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Session) error {
	s.UpdatedAt = time.Now()

	const q = `
INSERT INTO sessions (id, interview_id, candidate_id, resume_id, status, current_question, token,
  started_at, completed_at, lock_until, recruiter_notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status,
  current_question = EXCLUDED.current_question,
  token = EXCLUDED.token,
  started_at = EXCLUDED.started_at,
  completed_at = EXCLUDED.completed_at,
  lock_until = EXCLUDED.lock_until,
  recruiter_notes = EXCLUDED.recruiter_notes,
  updated_at = EXCLUDED.updated_at;`

	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.InterviewID, s.CandidateID, s.ResumeID, string(s.Status), s.CurrentQuestion, s.Token,
		s.StartedAt, s.CompletedAt, s.LockUntil, s.RecruiterNotes, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// unique (candidate_id, interview_id)
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *sessionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Session, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return scanSession(row)
}

func (r *sessionRepo) FindByCandidateAndInterview(ctx context.Context, tx repository.Tx, candidateID, interviewID string) (*model.Session, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`SELECT `+sessionColumns+` FROM sessions WHERE candidate_id = $1 AND interview_id = $2`,
		candidateID, interviewID)
	if err != nil {
		return nil, err
	}
	return scanSession(row)
}

func (r *sessionRepo) FindInProgressByCandidate(ctx context.Context, tx repository.Tx, candidateID string) ([]*model.Session, error) {
	rows, err := pickRows(ctx, r.pool, tx,
		`SELECT `+sessionColumns+` FROM sessions WHERE candidate_id = $1 AND status = 'in_progress' ORDER BY created_at`,
		candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (r *sessionRepo) MarkCompleted(ctx context.Context, tx repository.Tx, id string, at time.Time) (bool, error) {
	const q = `
UPDATE sessions SET status = 'completed', completed_at = $2, updated_at = $2
WHERE id = $1 AND status = 'in_progress';`

	tag, err := execSQL(ctx, r.pool, tx, q, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *sessionRepo) Finalize(ctx context.Context, tx repository.Tx, id string, finalScore, maxScore, percentage float64, summary string, at time.Time) (bool, error) {
	const q = `
UPDATE sessions SET final_score = $2, max_score = $3, percentage = $4, summary = $5,
  evaluated_at = $6, updated_at = $6
WHERE id = $1 AND evaluated_at IS NULL;`

	tag, err := execSQL(ctx, r.pool, tx, q, id, finalScore, maxScore, percentage, summary, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *sessionRepo) UpdateRecruiterNotes(ctx context.Context, tx repository.Tx, id, notes string) error {
	tag, err := execSQL(ctx, r.pool, tx,
		`UPDATE sessions SET recruiter_notes = $2, updated_at = now() WHERE id = $1`, id, notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *sessionRepo) ListIdleInProgress(ctx context.Context, tx repository.Tx, idleSince time.Time, limit int) ([]*model.Session, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := pickRows(ctx, r.pool, tx,
		`SELECT `+sessionColumns+` FROM sessions
WHERE status = 'in_progress' AND updated_at < $1
ORDER BY updated_at LIMIT $2`, idleSince, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (r *sessionRepo) MarkAbandoned(ctx context.Context, tx repository.Tx, id string) error {
	_, err := execSQL(ctx, r.pool, tx,
		`UPDATE sessions SET status = 'abandoned', updated_at = now() WHERE id = $1 AND status = 'in_progress'`, id)
	return err
}

func scanSession(row pgx.Row) (*model.Session, error) {
	var s model.Session
	var status string
	err := row.Scan(
		&s.ID, &s.InterviewID, &s.CandidateID, &s.ResumeID, &status, &s.CurrentQuestion, &s.Token,
		&s.StartedAt, &s.CompletedAt, &s.LockUntil, &s.FinalScore, &s.MaxScore, &s.Percentage,
		&s.Summary, &s.EvaluatedAt, &s.RecruiterNotes, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	s.Status = model.SessionStatus(status)
	return &s, nil
}

func scanSessions(rows pgx.Rows) ([]*model.Session, error) {
	var out []*model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
