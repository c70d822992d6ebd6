package eligibility

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-interview-platform/internal/domain/ports/adapter"
)

var _ adapter.EligibilityChecker = (*ResumeChecker)(nil)

// ResumeChecker gates session starts on the candidate holding a verified
// resume. The resume pipeline lives in another service; this only reads its
// verdict.
type ResumeChecker struct {
	pool *pgxpool.Pool
}

func NewResumeChecker(pool *pgxpool.Pool) *ResumeChecker {
	return &ResumeChecker{pool: pool}
}

func (c *ResumeChecker) EligibleToStart(ctx context.Context, candidateID, resumeID string) (bool, error) {
	if resumeID == "" {
		return false, nil
	}
	var verified bool
	err := c.pool.QueryRow(ctx,
		`SELECT verified FROM resumes WHERE id = $1 AND candidate_id = $2`,
		resumeID, candidateID).Scan(&verified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return verified, nil
}

var _ adapter.EligibilityChecker = (*AllowAll)(nil)

// AllowAll is the dev-mode checker: every candidate may start.
type AllowAll struct{}

func NewAllowAll() *AllowAll { return &AllowAll{} }

func (*AllowAll) EligibleToStart(ctx context.Context, candidateID, resumeID string) (bool, error) {
	return true, nil
}
