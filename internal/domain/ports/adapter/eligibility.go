package adapter

import "context"

// EligibilityChecker is the resume-verification collaborator. The core only
// consumes the boolean verdict; how resumes are parsed and verified is
// another service's problem.
type EligibilityChecker interface {
	EligibleToStart(ctx context.Context, candidateID, resumeID string) (bool, error)
}
