package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// Session lifecycle errors, surfaced synchronously to the caller.
	ErrConflict         = errors.New("session already exists for this interview")
	ErrNotEligible      = errors.New("candidate is not eligible to start this interview")
	ErrSessionExpired   = errors.New("session can no longer be resumed")
	ErrSessionCompleted = errors.New("session is already completed")
	ErrOutOfSequence    = errors.New("answer submitted out of sequence")
	ErrForbidden        = errors.New("caller is not allowed to access this session")

	// Evaluation errors, contained inside the worker.
	ErrGradingFailure   = errors.New("grading attempt failed")
	ErrGradingExhausted = errors.New("grading attempts exhausted")

	// Infrastructure errors
	ErrLockNotAcquired    = errors.New("lock not acquired")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid database execution context")
)
