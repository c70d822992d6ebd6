package ai

import (
	"context"

	"ai-interview-platform/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.ModelEvaluator = (*limitedEvaluator)(nil)

type limitedEvaluator struct {
	inner adapter.ModelEvaluator
	sem   chan struct{}
}

// NewLimitedEvaluator bounds concurrent model calls across all workers.
func NewLimitedEvaluator(inner adapter.ModelEvaluator, maxConcurrent int) adapter.ModelEvaluator {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedEvaluator{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedEvaluator) Name() string { return l.inner.Name() }

func (l *limitedEvaluator) Evaluate(ctx context.Context, system, prompt string) (string, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Evaluate(ctx, system, prompt)
}

func (l *limitedEvaluator) CountTokens(ctx context.Context, text string) (int, error) {
	return l.inner.CountTokens(ctx, text)
}
