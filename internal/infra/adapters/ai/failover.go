package ai

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"ai-interview-platform/internal/domain/ports/adapter"
)

var _ adapter.ModelEvaluator = (*FailoverEvaluator)(nil)

// FailoverEvaluator tries each provider in order until one answers. Attempt
// scheduling stays with the evaluation worker; this only widens a single
// attempt across providers.
type FailoverEvaluator struct {
	chain []adapter.ModelEvaluator
	log   *zerolog.Logger
}

func NewFailoverEvaluator(logger *zerolog.Logger, chain ...adapter.ModelEvaluator) (*FailoverEvaluator, error) {
	if len(chain) == 0 {
		return nil, errors.New("failover: empty provider chain")
	}
	l := logger.With().Str("component", "FailoverEvaluator").Logger()
	return &FailoverEvaluator{chain: chain, log: &l}, nil
}

func (f *FailoverEvaluator) Name() string { return f.chain[0].Name() }

func (f *FailoverEvaluator) Evaluate(ctx context.Context, system, prompt string) (string, error) {
	var lastErr error
	for _, ev := range f.chain {
		reply, err := ev.Evaluate(ctx, system, prompt)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		f.log.Warn().Err(err).Str("provider", ev.Name()).Msg("provider failed, trying next")
	}
	return "", lastErr
}

func (f *FailoverEvaluator) CountTokens(ctx context.Context, text string) (int, error) {
	return f.chain[0].CountTokens(ctx, text)
}
