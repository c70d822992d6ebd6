package adapter

import "context"

// ModelEvaluator is the port for model-assisted grading and summary
// generation. Prompts instruct the model to reply with a single JSON object;
// Evaluate returns the raw text for the caller to decode. Any transport or
// provider error is surfaced as-is and treated as a job failure upstream.
type ModelEvaluator interface {
	// Evaluate sends a system instruction plus user prompt and returns the
	// model's text reply.
	Evaluate(ctx context.Context, system, prompt string) (string, error)

	// CountTokens returns the prompt token count for budget checks
	// (provider-specific counting; best-effort when exact isn't available).
	CountTokens(ctx context.Context, text string) (int, error)

	// Name identifies the backing provider for logging and feedback.
	Name() string
}
