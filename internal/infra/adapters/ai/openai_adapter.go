package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pkoukk/tiktoken-go"
	openai "github.com/sashabaranov/go-openai"

	"ai-interview-platform/internal/domain/ports/adapter"
	"ai-interview-platform/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.ModelEvaluator = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements adapter.ModelEvaluator on the Chat Completions
// API. Replies are requested in JSON mode so grader parsing never fights
// markdown prose.
type OpenAIAdapter struct {
	api          *openai.Client
	model        string
	promptBudget int
}

func NewOpenAIAdapter(apiKey, baseURL, model string, promptBudget int) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIAdapter{
		api:          openai.NewClientWithConfig(cfg),
		model:        model,
		promptBudget: promptBudget,
	}, nil
}

func (o *OpenAIAdapter) Name() string { return "openai" }

func (o *OpenAIAdapter) Evaluate(ctx context.Context, system, prompt string) (string, error) {
	prompt = o.capPrompt(prompt)

	start := time.Now()
	resp, err := o.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	latencyMs := int(time.Since(start) / time.Millisecond)
	if err != nil {
		metrics.ObserveModelCall("openai", o.model, 0, latencyMs, false)
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	metrics.ObserveModelCall("openai", o.model, resp.Usage.PromptTokens, latencyMs, true)

	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAIAdapter) CountTokens(ctx context.Context, text string) (int, error) {
	enc, err := tiktoken.EncodingForModel(o.model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0, err
		}
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// capPrompt truncates oversized prompts to the configured token budget. A
// truncated answer still grades; an over-limit API rejection does not.
func (o *OpenAIAdapter) capPrompt(prompt string) string {
	if o.promptBudget <= 0 {
		return prompt
	}
	n, err := o.CountTokens(context.Background(), prompt)
	if err != nil || n <= o.promptBudget {
		return prompt
	}
	runes := []rune(prompt)
	// rough 4 chars per token
	max := o.promptBudget * 4
	if len(runes) > max {
		runes = runes[:max]
	}
	return string(runes)
}
