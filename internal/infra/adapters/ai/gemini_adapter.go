package ai

import (
	"context"
	"errors"
	"time"

	"google.golang.org/genai"

	"ai-interview-platform/internal/domain/ports/adapter"
	"ai-interview-platform/internal/infra/metrics"
)

var _ adapter.ModelEvaluator = (*GeminiAdapter)(nil)

type GeminiAdapter struct {
	client *genai.Client
	model  string
}

// NewGeminiAdapter creates a Gemini evaluator using the official SDK.
func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, model string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiAdapter{client: c, model: model}, nil
}

func (g *GeminiAdapter) Name() string { return "gemini" }

func (g *GeminiAdapter) Evaluate(ctx context.Context, system, prompt string) (string, error) {
	contents := []*genai.Content{
		{Role: genai.RoleUser, Parts: []*genai.Part{{Text: prompt}}},
	}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		ResponseMIMEType:  "application/json",
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	latencyMs := int(time.Since(start) / time.Millisecond)
	if err != nil {
		metrics.ObserveModelCall("gemini", g.model, 0, latencyMs, false)
		return "", err
	}

	promptTokens := 0
	if resp.UsageMetadata != nil {
		promptTokens = int(resp.UsageMetadata.PromptTokenCount)
	}
	metrics.ObserveModelCall("gemini", g.model, promptTokens, latencyMs, true)

	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		if t := resp.Candidates[0].Content.Parts[0].Text; t != "" {
			return t, nil
		}
	}
	return "", errors.New("gemini: empty candidate content")
}

func (g *GeminiAdapter) CountTokens(ctx context.Context, text string) (int, error) {
	contents := []*genai.Content{
		{Role: genai.RoleUser, Parts: []*genai.Part{{Text: text}}},
	}
	resp, err := g.client.Models.CountTokens(ctx, g.model, contents, nil)
	if err != nil {
		return 0, err
	}
	return int(resp.TotalTokens), nil
}
