package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiPromptTokens,
		aiCallsLatencyMs,
	)
}

var (
	aiPromptTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_prompt_tokens_total",
			Help: "Sum of prompt tokens sent per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_calls_latency_ms",
			Help:    "AI call latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 200, 400, 800, 1600, 3000, 5000, 10000, 30000},
		},
		[]string{"provider", "model", "success"},
	)
)

func ObserveModelCall(provider, model string, promptTokens, latencyMs int, success bool) {
	aiPromptTokens.WithLabelValues(norm(provider), norm(model)).Add(float64(promptTokens))
	aiCallsLatencyMs.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}
