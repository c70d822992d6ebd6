package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		evaluationJobsTotal,
		evaluationRetriesTotal,
		evaluationQueueDepth,
		evaluationLatencySeconds,
	)
}

var (
	evaluationJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evaluation_jobs_total",
			Help: "Total number of evaluation jobs finished, labeled by terminal status.",
		},
		[]string{"status"}, // 'completed', 'fallback'
	)

	evaluationRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "evaluation_retries_total",
			Help: "Total number of evaluation attempts that failed and were re-queued.",
		},
	)

	evaluationQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "evaluation_queue_depth",
			Help: "Current number of evaluation jobs waiting in the queue.",
		},
	)

	evaluationLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evaluation_latency_seconds",
			Help:    "Time from job creation to terminal grading result.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		},
		[]string{"grader"},
	)
)

func IncEvaluationJob(status string) {
	evaluationJobsTotal.WithLabelValues(norm(status)).Inc()
}

func IncEvaluationRetry() { evaluationRetriesTotal.Inc() }

func SetEvaluationQueueDepth(n int) { evaluationQueueDepth.Set(float64(n)) }

func ObserveEvaluationLatency(grader string, seconds float64) {
	evaluationLatencySeconds.WithLabelValues(norm(grader)).Observe(seconds)
}
