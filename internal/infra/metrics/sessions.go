package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		sessionsStartedTotal,
		sessionsEndedTotal,
		answersSubmittedTotal,
		autoAdvancedTotal,
	)
}

var (
	sessionsStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interview_sessions_started_total",
			Help: "Total number of interview sessions started.",
		},
	)

	sessionsEndedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_sessions_ended_total",
			Help: "Total number of interview sessions ended, labeled by outcome.",
		},
		[]string{"outcome"}, // 'completed', 'abandoned'
	)

	answersSubmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_answers_submitted_total",
			Help: "Total number of answers recorded, labeled by submission mode.",
		},
		[]string{"mode"}, // 'manual', 'auto'
	)

	autoAdvancedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interview_questions_auto_advanced_total",
			Help: "Total number of questions force-submitted after their time limit expired.",
		},
	)
)

func IncSessionStarted() { sessionsStartedTotal.Inc() }

func IncSessionEnded(outcome string) {
	sessionsEndedTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncAnswerSubmitted(auto bool) {
	mode := "manual"
	if auto {
		mode = "auto"
		autoAdvancedTotal.Inc()
	}
	answersSubmittedTotal.WithLabelValues(mode).Inc()
}
