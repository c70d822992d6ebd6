package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ai-interview-platform/internal/usecase"
)

// Server exposes the candidate and recruiter HTTP API. Identity arrives from
// the gateway in X-Candidate-ID / X-Role headers; the only credential this
// service checks itself is the per-session answer token.
type Server struct {
	sessionUC usecase.SessionUseCase
	answerUC  usecase.AnswerUseCase
	resultsUC usecase.ResultsUseCase
	log       *zerolog.Logger
}

func NewServer(
	sessionUC usecase.SessionUseCase,
	answerUC usecase.AnswerUseCase,
	resultsUC usecase.ResultsUseCase,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		sessionUC: sessionUC,
		answerUC:  answerUC,
		resultsUC: resultsUC,
		log:       logger,
	}
}

// Router assembles the chi router with the full middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID)
	r.Use(Recover(s.log))
	r.Use(RequestLog(s.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Post("/", s.handleStartSession)
		r.Get("/active", s.handleGetActive)
		r.Post("/{id}/answers", s.handleSubmitAnswer)
		r.Get("/{id}/results", s.handleGetResults)
		r.Put("/{id}/notes", s.handleUpdateNotes)
	})

	return r
}
