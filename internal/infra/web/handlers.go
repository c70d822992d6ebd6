package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ai-interview-platform/internal/domain"
	"ai-interview-platform/internal/domain/model"
	"ai-interview-platform/internal/infra/metrics"
)

// questionView is the client-safe projection of a question: everything the
// candidate needs to answer, nothing the graders rely on.
type questionView struct {
	Index            int      `json:"index"`
	Type             string   `json:"type"`
	Prompt           string   `json:"prompt"`
	Options          []string `json:"options,omitempty"`
	StarterCode      string   `json:"starter_code,omitempty"`
	TimeLimitSeconds int      `json:"time_limit_seconds"`
	Points           float64  `json:"points"`
}

func toQuestionView(q model.Question, index int) questionView {
	return questionView{
		Index:            index,
		Type:             string(q.Type),
		Prompt:           q.Prompt,
		Options:          q.Grading.Options,
		StarterCode:      q.Grading.StarterCode,
		TimeLimitSeconds: q.TimeLimitSeconds,
		Points:           q.Points,
	}
}

type startSessionRequest struct {
	InterviewID string `json:"interview_id"`
	ResumeID    string `json:"resume_id"`
}

type startSessionResponse struct {
	SessionID       string    `json:"session_id"`
	Status          string    `json:"status"`
	CurrentQuestion int       `json:"current_question"`
	StartedAt       time.Time `json:"started_at"`
	Token           string    `json:"token"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	candidateID := r.Header.Get("X-Candidate-ID")
	if candidateID == "" {
		writeJSONError(w, http.StatusUnauthorized, "missing candidate identity")
		return
	}
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InterviewID == "" {
		writeJSONError(w, http.StatusBadRequest, "interview_id is required")
		return
	}

	res, err := s.sessionUC.Start(r.Context(), candidateID, req.InterviewID, req.ResumeID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	metrics.IncSessionStarted()

	startedAt := time.Now()
	if res.Session.StartedAt != nil {
		startedAt = *res.Session.StartedAt
	}
	writeJSON(w, http.StatusCreated, startSessionResponse{
		SessionID:       res.Session.ID,
		Status:          string(res.Session.Status),
		CurrentQuestion: res.Session.CurrentQuestion,
		StartedAt:       startedAt,
		Token:           res.Token,
	})
}

type activeSessionResponse struct {
	SessionID            string        `json:"session_id"`
	Status               string        `json:"status"`
	CurrentQuestion      int           `json:"current_question"`
	TotalQuestions       int           `json:"total_questions"`
	Question             *questionView `json:"question,omitempty"`
	TimeRemainingSeconds int           `json:"time_remaining_seconds"`
	TotalElapsedSeconds  int           `json:"total_elapsed_seconds"`
	ServerTime           time.Time     `json:"server_time"`
	CanResume            bool          `json:"can_resume"`
	WasAutoAdvanced      bool          `json:"was_auto_advanced"`
	Completed            bool          `json:"completed"`
	Token                string        `json:"token,omitempty"`
}

func (s *Server) handleGetActive(w http.ResponseWriter, r *http.Request) {
	candidateID := r.Header.Get("X-Candidate-ID")
	if candidateID == "" {
		writeJSONError(w, http.StatusUnauthorized, "missing candidate identity")
		return
	}
	interviewID := r.URL.Query().Get("interview_id")
	if interviewID == "" {
		writeJSONError(w, http.StatusBadRequest, "interview_id is required")
		return
	}
	clientNow := time.Now()
	if raw := r.URL.Query().Get("client_now"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			clientNow = t
		}
	}

	active, err := s.sessionUC.GetActive(r.Context(), candidateID, interviewID, clientNow)
	if err != nil {
		if errors.Is(err, domain.ErrSessionExpired) {
			writeJSON(w, http.StatusGone, map[string]any{
				"error":      "session expired",
				"can_resume": false,
			})
			return
		}
		s.writeError(w, r, err)
		return
	}
	if active == nil {
		writeJSONError(w, http.StatusNotFound, "no active session")
		return
	}

	resp := activeSessionResponse{
		SessionID:            active.Session.ID,
		Status:               string(active.Session.Status),
		CurrentQuestion:      active.Session.CurrentQuestion,
		TotalQuestions:       len(active.Questions),
		TimeRemainingSeconds: int(active.TimeRemaining / time.Second),
		TotalElapsedSeconds:  int(active.TotalElapsed / time.Second),
		ServerTime:           active.ServerTime,
		CanResume:            active.CanResume,
		WasAutoAdvanced:      active.WasAutoAdvanced,
		Completed:            active.Completed,
		Token:                active.Token,
	}
	if !active.Completed && active.Session.CurrentQuestion < len(active.Questions) {
		qv := toQuestionView(active.Questions[active.Session.CurrentQuestion], active.Session.CurrentQuestion)
		resp.Question = &qv
	}
	writeJSON(w, http.StatusOK, resp)
}

type submitAnswerRequest struct {
	QuestionIndex int    `json:"question_index"`
	AnswerText    string `json:"answer_text"`
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeJSONError(w, http.StatusUnauthorized, "missing session token")
		return
	}
	var req submitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	res, err := s.answerUC.Submit(r.Context(), token, req.QuestionIndex, req.AnswerText)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	metrics.IncAnswerSubmitted(false)
	if res.Completed {
		metrics.IncSessionEnded("completed")
	}
	writeJSON(w, http.StatusOK, map[string]any{"completed": res.Completed})
}

func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	callerID, role := callerIdentity(r)
	if callerID == "" {
		writeJSONError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}

	res, err := s.resultsUC.GetResults(r.Context(), chi.URLParam(r, "id"), callerID, role)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type updateNotesRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) handleUpdateNotes(w http.ResponseWriter, r *http.Request) {
	callerID, role := callerIdentity(r)
	if callerID == "" {
		writeJSONError(w, http.StatusUnauthorized, "missing caller identity")
		return
	}
	var req updateNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := s.resultsUC.UpdateRecruiterNotes(r.Context(), chi.URLParam(r, "id"), callerID, role, req.Notes); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ----- helpers -----

func callerIdentity(r *http.Request) (callerID, role string) {
	return r.Header.Get("X-Candidate-ID"), r.Header.Get("X-Role")
}

func bearerToken(r *http.Request) string {
	hdr := r.Header.Get("Authorization")
	if len(hdr) > 7 && strings.EqualFold(hdr[:7], "bearer ") {
		return strings.TrimSpace(hdr[7:])
	}
	return ""
}

// writeError maps domain errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrOutOfSequence):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNotEligible):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeJSONError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrSessionExpired):
		writeJSONError(w, http.StatusGone, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	default:
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
