package web

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"ai-interview-platform/internal/usecase"
)

type mockSessionUC struct {
	startFn     func(ctx context.Context, candidateID, interviewID, resumeID string) (*usecase.StartResult, error)
	getActiveFn func(ctx context.Context, candidateID, interviewID string, clientNow time.Time) (*usecase.ActiveSession, error)
}

func (m *mockSessionUC) Start(ctx context.Context, candidateID, interviewID, resumeID string) (*usecase.StartResult, error) {
	return m.startFn(ctx, candidateID, interviewID, resumeID)
}

func (m *mockSessionUC) GetActive(ctx context.Context, candidateID, interviewID string, clientNow time.Time) (*usecase.ActiveSession, error) {
	return m.getActiveFn(ctx, candidateID, interviewID, clientNow)
}

type mockAnswerUC struct {
	submitFn func(ctx context.Context, signedToken string, questionIndex int, answerText string) (*usecase.SubmitResult, error)
}

func (m *mockAnswerUC) Submit(ctx context.Context, signedToken string, questionIndex int, answerText string) (*usecase.SubmitResult, error) {
	return m.submitFn(ctx, signedToken, questionIndex, answerText)
}

type mockResultsUC struct {
	getResultsFn  func(ctx context.Context, sessionID, callerID, role string) (*usecase.Results, error)
	updateNotesFn func(ctx context.Context, sessionID, callerID, role, notes string) error
}

func (m *mockResultsUC) GetResults(ctx context.Context, sessionID, callerID, role string) (*usecase.Results, error) {
	return m.getResultsFn(ctx, sessionID, callerID, role)
}

func (m *mockResultsUC) FinalizeIfComplete(ctx context.Context, sessionID string) (bool, error) {
	return false, nil
}

func (m *mockResultsUC) UpdateRecruiterNotes(ctx context.Context, sessionID, callerID, role, notes string) error {
	return m.updateNotesFn(ctx, sessionID, callerID, role, notes)
}

func newTestServer(sessions *mockSessionUC, answers *mockAnswerUC, results *mockResultsUC) *Server {
	logger := zerolog.New(io.Discard)
	return NewServer(sessions, answers, results, &logger)
}
