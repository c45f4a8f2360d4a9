package handlers

import (
	"errors"
	"net/http"

	"coincoach/backend-go/internal/models"
	"coincoach/backend-go/internal/services"
)

func (a *API) Quiz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeboxed(r, a.cfg.AITimeout)
	defer cancel()
	questions, source := a.quiz.Generate(ctx)
	writeJSON(w, http.StatusOK, models.QuizResponse{Questions: questions, Source: source})
}

func (a *API) QuizScore(w http.ResponseWriter, r *http.Request) {
	var req models.ScoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Questions) == 0 {
		writeError(w, http.StatusBadRequest, "questions are required")
		return
	}
	if len(req.UserAnswers) != len(req.Questions) {
		writeError(w, http.StatusBadRequest, "userAnswers must have one entry per question")
		return
	}
	writeJSON(w, http.StatusOK, services.CalculateScore(req.Questions, req.UserAnswers))
}

func (a *API) StartQuizSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeboxed(r, a.cfg.AITimeout)
	defer cancel()
	sess, err := a.sessions.Start(ctx)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.View())
}

func (a *API) QuizSession(w http.ResponseWriter, r *http.Request) {
	sess, err := a.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (a *API) AnswerQuizSession(w http.ResponseWriter, r *http.Request) {
	var req models.AnswerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sess, err := a.sessions.Answer(r.Context(), r.PathValue("id"), req.Index, req.Answer)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (a *API) SubmitQuizSession(w http.ResponseWriter, r *http.Request) {
	sess, err := a.sessions.Submit(r.Context(), r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "quiz session not found")
	case errors.Is(err, services.ErrSessionCompleted):
		writeError(w, http.StatusConflict, "quiz session already completed")
	case errors.Is(err, services.ErrInvalidAnswer):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal")
	}
}
