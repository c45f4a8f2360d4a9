package handlers

import (
	"errors"
	"log"
	"net/http"

	"coincoach/backend-go/internal/models"
	"coincoach/backend-go/internal/services"
)

func (a *API) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := timeboxed(r, a.cfg.AITimeout)
	defer cancel()

	reply, err := a.chat.Reply(ctx, req)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Message)
			return
		}
		log.Printf("chat failed: %v", err)
		writeAIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ChatResponse{Response: reply})
}
