package handlers

import (
	"net/http"

	"coincoach/backend-go/internal/models"
)

// Patterns never fails once the body decodes: analysis falls back to heuristics.
func (a *API) Patterns(w http.ResponseWriter, r *http.Request) {
	var req models.AnalysisRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := timeboxed(r, a.cfg.AITimeout)
	defer cancel()

	writeJSON(w, http.StatusOK, a.patterns.Analyze(ctx, req))
}
