package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"coincoach/backend-go/internal/services"
)

func (a *API) ListLessons(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"lessons": a.lessons.List()})
}

func (a *API) Lesson(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Lesson not found")
		return
	}

	ctx, cancel := timeboxed(r, a.cfg.AITimeout)
	defer cancel()

	raw, err := a.lessons.Get(ctx, id)
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(raw)
	case errors.Is(err, services.ErrLessonNotFound):
		writeError(w, http.StatusNotFound, "Lesson not found")
	case errors.Is(err, services.ErrAIUnconfigured):
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":         "Gemini API key not configured",
			"content":       "Please set GEMINI_API_KEY in your environment variables.",
			"sections":      []any{},
			"youtubeVideos": []any{},
			"keyPoints":     []any{},
		})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":         "Failed to generate lesson content",
			"message":       err.Error(),
			"content":       "Unable to fetch content from Gemini API. Please check your API key and try again.",
			"sections":      []any{},
			"youtubeVideos": []any{},
			"keyPoints":     []any{},
		})
	}
}

// GenerateAllLessons regenerates the whole catalog. Each generation is
// bounded by the client's AI timeout.
func (a *API) GenerateAllLessons(w http.ResponseWriter, r *http.Request) {
	if !a.ai.Configured() {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Gemini API key not configured",
			"message": "Please set GEMINI_API_KEY in your environment variables.",
		})
		return
	}
	force := r.URL.Query().Get("force") != "false"
	writeJSON(w, http.StatusOK, a.lessons.GenerateAll(r.Context(), force))
}
