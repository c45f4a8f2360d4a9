package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"coincoach/backend-go/internal/config"
	"coincoach/backend-go/internal/services"
)

const maxBodyBytes = 64 << 10

type API struct {
	cfg      config.Config
	cache    services.Cache
	ai       services.TextGenerator
	market   *services.MarketClient
	lessons  *services.LessonService
	quiz     *services.QuizService
	sessions *services.QuizSessions
	patterns *services.PatternService
	chat     *services.ChatService
}

func New(cfg config.Config, cache services.Cache, ai services.TextGenerator, store services.QuizStore) *API {
	quiz := services.NewQuizService(ai)
	return &API{
		cfg:      cfg,
		cache:    cache,
		ai:       ai,
		market:   services.NewMarketClient(cfg, cache),
		lessons:  services.NewLessonService(ai, services.NewLessonStore(cfg.LessonCacheFile), cfg.LessonGenerateDelay),
		quiz:     quiz,
		sessions: services.NewQuizSessions(quiz, store),
		patterns: services.NewPatternService(ai),
		chat:     services.NewChatService(ai, cfg.MaxMessageLength),
	}
}

// Lessons exposes the lesson service to the CLI.
func (a *API) Lessons() *services.LessonService {
	return a.lessons
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

// decodeJSON reads a size-limited body into v and writes the error reply
// itself when it returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_json")
		return false
	}
	return true
}

func timeboxed(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}

func parseIntParam(v string, def int, min int, max int) int {
	if v == "" {
		return def
	}
	var out int
	_, err := fmt.Sscanf(v, "%d", &out)
	if err != nil {
		return def
	}
	if out < min {
		return min
	}
	if out > max {
		return max
	}
	return out
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
