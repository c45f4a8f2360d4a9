package http

import (
	"net/http"

	"coincoach/backend-go/internal/config"
	"coincoach/backend-go/internal/handlers"
	"coincoach/backend-go/internal/services"
)

const (
	chatDenied     = "Too many requests. Please wait a moment before trying again."
	patternsDenied = "Too many requests. Please wait before analyzing again."
)

// Limiters are the per-route request budgets.
type Limiters struct {
	Global   services.Limiter
	Chat     services.Limiter
	Patterns services.Limiter
}

func NewRouter(cfg config.Config, api *handlers.API, lim Limiters) http.Handler {
	aiKey := clientKey(cfg.RateLimitTrustRemoteAddr)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", api.Health)

	mux.HandleFunc("GET /api/crypto", api.Crypto)
	mux.HandleFunc("GET /api/crypto/risk", api.CryptoRisk)
	mux.HandleFunc("GET /api/crypto/stream", api.StreamPrices)

	mux.HandleFunc("GET /api/lessons", api.ListLessons)
	mux.HandleFunc("GET /api/lesson/{id}", api.Lesson)
	mux.HandleFunc("POST /api/lesson/generate-all", api.GenerateAllLessons)

	mux.HandleFunc("GET /api/quiz", api.Quiz)
	mux.HandleFunc("POST /api/quiz", api.Quiz)
	mux.HandleFunc("POST /api/quiz/score", api.QuizScore)
	mux.HandleFunc("POST /api/quiz/sessions", api.StartQuizSession)
	mux.HandleFunc("GET /api/quiz/sessions/{id}", api.QuizSession)
	mux.HandleFunc("POST /api/quiz/sessions/{id}/answers", api.AnswerQuizSession)
	mux.HandleFunc("POST /api/quiz/sessions/{id}/submit", api.SubmitQuizSession)

	mux.Handle("POST /api/chat", withLimiter(lim.Chat, aiKey, chatDenied)(http.HandlerFunc(api.Chat)))
	mux.Handle("POST /api/patterns", withLimiter(lim.Patterns, aiKey, patternsDenied)(http.HandlerFunc(api.Patterns)))

	h := http.Handler(mux)
	h = withLimiter(lim.Global, peerKey, "rate_limited")(h)
	h = withRecovery(h)
	h = withLogging(h)
	h = withCORS(h)
	h = withRequestID(h)
	return h
}
