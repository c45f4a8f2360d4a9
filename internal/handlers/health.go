package handlers

import (
	"context"
	"net/http"
	"time"

	"coincoach/backend-go/internal/models"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	depsStatus := map[string]models.DepStatus{}
	cacheStatus := models.DepStatus{Ok: true, Backend: a.cache.Backend()}
	if p, ok := a.cache.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			cacheStatus.Ok = false
			cacheStatus.Error = err.Error()
		}
	}
	depsStatus["cache"] = cacheStatus
	depsStatus["quiz_store"] = models.DepStatus{Ok: true, Backend: a.sessions.Backend()}
	if a.ai.Configured() {
		depsStatus["gemini"] = models.DepStatus{Ok: true}
	} else {
		depsStatus["gemini"] = models.DepStatus{Ok: false, Error: "GEMINI_API_KEY not set"}
	}

	resp := models.HealthResponse{
		Ok:         cacheStatus.Ok,
		TsISO:      nowISO(),
		Service:    "coincoach-api",
		Version:    a.cfg.Version,
		DepsStatus: depsStatus,
		Env: map[string]bool{
			"GEMINI_API_KEY":    a.cfg.GeminiAPIKey != "",
			"COINGECKO_API_KEY": a.cfg.CoinGeckoAPIKey != "",
			"REDIS_URL":         a.cfg.RedisURL != "",
			"QUIZ_DB_PATH":      a.cfg.QuizDBPath != "",
			"SERVICE_VERSION":   a.cfg.Version != "",
		},
	}
	writeJSON(w, http.StatusOK, resp)
}
