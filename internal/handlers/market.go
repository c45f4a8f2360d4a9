package handlers

import (
	"net/http"
	"strings"

	"coincoach/backend-go/internal/services"
)

// Crypto proxies CoinGecko with caching and a stale fallback on 429.
func (a *API) Crypto(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query, err := services.ParseMarketQuery(q.Get("endpoint"), q.Get("ids"), q.Get("days"), a.cfg.MaxCoinIDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := timeboxed(r, a.cfg.MarketTimeout)
	defer cancel()

	body, meta, err := a.market.Fetch(ctx, query)
	if err != nil {
		writeMarketError(w, err)
		return
	}
	switch meta.Source {
	case "stale":
		w.Header().Set("X-Cache", "stale")
	case "cache":
		w.Header().Set("X-Cache", "hit")
	default:
		w.Header().Set("X-Cache", "miss")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// CryptoRisk scores the requested coins, or the tracked set when ids is empty.
func (a *API) CryptoRisk(w http.ResponseWriter, r *http.Request) {
	ids := services.SupportedCoins
	if raw := strings.TrimSpace(r.URL.Query().Get("ids")); raw != "" {
		query, err := services.ParseMarketQuery("markets", raw, "", a.cfg.MaxCoinIDs)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		ids = query.IDs
	}

	ctx, cancel := timeboxed(r, a.cfg.MarketTimeout)
	defer cancel()

	risks, meta, err := a.market.CoinRisks(ctx, ids)
	if err != nil {
		writeMarketError(w, err)
		return
	}
	if meta.Source == "stale" {
		w.Header().Set("X-Cache", "stale")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tsISO": nowISO(),
		"coins": risks,
	})
}
