package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"coincoach/backend-go/internal/services"
)

// StreamPrices pushes the simple price map as server-sent events.
func (a *API) StreamPrices(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	intervalSec := parseIntParam(q.Get("interval"), 60, 15, 300)
	rawIDs := q.Get("ids")
	if strings.TrimSpace(rawIDs) == "" {
		rawIDs = strings.Join(services.SupportedCoins, ",")
	}
	query, err := services.ParseMarketQuery("simple", rawIDs, "", a.cfg.MaxCoinIDs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
	defer ticker.Stop()

	send := func() {
		ctx, cancel := context.WithTimeout(r.Context(), a.cfg.MarketTimeout)
		defer cancel()
		prices, meta, err := a.market.Fetch(ctx, query)
		payload := map[string]any{
			"tsISO":  nowISO(),
			"prices": prices,
			"source": meta.Source,
		}
		if err != nil {
			payload["error"] = err.Error()
		}
		data, _ := json.Marshal(payload)
		_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	send()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			send()
		}
	}
}
