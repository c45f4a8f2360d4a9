package handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"coincoach/backend-go/internal/services"
)

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// writeMarketError maps market proxy failures onto the proxy's replies.
func writeMarketError(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrRateLimited) {
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "Rate limited. Please wait a moment and try again.")
		return
	}
	var upErr *services.UpstreamError
	if errors.As(err, &upErr) {
		if upErr.Status == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "60")
		}
		writeError(w, upErr.Status, fmt.Sprintf("CoinGecko API error: %d", upErr.Status))
		return
	}
	if isTimeout(err) {
		writeError(w, http.StatusGatewayTimeout, "upstream_timeout")
		return
	}
	writeError(w, http.StatusInternalServerError, "Failed to fetch crypto data. Check your internet connection.")
}

// writeAIError maps generation failures for routes that surface them.
func writeAIError(w http.ResponseWriter, err error) {
	var upErr *services.UpstreamError
	switch {
	case errors.Is(err, services.ErrAIUnconfigured):
		writeError(w, http.StatusInternalServerError, "API key not configured")
	case errors.As(err, &upErr):
		if upErr.Status == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "60")
		}
		msg := upErr.Message
		if msg == "" {
			msg = "Unknown error"
		}
		writeError(w, upErr.Status, "Gemini API error: "+msg)
	case errors.Is(err, services.ErrEmptyCompletion):
		writeError(w, http.StatusInternalServerError, "Invalid response from Gemini API")
	case errors.Is(err, services.ErrCircuitOpen):
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusServiceUnavailable, "Gemini API error: temporarily unavailable")
	case isTimeout(err):
		writeError(w, http.StatusGatewayTimeout, "upstream_timeout")
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error: "+err.Error())
	}
}
