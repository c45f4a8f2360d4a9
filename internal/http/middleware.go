package http

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"coincoach/backend-go/internal/services"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

// RequestID returns the id withRequestID attached to ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusWriter) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(sw, r)
		dur := time.Since(start)
		log.Printf("[%s] %s %s %d %s", RequestID(r.Context()), r.Method, r.URL.Path, sw.status, dur)
	})
}

func withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[%s] panic: %v", RequestID(r.Context()), rec)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"internal"}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID,X-Cache,X-RateLimit-Limit,X-RateLimit-Remaining,Retry-After")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLimiter counts each request against lim under the id key returns.
// A limiter that errors lets the request through.
func withLimiter(lim services.Limiter, key func(*http.Request) string, denyMsg string) func(http.Handler) http.Handler {
	denyBody, _ := json.Marshal(map[string]string{"error": denyMsg})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := lim.Allow(r.Context(), key(r))
			if err != nil {
				log.Printf("[%s] rate limiter unavailable: %v", RequestID(r.Context()), err)
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				w.Header().Set("Retry-After", "60")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write(denyBody)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// peerKey identifies callers for the global limiter, falling back to the
// socket peer when no proxy header is present.
func peerKey(r *http.Request) string {
	return clientIP(r, true)
}

// clientKey identifies callers for the AI route limiters.
func clientKey(trustRemoteAddr bool) func(*http.Request) string {
	return func(r *http.Request) string {
		return clientIP(r, trustRemoteAddr)
	}
}

// clientIP prefers proxy headers. Without them every caller shares the
// "unknown" bucket unless the socket peer is trusted.
func clientIP(r *http.Request, trustRemoteAddr bool) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	for _, h := range []string{"X-Real-IP", "CF-Connecting-IP"} {
		if v := strings.TrimSpace(r.Header.Get(h)); v != "" {
			return v
		}
	}
	if trustRemoteAddr {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err == nil {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
	}
	return "unknown"
}
