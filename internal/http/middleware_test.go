package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"coincoach/backend-go/internal/config"
	"coincoach/backend-go/internal/handlers"
	"coincoach/backend-go/internal/services"
)

type silentAI struct{}

func (silentAI) Generate(context.Context, services.GenerateRequest) (string, error) {
	return "ok", nil
}

func (silentAI) Configured() bool { return true }

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (services.Decision, error) {
	return services.Decision{}, errors.New("redis down")
}

func (brokenLimiter) Limit() int { return 1 }

func newTestRouter(t *testing.T, lim Limiters) http.Handler {
	t.Helper()
	cfg := config.Config{
		MarketTimeout:    time.Second,
		AITimeout:        time.Second,
		MaxMessageLength: 2000,
		LessonCacheFile:  filepath.Join(t.TempDir(), "lessons.json"),
	}
	if lim.Global == nil {
		lim.Global = services.NewMemoryLimiter(100, time.Minute)
	}
	if lim.Chat == nil {
		lim.Chat = services.NewMemoryLimiter(100, time.Minute)
	}
	if lim.Patterns == nil {
		lim.Patterns = services.NewMemoryLimiter(100, time.Minute)
	}
	api := handlers.New(cfg, services.NewMemoryCache(10), silentAI{}, services.NewMemoryQuizStore(10))
	return NewRouter(cfg, api, lim)
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		trust   bool
		want    string
	}{
		{"forwarded first hop", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "9.9.9.9:1", false, "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": "5.6.7.8"}, "9.9.9.9:1", false, "5.6.7.8"},
		{"cloudflare", map[string]string{"CF-Connecting-IP": "7.7.7.7"}, "9.9.9.9:1", false, "7.7.7.7"},
		{"untrusted peer", nil, "9.9.9.9:1", false, "unknown"},
		{"trusted peer", nil, "9.9.9.9:1", true, "9.9.9.9"},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = tc.remote
		for k, v := range tc.headers {
			r.Header.Set(k, v)
		}
		if got := clientIP(r, tc.trust); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestChatLimiter(t *testing.T) {
	h := newTestRouter(t, Limiters{Chat: services.NewMemoryLimiter(2, time.Minute)})
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`))
		req.Header.Set("X-Forwarded-For", "1.1.1.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if i < 2 && rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d %s", i, rec.Code, rec.Body.String())
		}
		if i == 2 {
			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429, got %d", rec.Code)
			}
			if rec.Header().Get("Retry-After") != "60" || rec.Header().Get("X-RateLimit-Remaining") != "0" {
				t.Fatalf("unexpected headers %v", rec.Header())
			}
			if !strings.Contains(rec.Body.String(), chatDenied) {
				t.Fatalf("unexpected body %s", rec.Body.String())
			}
		}
	}

	// other callers keep their own budget
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("X-Forwarded-For", "2.2.2.2")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for a second client, got %d", rec.Code)
	}
}

func TestLimiterFailsOpen(t *testing.T) {
	h := newTestRouter(t, Limiters{Global: brokenLimiter{}})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with a broken limiter, got %d", rec.Code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	h := newTestRouter(t, Limiters{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if len(rec.Header().Get("X-Request-ID")) != 36 {
		t.Fatalf("expected generated uuid, got %q", rec.Header().Get("X-Request-ID"))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") != "abc" {
		t.Fatalf("expected caller id echoed, got %q", rec.Header().Get("X-Request-ID"))
	}
}

func TestPreflightSkipsLimiter(t *testing.T) {
	h := newTestRouter(t, Limiters{Global: services.NewMemoryLimiter(0, time.Minute)})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/chat", nil))
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("unexpected preflight reply %d %v", rec.Code, rec.Header())
	}
}

func TestRecovery(t *testing.T) {
	h := withRecovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestRoutesRejectWrongMethod(t *testing.T) {
	h := newTestRouter(t, Limiters{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestGlobalLimiterSeparatesPeers(t *testing.T) {
	h := newTestRouter(t, Limiters{Global: services.NewMemoryLimiter(2, time.Minute)})
	get := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	for i, remote := range []string{"10.0.0.1:1000", "10.0.0.2:1000", "10.0.0.3:1000"} {
		if code := get(remote); code != http.StatusOK {
			t.Fatalf("client %d: expected 200, got %d", i, code)
		}
	}
	get("10.0.0.1:1001")
	if code := get("10.0.0.1:1002"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once one peer spends its budget, got %d", code)
	}
	if code := get("10.0.0.2:1000"); code != http.StatusOK {
		t.Fatalf("expected other peer unaffected, got %d", code)
	}
}

func TestChatLimiterSharesUnknownBucket(t *testing.T) {
	h := newTestRouter(t, Limiters{Chat: services.NewMemoryLimiter(1, time.Minute)})
	var codes []int
	for _, remote := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`))
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected shared unknown bucket, got %v", codes)
	}
}

func TestDenyBodyIsValidJSON(t *testing.T) {
	msg := `say "slow down"`
	h := withLimiter(services.NewMemoryLimiter(1, time.Minute), peerKey, msg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	var rec *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	if rec.Code != http.StatusTooManyRequests || body["error"] != msg {
		t.Fatalf("unexpected reply %d %v", rec.Code, body)
	}
}

func TestGlobalDenialIsLogged(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	h := newTestRouter(t, Limiters{Global: services.NewMemoryLimiter(1, time.Minute)})
	for i := 0; i < 2; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	}
	if !strings.Contains(buf.String(), "GET /api/health 429") {
		t.Fatalf("expected access line for the denied request, got %q", buf.String())
	}
}
