package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"coincoach/backend-go/internal/config"
)

func newTestMarketClient(t *testing.T, handler http.HandlerFunc) (*MarketClient, *MemoryCache, *fakeClock) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	clock := newFakeClock()
	cache := NewMemoryCache(100)
	cache.now = clock.Now
	cfg := config.Config{
		CoinGeckoBaseURL:   srv.URL,
		CacheTTLMarket:     time.Minute,
		CacheTTLMarketHard: time.Hour,
		MarketTimeout:      2 * time.Second,
	}
	return NewMarketClient(cfg, cache), cache, clock
}

func TestParseMarketQuery(t *testing.T) {
	q, err := ParseMarketQuery("history/Bitcoin", "", "900", 50)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.Kind != KindHistory || q.CoinID != "bitcoin" || q.Days != 365 {
		t.Fatalf("unexpected query %+v", q)
	}

	q, err = ParseMarketQuery("history", "ethereum,solana", "0", 50)
	if err != nil || q.CoinID != "ethereum" || q.Days != 1 {
		t.Fatalf("unexpected history query %+v %v", q, err)
	}

	if _, err := ParseMarketQuery("history", "", "", 50); err == nil {
		t.Fatalf("history without a coin must fail")
	}
	if _, err := ParseMarketQuery("simple", "", "", 50); err == nil {
		t.Fatalf("simple without ids must fail")
	}
	if _, err := ParseMarketQuery("markets", "bitcoin,<x>", "", 50); err == nil {
		t.Fatalf("invalid coin id must fail")
	}
	if _, err := ParseMarketQuery("markets", "", "abc", 50); err == nil {
		t.Fatalf("non-numeric days must fail")
	}

	q, _ = ParseMarketQuery("whatever", "a,b,a,c", "", 2)
	if q.Kind != KindDefault || strings.Join(q.IDs, ",") != "a,b" {
		t.Fatalf("unexpected default query %+v", q)
	}
}

func TestUpstreamURL(t *testing.T) {
	c := &MarketClient{baseURL: "https://cg"}
	cases := map[string]string{
		"markets":         "https://cg/coins/markets?",
		"history/bitcoin": "https://cg/coins/bitcoin/market_chart?days=30&vs_currency=usd",
		"trending":        "https://cg/search/trending",
		"":                "https://cg/coins/markets?order=market_cap_desc&page=1&per_page=20&sparkline=true&vs_currency=usd",
	}
	for endpoint, want := range cases {
		q, err := ParseMarketQuery(endpoint, "bitcoin", "", 50)
		if err != nil {
			t.Fatalf("%s: %v", endpoint, err)
		}
		if got := c.UpstreamURL(q); !strings.HasPrefix(got, want) {
			t.Fatalf("%s: got %s, want prefix %s", endpoint, got, want)
		}
	}
	q, _ := ParseMarketQuery("simple", "bitcoin,ethereum", "", 50)
	if got := c.UpstreamURL(q); got != "https://cg/simple/price?ids=bitcoin%2Cethereum&include_24hr_change=true&vs_currencies=usd" {
		t.Fatalf("unexpected simple url %s", got)
	}
}

func TestFetchCachesFreshPayload(t *testing.T) {
	var hits int32
	c, _, clock := newTestMarketClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`[{"id":"bitcoin"}]`))
	})
	q, _ := ParseMarketQuery("markets", "bitcoin", "", 50)

	_, meta, err := c.Fetch(context.Background(), q)
	if err != nil || meta.Source != "fresh" {
		t.Fatalf("first fetch: %v %+v", err, meta)
	}
	_, meta, _ = c.Fetch(context.Background(), q)
	if meta.Source != "cache" || atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected cache hit, got %s after %d upstream calls", meta.Source, hits)
	}
	clock.Advance(61 * time.Second)
	_, meta, _ = c.Fetch(context.Background(), q)
	if meta.Source != "fresh" || atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("expected refetch after ttl, got %s", meta.Source)
	}
}

func TestFetchServesStaleOn429(t *testing.T) {
	var limited atomic.Bool
	c, _, clock := newTestMarketClient(t, func(w http.ResponseWriter, r *http.Request) {
		if limited.Load() {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"payload":1}`))
	})
	ctx := context.Background()
	q, _ := ParseMarketQuery("markets", "bitcoin", "", 50)
	if _, _, err := c.Fetch(ctx, q); err != nil {
		t.Fatalf("warm fetch: %v", err)
	}

	limited.Store(true)
	clock.Advance(2 * time.Minute)
	body, meta, err := c.Fetch(ctx, q)
	if err != nil || meta.Source != "stale" || string(body) != `{"payload":1}` {
		t.Fatalf("expected stale payload, got %s %+v %v", body, meta, err)
	}

	other, _ := ParseMarketQuery("trending", "", "", 50)
	body, meta, err = c.Fetch(ctx, other)
	if err != nil || meta.Source != "stale" || string(body) != `{"payload":1}` {
		t.Fatalf("expected any-key stale payload, got %s %+v %v", body, meta, err)
	}
}

func TestFetchAnyKeyStaleOutlivesStaleTTL(t *testing.T) {
	var limited atomic.Bool
	c, cache, clock := newTestMarketClient(t, func(w http.ResponseWriter, r *http.Request) {
		if limited.Load() {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"payload":2}`))
	})
	ctx := context.Background()
	q, _ := ParseMarketQuery("markets", "bitcoin", "", 50)
	if _, _, err := c.Fetch(ctx, q); err != nil {
		t.Fatalf("warm fetch: %v", err)
	}

	limited.Store(true)
	clock.Advance(6 * time.Hour)
	cache.Sweep(ctx)
	body, meta, err := c.Fetch(ctx, q)
	if err != nil || meta.Source != "stale" || string(body) != `{"payload":2}` {
		t.Fatalf("expected old stale payload after sweep, got %s %+v %v", body, meta, err)
	}
}

func TestFetch429WithoutStale(t *testing.T) {
	c, _, _ := newTestMarketClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	q, _ := ParseMarketQuery("markets", "", "", 50)
	if _, _, err := c.Fetch(context.Background(), q); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestFetchUpstreamError(t *testing.T) {
	c, _, _ := newTestMarketClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	q, _ := ParseMarketQuery("trending", "", "", 50)
	_, _, err := c.Fetch(context.Background(), q)
	var upErr *UpstreamError
	if !errors.As(err, &upErr) || upErr.Status != http.StatusBadGateway {
		t.Fatalf("expected UpstreamError 502, got %v", err)
	}
}

func TestFetchSendsAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-cg-demo-api-key") != "demo" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()
	c := NewMarketClient(config.Config{CoinGeckoBaseURL: srv.URL, CoinGeckoAPIKey: "demo", MarketTimeout: time.Second}, nil)
	q, _ := ParseMarketQuery("markets", "", "", 50)
	if _, _, err := c.Fetch(context.Background(), q); err != nil {
		t.Fatalf("fetch: %v", err)
	}
}
