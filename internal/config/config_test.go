package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CACHE_TTL_MARKET", "")
	t.Setenv("RATE_LIMIT_CHAT_MAX", "")
	cfg := Load()
	if cfg.CacheTTLMarket != 60*time.Second {
		t.Fatalf("expected 60s market ttl, got %v", cfg.CacheTTLMarket)
	}
	if cfg.RateLimitChatMax != 20 {
		t.Fatalf("expected chat max 20, got %d", cfg.RateLimitChatMax)
	}
	if cfg.AITimeout != 30*time.Second {
		t.Fatalf("expected ai timeout 30s, got %v", cfg.AITimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CACHE_TTL_MARKET", "5")
	t.Setenv("RATE_LIMIT_PATTERNS_MAX", "3")
	t.Setenv("RATE_LIMIT_TRUST_REMOTE_ADDR", "yes")
	t.Setenv("MAX_COIN_IDS", "not-a-number")
	cfg := Load()
	if cfg.CacheTTLMarket != 5*time.Second {
		t.Fatalf("expected 5s, got %v", cfg.CacheTTLMarket)
	}
	if cfg.RateLimitPatternsMax != 3 {
		t.Fatalf("expected 3, got %d", cfg.RateLimitPatternsMax)
	}
	if !cfg.RateLimitTrustRemoteAddr {
		t.Fatal("expected trust remote addr to be enabled")
	}
	if cfg.MaxCoinIDs != 50 {
		t.Fatalf("expected invalid int to fall back to 50, got %d", cfg.MaxCoinIDs)
	}
}

func TestQuizDBPathCanBeDisabled(t *testing.T) {
	t.Setenv("QUIZ_DB_PATH", "")
	if got := Load().QuizDBPath; got != "" {
		t.Fatalf("expected empty path to disable sqlite, got %q", got)
	}
}
