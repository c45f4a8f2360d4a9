package services

import (
	"context"
	"testing"
	"time"
)

func TestSweeperSweepOnce(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	cache := NewMemoryCache(10)
	cache.now = clock.Now
	limiter := NewMemoryLimiter(5, time.Minute)
	limiter.now = clock.Now

	_ = cache.Set(ctx, "a", []byte("1"), time.Second)
	_ = cache.Set(ctx, "b", []byte("1"), time.Second)
	limiter.Allow(ctx, "ip")
	clock.Advance(2 * time.Minute)

	s := NewSweeper(time.Minute)
	s.Add("cache", cache)
	s.Add("limiter", limiter)
	s.Add("none", nil)
	if n := s.SweepOnce(ctx); n != 3 {
		t.Fatalf("expected 3 removals, got %d", n)
	}
}

func TestSweeperStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewSweeper(10 * time.Millisecond)
	s.Add("cache", NewMemoryCache(1))
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("sweeper did not stop")
	}
}
