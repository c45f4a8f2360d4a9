package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one fixed-window check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter counts requests per identifier in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, id string) (Decision, error)
	Limit() int
}

type MemoryLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	count int
	reset time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLimiter{
		max:     max,
		window:  window,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Limit() int { return l.max }

func (l *MemoryLimiter) Allow(_ context.Context, id string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[id]
	if !ok || !now.Before(b.reset) {
		b = &bucket{count: 1, reset: now.Add(l.window)}
		l.buckets[id] = b
		return Decision{Allowed: true, Limit: l.max, Remaining: l.max - 1, ResetAt: b.reset}, nil
	}

	if b.count >= l.max {
		return Decision{Allowed: false, Limit: l.max, Remaining: 0, ResetAt: b.reset}, nil
	}
	b.count++
	return Decision{Allowed: true, Limit: l.max, Remaining: l.max - b.count, ResetAt: b.reset}, nil
}

// Sweep deletes records whose window has already closed.
func (l *MemoryLimiter) Sweep(context.Context) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	removed := 0
	for key, b := range l.buckets {
		if !now.Before(b.reset) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// RedisLimiter shares windows across instances. The first INCR of a window
// sets its expiry, so the key vanishes when the window closes.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	max    int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, name string, max int, window time.Duration) *RedisLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{
		client: client,
		prefix: fmt.Sprintf("ratelimit:v1:%s:", name),
		max:    max,
		window: window,
	}
}

func (l *RedisLimiter) Limit() int { return l.max }

func (l *RedisLimiter) Allow(ctx context.Context, id string) (Decision, error) {
	key := l.prefix + id
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return Decision{Allowed: true, Limit: l.max, Remaining: l.max}, err
	}

	count := int(incr.Val())
	remainingTTL := ttl.Val()
	if count == 1 || remainingTTL < 0 {
		if err := l.client.PExpire(ctx, key, l.window).Err(); err != nil {
			return Decision{Allowed: true, Limit: l.max, Remaining: l.max - 1}, err
		}
		remainingTTL = l.window
	}
	reset := time.Now().Add(remainingTTL)
	if count > l.max {
		return Decision{Allowed: false, Limit: l.max, Remaining: 0, ResetAt: reset}, nil
	}
	return Decision{Allowed: true, Limit: l.max, Remaining: l.max - count, ResetAt: reset}, nil
}

// NewLimiter returns a Redis-backed limiter when client is non-nil and an
// in-process one otherwise.
func NewLimiter(client *redis.Client, name string, max int, window time.Duration) Limiter {
	if client != nil {
		return NewRedisLimiter(client, name, max, window)
	}
	return NewMemoryLimiter(max, window)
}
