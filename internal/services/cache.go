package services

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores raw JSON payloads with a per-entry TTL. Get only reports
// entries that are still fresh.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Sweep(ctx context.Context) int
	Backend() string
}

type RedisCache struct {
	client *redis.Client
}

type MemoryCache struct {
	mu         sync.Mutex
	items      map[string]memItem
	maxEntries int
	now        func() time.Time
}

type memItem struct {
	val []byte
	exp time.Time
}

// NewCache uses Redis when client is non-nil and a bounded in-process map
// otherwise.
func NewCache(client *redis.Client, maxEntries int) Cache {
	if client == nil {
		return NewMemoryCache(maxEntries)
	}
	return &RedisCache{client: client}
}

// NewRedisClient parses url and pings the server before returning.
func NewRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func NewMemoryCache(maxEntries int) *MemoryCache {
	return &MemoryCache{
		items:      make(map[string]memItem),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (r *RedisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, val, ttl).Err()
}

// Sweep is a no-op: Redis expires keys itself.
func (r *RedisCache) Sweep(context.Context) int { return 0 }

func (r *RedisCache) Backend() string { return "redis" }

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[key]
	if !ok {
		return nil, false
	}
	if !it.exp.IsZero() && !m.now().Before(it.exp) {
		return nil, false
	}
	return it.val, true
}

func (m *MemoryCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	exp := time.Time{}
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	if _, exists := m.items[key]; !exists && m.maxEntries > 0 && len(m.items) >= m.maxEntries {
		m.evictLocked(now)
	}
	m.items[key] = memItem{val: val, exp: exp}
	return nil
}

// Sweep drops expired entries and reports how many were removed.
func (m *MemoryCache) Sweep(context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for key, it := range m.items {
		if !it.exp.IsZero() && !now.Before(it.exp) {
			delete(m.items, key)
			removed++
		}
	}
	return removed
}

func (m *MemoryCache) Backend() string { return "memory" }

func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// evictLocked frees one slot: an expired entry if there is one, otherwise
// the entry closest to expiry. Entries without a TTL go last.
func (m *MemoryCache) evictLocked(now time.Time) {
	victim := ""
	var victimExp time.Time
	for key, it := range m.items {
		if !it.exp.IsZero() && !now.Before(it.exp) {
			delete(m.items, key)
			return
		}
		if victim == "" || earlierExpiry(it.exp, victimExp) {
			victim = key
			victimExp = it.exp
		}
	}
	if victim != "" {
		delete(m.items, victim)
	}
}

func earlierExpiry(a, b time.Time) bool {
	if a.IsZero() {
		return false
	}
	if b.IsZero() {
		return true
	}
	return a.Before(b)
}
