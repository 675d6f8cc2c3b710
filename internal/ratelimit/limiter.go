// Package ratelimit admits or rejects requests per client identifier using a
// fixed time window.
package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultLimit is the number of admissions per identifier per window.
	DefaultLimit = 30
	// DefaultWindow is the fixed admission window.
	DefaultWindow = time.Minute
)

// Config controls the limiter. Zero values fall back to the defaults above.
// When RedisAddr is set the window state lives in Redis so gateway replicas
// share one budget; otherwise it lives in process memory.
type Config struct {
	Limit         int
	Window        time.Duration
	RedisAddr     string
	RedisUsername string
	RedisPassword string
	RedisTimeout  time.Duration
	KeyPrefix     string
}

// Limiter answers whether a request from an identifier may proceed. RetryAfter
// is a hint for the Retry-After header when the request is rejected.
type Limiter interface {
	Allow(identifier string) (ok bool, retryAfter time.Duration, err error)
}

type store interface {
	take(key string, limit int, window time.Duration) (ok bool, retryAfter time.Duration, err error)
}

type limiter struct {
	limit  int
	window time.Duration
	prefix string
	store  store
}

// New builds a limiter from the configuration.
func New(cfg Config) Limiter {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "wavegate:stream"
	}
	l := &limiter{limit: cfg.Limit, window: cfg.Window, prefix: prefix}
	if cfg.RedisAddr != "" {
		timeout := cfg.RedisTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		l.store = newRedisStore(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, timeout)
	} else {
		l.store = newMemoryStore(time.Now)
	}
	return l
}

func (l *limiter) Allow(identifier string) (bool, time.Duration, error) {
	if identifier == "" {
		identifier = "unknown"
	}
	return l.store.take(l.prefix+":"+identifier, l.limit, l.window)
}

type windowEntry struct {
	count         int
	windowResetAt time.Time
}

// memoryStore keeps one fixed window per key. Entries expire lazily: a stale
// entry is replaced on the next request, and a sweep during writes bounds the
// map when many identifiers come and go.
type memoryStore struct {
	now func() time.Time

	mu      sync.Mutex
	entries map[string]windowEntry
}

// memorySweepThreshold triggers a sweep of expired windows during writes.
const memorySweepThreshold = 8192

func newMemoryStore(now func() time.Time) *memoryStore {
	return &memoryStore{now: now, entries: make(map[string]windowEntry)}
}

func (s *memoryStore) take(key string, limit int, window time.Duration) (bool, time.Duration, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || now.After(entry.windowResetAt) {
		if len(s.entries) >= memorySweepThreshold {
			s.sweepLocked(now)
		}
		s.entries[key] = windowEntry{count: 1, windowResetAt: now.Add(window)}
		return true, 0, nil
	}
	if entry.count < limit {
		entry.count++
		s.entries[key] = entry
		return true, 0, nil
	}
	return false, entry.windowResetAt.Sub(now), nil
}

func (s *memoryStore) sweepLocked(now time.Time) {
	for key, entry := range s.entries {
		if now.After(entry.windowResetAt) {
			delete(s.entries, key)
		}
	}
}
