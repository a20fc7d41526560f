// Package ratelimit provides an in-process token bucket limiter keyed by client.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultCleanupInterval = 5 * time.Minute
	defaultIdleTTL         = 15 * time.Minute
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// TokenBucket allows perMinute requests per key with the given burst. Idle keys
// are evicted by a janitor goroutine that runs until Close is called.
type TokenBucket struct {
	mu       sync.Mutex
	limiters map[string]*entry
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time

	stop      chan struct{}
	closeOnce sync.Once
}

// NewTokenBucket starts a limiter. A perMinute of zero disables limiting.
func NewTokenBucket(perMinute, burst int) *TokenBucket {
	return newTokenBucket(perMinute, burst, defaultCleanupInterval, defaultIdleTTL)
}

func newTokenBucket(perMinute, burst int, cleanupInterval, idleTTL time.Duration) *TokenBucket {
	if burst <= 0 {
		burst = perMinute
	}
	tb := &TokenBucket{
		limiters: make(map[string]*entry),
		burst:    burst,
		idleTTL:  idleTTL,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	if perMinute > 0 {
		tb.limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	go tb.cleanupLoop(cleanupInterval)
	return tb
}

// Allow reports whether a request for key may proceed now.
func (tb *TokenBucket) Allow(key string) bool {
	if tb.limit == 0 {
		return true
	}

	tb.mu.Lock()
	e, ok := tb.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(tb.limit, tb.burst)}
		tb.limiters[key] = e
	}
	e.lastSeen = tb.now()
	tb.mu.Unlock()

	return e.limiter.Allow()
}

// RetryAfter is the time until one token is available again.
func (tb *TokenBucket) RetryAfter() time.Duration {
	if tb.limit == 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(tb.limit))
}

// Close stops the janitor. It is safe to call more than once.
func (tb *TokenBucket) Close() {
	tb.closeOnce.Do(func() { close(tb.stop) })
}

func (tb *TokenBucket) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			tb.cleanup()
		case <-tb.stop:
			return
		}
	}
}

func (tb *TokenBucket) cleanup() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	now := tb.now()
	for key, e := range tb.limiters {
		if now.Sub(e.lastSeen) > tb.idleTTL {
			delete(tb.limiters, key)
		}
	}
}

func (tb *TokenBucket) size() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return len(tb.limiters)
}
