package api

import (
	"sync"
	"time"
)

// rateLimiter is a per-client token bucket: capacity tokens refilled
// continuously over the window.
type rateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	capacity  float64
	refill    float64 // tokens per second
	idle      time.Duration
	lastPrune time.Time
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

func newRateLimiter(capacity int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		buckets:   map[string]*bucket{},
		capacity:  float64(capacity),
		refill:    float64(capacity) / window.Seconds(),
		idle:      window,
		lastPrune: time.Now(),
	}
}

// allow consumes one token for the client if available. At most once per
// window it also prunes idle buckets, so the map stays bounded by the set of
// recently active clients.
func (l *rateLimiter) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastPrune) >= l.idle {
		l.pruneLocked(now)
		l.lastPrune = now
	}

	b, ok := l.buckets[client]
	if !ok {
		b = &bucket{tokens: l.capacity, lastRefill: now}
		l.buckets[client] = b
	}

	b.tokens += now.Sub(b.lastRefill).Seconds() * l.refill
	if b.tokens > l.capacity {
		b.tokens = l.capacity
	}
	b.lastRefill = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// pruneLocked drops buckets idle long enough to have refilled completely.
func (l *rateLimiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-l.idle)
	for client, b := range l.buckets {
		if b.lastRefill.Before(cutoff) {
			delete(l.buckets, client)
		}
	}
}
