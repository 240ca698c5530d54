package server

import (
	"sync"
	"time"
)

// rateLimiter is an in-process sliding-window limiter keyed by caller. The
// polling endpoints fan out to the provider API, so they are capped per
// client instead of relying on provider-side 429s.
type rateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string][]time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:  limit,
		window: window,
		hits:   map[string][]time.Time{},
	}
}

func (rl *rateLimiter) Allow(key string) bool {
	if rl == nil || key == "" {
		return true
	}

	now := time.Now()
	cutoff := now.Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	recent := rl.hits[key][:0]
	for _, at := range rl.hits[key] {
		if at.After(cutoff) {
			recent = append(recent, at)
		}
	}

	if len(recent) >= rl.limit {
		rl.hits[key] = recent
		return false
	}

	rl.hits[key] = append(recent, now)
	return true
}
