package router

import (
	"sync"
	"time"
)

// Posts allowed per user per window, and how long stale per-user state is
// retained before being swept.
const (
	rateLimitWindow    = time.Minute
	rateLimitMax       = 100
	rateLimitRetention = 5 * rateLimitWindow
)

// RateLimiter tracks per-user post rates over a fixed window. Stale state
// is swept opportunistically from Allow, at most once per window, so the
// map stays bounded over a long-lived process without a dedicated timer.
type RateLimiter struct {
	mu        sync.Mutex
	users     map[string]*userLimit
	lastSweep time.Time
}

type userLimit struct {
	count       int
	windowStart time.Time
}

// NewRateLimiter creates a rate limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		users:     make(map[string]*userLimit),
		lastSweep: time.Now(),
	}
}

// Allow reports whether userID may post another message.
func (rl *RateLimiter) Allow(userID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	if now.Sub(rl.lastSweep) >= rateLimitWindow {
		rl.sweepLocked(now)
	}

	limit, ok := rl.users[userID]
	if !ok || now.Sub(limit.windowStart) >= rateLimitWindow {
		rl.users[userID] = &userLimit{count: 1, windowStart: now}
		return true
	}

	if limit.count >= rateLimitMax {
		return false
	}

	limit.count++
	return true
}

// sweepLocked drops per-user state past the retention horizon. Caller
// holds rl.mu.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	rl.lastSweep = now
	for userID, limit := range rl.users {
		if now.Sub(limit.windowStart) > rateLimitRetention {
			delete(rl.users, userID)
		}
	}
}
