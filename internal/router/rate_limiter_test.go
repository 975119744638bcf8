package router

import (
	"testing"
	"time"
)

func TestRateLimiter_AllowsUpToLimit(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < rateLimitMax; i++ {
		if !rl.Allow("user1") {
			t.Fatalf("Post %d must be allowed", i+1)
		}
	}

	if rl.Allow("user1") {
		t.Error("Post beyond the window limit must be denied")
	}
}

func TestRateLimiter_UsersAreIndependent(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < rateLimitMax; i++ {
		if !rl.Allow("user1") {
			t.Fatalf("Post %d must be allowed", i+1)
		}
	}

	if !rl.Allow("user2") {
		t.Error("Another user's quota must be untouched")
	}
}

func TestRateLimiter_SweepsStaleEntries(t *testing.T) {
	rl := NewRateLimiter()
	rl.Allow("active")

	// A user whose window expired long ago, with the sweep clock overdue.
	rl.mu.Lock()
	rl.users["ghost"] = &userLimit{count: 1, windowStart: time.Now().Add(-2 * rateLimitRetention)}
	rl.lastSweep = time.Now().Add(-2 * rateLimitWindow)
	rl.mu.Unlock()

	rl.Allow("active")

	rl.mu.Lock()
	_, ghostKept := rl.users["ghost"]
	_, activeKept := rl.users["active"]
	rl.mu.Unlock()

	if ghostKept {
		t.Error("Stale entry must be swept on the next Allow")
	}
	if !activeKept {
		t.Error("Entries within retention must survive the sweep")
	}
}
