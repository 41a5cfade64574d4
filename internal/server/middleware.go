package server

import (
	"sync"
	"time"
)

// RateLimiter implements per-connection rate limiting using a sliding
// window algorithm.
type RateLimiter struct {
	maxRequests int                    // Maximum requests allowed per window
	window      time.Duration          // Time window for rate limiting
	requests    map[string][]time.Time // connectionID -> timestamps of recent requests
	mu          sync.Mutex
}

// NewRateLimiter creates a new rate limiter
// maxRequests: number of requests allowed per window
// window: duration of the sliding window (e.g., 1 second for 10 req/sec)
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		requests:    make(map[string][]time.Time),
	}
}

// Allow checks if a connection is allowed to send a message.
// Returns true if allowed, false if rate limited.
func (r *RateLimiter) Allow(connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	timestamps := r.requests[connectionID]

	// Remove timestamps outside the window
	validTimestamps := make([]time.Time, 0, len(timestamps))
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			validTimestamps = append(validTimestamps, ts)
		}
	}

	if len(validTimestamps) >= r.maxRequests {
		r.requests[connectionID] = validTimestamps
		return false
	}

	validTimestamps = append(validTimestamps, now)
	r.requests[connectionID] = validTimestamps
	return true
}

// Cleanup removes old connection data to prevent memory leaks.
// Should be called periodically or when connections close.
func (r *RateLimiter) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	for connID, timestamps := range r.requests {
		allOld := true
		for _, ts := range timestamps {
			if ts.After(cutoff) {
				allOld = false
				break
			}
		}
		if allOld {
			delete(r.requests, connID)
		}
	}
}

// RemoveConnection immediately removes rate limit data for a connection.
// Should be called when a websocket disconnects.
func (r *RateLimiter) RemoveConnection(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.requests, connectionID)
}
