// Package server throttles inbound frames per connection so a single client
// cannot flood its room.
package server

import (
	"time"

	"golang.org/x/time/rate"
)

type rateLimiter struct {
	limiter *rate.Limiter
}

// newRateLimiter allows bursts of capacity frames, refilled at capacity
// frames per interval.
func newRateLimiter(capacity int, interval time.Duration) *rateLimiter {
	if capacity <= 0 {
		capacity = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	limit := rate.Limit(float64(capacity) / interval.Seconds())
	return &rateLimiter{limiter: rate.NewLimiter(limit, capacity)}
}

func (rl *rateLimiter) allow() bool {
	return rl.limiter.Allow()
}
