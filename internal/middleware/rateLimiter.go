package middleware

import (
	"sync"
	"time"
)

// RateLimiter is a small token bucket used to cap inbound frames per
// connection. One token per frame; tokens refill at one per rate interval
// up to the burst size.
type RateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	burst    float64
	rate     time.Duration
	lastTick time.Time
}

func NewRatelimiter(burst int32, rate time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:   float64(burst),
		burst:    float64(burst),
		rate:     rate,
		lastTick: time.Now(),
	}
}

func (l *RateLimiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(l.lastTick)
	l.lastTick = now

	l.tokens += float64(elapsed) / float64(l.rate)
	if l.tokens > l.burst {
		l.tokens = l.burst
	}

	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}
