// Package ratelimit provides the in-memory token-bucket limiter applied
// per user on the AI generation endpoints. Score reads are not limited;
// only operations that can trigger generator invocations are.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a single token-bucket rate limiter.
type Limiter struct {
	mu         sync.Mutex
	rate       float64 // tokens added per second
	burst      float64 // maximum token capacity
	tokens     float64 // current token count
	lastRefill time.Time
}

// New creates a Limiter allowing ratePerSecond requests/s with a burst capacity.
// If burst <= 0, it defaults to ratePerSecond (no extra burst).
func New(ratePerSecond, burst float64) *Limiter {
	if burst <= 0 {
		burst = ratePerSecond
	}
	return &Limiter{
		rate:       ratePerSecond,
		burst:      burst,
		tokens:     burst,
		lastRefill: time.Now(),
	}
}

// Allow consumes one token and returns true if the request is permitted.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(l.lastRefill).Seconds()
	l.tokens += elapsed * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.lastRefill = now

	if l.tokens >= 1.0 {
		l.tokens--
		return true
	}
	return false
}

// PerUser maintains one Limiter per user ID.
type PerUser struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
	rate     float64
	burst    float64
}

// NewPerUser creates a PerUser store allowing perMinute requests per
// minute for each user, with a burst of the same size. perMinute <= 0
// disables limiting (Allow always returns true).
func NewPerUser(perMinute int) *PerUser {
	return &PerUser{
		limiters: make(map[string]*Limiter),
		rate:     float64(perMinute) / 60.0,
		burst:    float64(perMinute),
	}
}

// Allow checks (and creates if needed) the limiter for userID.
func (s *PerUser) Allow(userID string) bool {
	if s.rate <= 0 {
		return true
	}

	// Fast path — limiter already exists.
	s.mu.RLock()
	l, ok := s.limiters[userID]
	s.mu.RUnlock()
	if ok {
		return l.Allow()
	}

	// Slow path — create new limiter.
	s.mu.Lock()
	defer s.mu.Unlock()
	// Double-check after acquiring write lock.
	if l, ok = s.limiters[userID]; ok {
		return l.Allow()
	}
	l = New(s.rate, s.burst)
	s.limiters[userID] = l
	return l.Allow()
}
