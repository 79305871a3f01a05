package ratelimit

import (
	"sync"
	"time"
)

// Limiter decides whether a request identified by key may proceed
type Limiter interface {
	Allow(key string) bool
	Reset(key string)
}

// SlidingWindowLimiter allows at most limit requests per key within a
// rolling window. Timestamps outside the window are dropped on each
// check, so memory stays proportional to recent traffic.
type SlidingWindowLimiter struct {
	mu         sync.Mutex
	windows    map[string]*window
	limit      int
	windowSize time.Duration
}

type window struct {
	requests []time.Time
	mu       sync.Mutex
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter
func NewSlidingWindowLimiter(limit int, windowSize time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		windows:    make(map[string]*window),
		limit:      limit,
		windowSize: windowSize,
	}
}

// Allow checks if a request is allowed and records it if so
func (l *SlidingWindowLimiter) Allow(key string) bool {
	l.mu.Lock()
	w, exists := l.windows[key]
	if !exists {
		w = &window{}
		l.windows[key] = w
	}
	l.mu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-l.windowSize)

	valid := w.requests[:0]
	for _, reqTime := range w.requests {
		if reqTime.After(windowStart) {
			valid = append(valid, reqTime)
		}
	}
	w.requests = valid

	if len(w.requests) >= l.limit {
		return false
	}
	w.requests = append(w.requests, now)
	return true
}

// Reset clears the window for a key
func (l *SlidingWindowLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// IPLimiter applies a per-client-IP request rate limit
type IPLimiter struct {
	limiter Limiter
}

// NewIPLimiter creates a per-IP limiter allowing requestsPerMinute
func NewIPLimiter(requestsPerMinute int) *IPLimiter {
	return &IPLimiter{
		limiter: NewSlidingWindowLimiter(requestsPerMinute, time.Minute),
	}
}

// Allow checks if a request from an IP is allowed
func (l *IPLimiter) Allow(ip string) bool {
	return l.limiter.Allow("ip:" + ip)
}
