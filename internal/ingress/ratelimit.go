package ingress

import (
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// RateLimiter caps messages per user in fixed one-hour windows. Counters for
// windows that have ended are dropped by Prune.
type RateLimiter struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu       sync.Mutex
	counters map[string]*window
}

// NewRateLimiter returns a limiter allowing perHour messages per user. A
// non-positive perHour disables limiting.
func NewRateLimiter(perHour int, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		limit:    perHour,
		period:   time.Hour,
		now:      now,
		counters: make(map[string]*window),
	}
}

func (r *RateLimiter) Allow(userID string) bool {
	if r == nil || r.limit <= 0 {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	w, ok := r.counters[userID]
	if !ok || now.Sub(w.start) >= r.period {
		w = &window{start: now}
		r.counters[userID] = w
	}
	if w.count >= r.limit {
		return false
	}
	w.count++
	return true
}

// Prune drops counters whose window has ended and returns how many went.
func (r *RateLimiter) Prune() int {
	if r == nil {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	count := 0
	for user, w := range r.counters {
		if now.Sub(w.start) >= r.period {
			delete(r.counters, user)
			count++
		}
	}
	return count
}

func (r *RateLimiter) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.counters)
}
