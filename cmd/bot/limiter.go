package main

import (
	"sync"

	"golang.org/x/time/rate"
)

// userLimiters rate limits ticket creation per user. Limiters are created
// lazily and never expire; the population is bounded by the guild size.
type userLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	limit rate.Limit
	burst int
}

func newUserLimiters(limit rate.Limit, burst int) *userLimiters {
	return &userLimiters{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// Allow reports whether the user may attempt a creation now.
func (u *userLimiters) Allow(userID string) bool {
	u.mu.Lock()
	l, ok := u.limiters[userID]
	if !ok {
		l = rate.NewLimiter(u.limit, u.burst)
		u.limiters[userID] = l
	}
	u.mu.Unlock()

	return l.Allow()
}
