package middleware

import (
	"sync"
	"time"

	"github.com/RussellLuo/slidingwindow"
)

// SlidingWindowLimiter implements the report service's RateLimiter
// interface with one sliding window per key.
type SlidingWindowLimiter struct {
	mu       sync.Mutex
	limiters map[string]*slidingwindow.Limiter
	window   time.Duration
	limit    int64
}

// NewSlidingWindowLimiter allows limit events per window per key.
func NewSlidingWindowLimiter(window time.Duration, limit int64) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		limiters: make(map[string]*slidingwindow.Limiter),
		window:   window,
		limit:    limit,
	}
}

func (l *SlidingWindowLimiter) Allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim, _ = slidingwindow.NewLimiter(l.window, l.limit, func() (slidingwindow.Window, slidingwindow.StopFunc) {
			return slidingwindow.NewLocalWindow()
		})
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
