package middleware

import (
	"net/http"
	"sync"
	"time"

	"farmgate-api/pkg/apierror"
)

// RateLimiter is a fixed-window counter keyed by client IP. Windows are
// swept by a background goroutine; a stale window is also discarded lazily
// on read so correctness does not depend on sweep timing.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow

	limit    int
	window   time.Duration
	stop     chan struct{}
	stopOnce sync.Once

	// onLimited is invoked once per rejected request, for metrics.
	onLimited func()
}

type rateWindow struct {
	count   int
	startAt time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window.
func NewRateLimiter(limit int, window time.Duration, onLimited func()) *RateLimiter {
	rl := &RateLimiter{
		windows:   make(map[string]*rateWindow),
		limit:     limit,
		window:    window,
		stop:      make(chan struct{}),
		onLimited: onLimited,
	}

	go rl.sweep()

	return rl
}

// Allow reports whether a request from key fits in the current window.
func (rl *RateLimiter) Allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	win, ok := rl.windows[key]
	if !ok || now.Sub(win.startAt) >= rl.window {
		rl.windows[key] = &rateWindow{count: 1, startAt: now}
		return true
	}

	if win.count >= rl.limit {
		return false
	}

	win.count++
	return true
}

// Handler wraps an HTTP handler chain with the limiter.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(ClientIP(r)) {
			if rl.onLimited != nil {
				rl.onLimited()
			}
			writeError(w, apierror.TooManyRequests(""))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Close stops the background sweep.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() {
		close(rl.stop)
	})
}

// sweep periodically removes windows that ended long enough ago that they
// can no longer affect any decision.
func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-rl.window)
			rl.mu.Lock()
			for key, win := range rl.windows {
				if win.startAt.Before(cutoff) {
					delete(rl.windows, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stop:
			return
		}
	}
}
