package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL      = 3 * time.Minute
	limiterCleanupEvery = time.Minute
)

// UserRateLimiter keeps one token bucket per signed-in user
type UserRateLimiter struct {
	users map[string]*visitor
	mu    sync.Mutex
	r     rate.Limit
	b     int
	now   func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewUserRateLimiter creates a limiter allowing r requests per second with bursts of b
func NewUserRateLimiter(r rate.Limit, b int) *UserRateLimiter {
	return &UserRateLimiter{
		users: make(map[string]*visitor),
		r:     r,
		b:     b,
		now:   time.Now,
	}
}

// GetLimiter returns the bucket of key, creating it on first use
func (l *UserRateLimiter) GetLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, exists := l.users[key]
	if !exists {
		limiter := rate.NewLimiter(l.r, l.b)
		l.users[key] = &visitor{limiter: limiter, lastSeen: l.now()}
		return limiter
	}
	v.lastSeen = l.now()
	return v.limiter
}

// Cleanup drops buckets idle for longer than the TTL
func (l *UserRateLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, v := range l.users {
		if l.now().Sub(v.lastSeen) > limiterIdleTTL {
			delete(l.users, key)
		}
	}
}

// Run calls Cleanup every minute until stop is closed
func (l *UserRateLimiter) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(limiterCleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}

// Len returns the number of tracked users
func (l *UserRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}

// RateLimitMiddleware limits write requests per user. Reads and streams
// pass through. Requests without a session are keyed by remote address.
func RateLimitMiddleware(limiter *UserRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			key := r.RemoteAddr
			if session, ok := SessionFromContext(r.Context()); ok {
				key = session.UserID
			}
			if !limiter.GetLimiter(key).Allow() {
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
