// Package ratelimit throttles requests per client with token buckets from
// golang.org/x/time/rate. Buckets idle for longer than the idle timeout
// are swept so the table does not grow without bound.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultIdleTimeout   = 10 * time.Minute
	DefaultSweepInterval = time.Minute
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

type Limiter struct {
	now         func() time.Time
	limit       rate.Limit
	burst       int
	idleTimeout time.Duration
	mutex       sync.Mutex
	clients     map[string]*client
}

// New allows perMinute events per client with bursts of up to burst.
func New(perMinute float64, burst int, opts ...Option) *Limiter {
	l := &Limiter{
		now:         time.Now,
		limit:       rate.Limit(perMinute / 60),
		burst:       burst,
		idleTimeout: DefaultIdleTimeout,
		clients:     make(map[string]*client),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

func WithNow(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

func WithIdleTimeout(d time.Duration) Option {
	return func(l *Limiter) {
		l.idleTimeout = d
	}
}

// Allow reports whether key may perform one more event now.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mutex.Lock()
	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	l.mutex.Unlock()

	return c.limiter.AllowN(now, 1)
}

// Sweep drops clients not seen within the idle timeout and returns how
// many were removed.
func (l *Limiter) Sweep() int {
	cutoff := l.now().Add(-l.idleTimeout)

	l.mutex.Lock()
	defer l.mutex.Unlock()

	removed := 0
	for key, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

func (l *Limiter) Len() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return len(l.clients)
}

// Run sweeps on every tick until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Middleware rejects requests over the limit with 429. key extracts the
// client identity from the request.
func (l *Limiter) Middleware(key func(*http.Request) string) func(http.Handler) http.Handler {
	retryAfter := "60"
	if l.limit > 0 {
		retryAfter = strconv.Itoa(int(time.Duration(float64(time.Second)/float64(l.limit)).Seconds()) + 1)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(key(r)) {
				w.Header().Set("Retry-After", retryAfter)
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
