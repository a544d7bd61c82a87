// Package ratelimit implements a per-client sliding window rate limiter
// for the HTTP API.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Limiter tracks request timestamps per client and enforces a maximum
// number of requests inside a sliding window.
type Limiter struct {
	mu       sync.Mutex
	clients  map[string][]time.Time
	limit    int
	window   time.Duration
	stopOnce sync.Once
	stop     chan struct{}
}

// NewLimiter creates a limiter allowing limit requests per window per
// client. A background goroutine evicts idle clients.
func NewLimiter(limit int, window time.Duration) *Limiter {
	l := &Limiter{
		clients: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		stop:    make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow reports whether the client may make a request now, recording it
// if so.
func (l *Limiter) Allow(clientID string) bool {
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamps := l.clients[clientID]
	kept := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.limit {
		l.clients[clientID] = kept
		return false
	}

	l.clients[clientID] = append(kept, now)
	return true
}

// Middleware wraps a handler with rate limiting. extractIP resolves the
// client identity; limited requests get 429 with a Retry-After hint.
func (l *Limiter) Middleware(extractIP func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := extractIP(r)
			if !l.Allow(clientID) {
				w.Header().Set("Retry-After", formatSeconds(l.window))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Stop terminates the cleanup goroutine.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) cleanup() {
	cutoff := time.Now().Add(-l.window)
	l.mu.Lock()
	defer l.mu.Unlock()
	for client, timestamps := range l.clients {
		active := false
		for _, ts := range timestamps {
			if ts.After(cutoff) {
				active = true
				break
			}
		}
		if !active {
			delete(l.clients, client)
		}
	}
}

func formatSeconds(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
