package api

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-Id"

// RequestID returns the request ID stored in ctx, if any
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestIDMiddleware reuses the caller's request ID or mints a new one
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, reqID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, reqID)))
	})
}

// limiterIdleTTL is how long a client's bucket survives without requests.
// Buckets idle that long are full again.
const limiterIdleTTL = 10 * time.Minute

// rateLimiter hands out one token bucket per client IP
type rateLimiter struct {
	rps       int
	burst     int
	limiters  map[string]*clientLimiter
	lastPrune time.Time
	now       func() time.Time
	mu        sync.Mutex
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiter(rps, burst int) *rateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &rateLimiter{
		rps:       rps,
		burst:     burst,
		limiters:  make(map[string]*clientLimiter),
		lastPrune: time.Now(),
		now:       time.Now,
	}
}

func (l *rateLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPrune) >= limiterIdleTTL {
		l.pruneLocked(now)
	}

	if c, ok := l.limiters[key]; ok {
		c.lastSeen = now
		return c.limiter
	}
	lim := rate.NewLimiter(rate.Every(time.Second/time.Duration(l.rps)), l.burst)
	l.limiters[key] = &clientLimiter{limiter: lim, lastSeen: now}
	return lim
}

// pruneLocked drops the buckets of clients idle for limiterIdleTTL
func (l *rateLimiter) pruneLocked(now time.Time) {
	for key, c := range l.limiters {
		if now.Sub(c.lastSeen) >= limiterIdleTTL {
			delete(l.limiters, key)
		}
	}
	l.lastPrune = now
}

func (l *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.get(clientIP(r)).Allow() {
			respondError(w, http.StatusTooManyRequests, "Too many requests. Please slow down.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
