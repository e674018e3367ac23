package middleware

import (
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/brightsmile-dental/clinic-platform/internal/apperr"
	"github.com/brightsmile-dental/clinic-platform/internal/httpx"
	"github.com/brightsmile-dental/clinic-platform/pkg/logging"
)

// ErrTooManyRequests is the tagged error behind every 429 response.
var ErrTooManyRequests = apperr.New(apperr.KindRateLimited, "too many requests, slow down")

// visitor is one client's token bucket.
type visitor struct {
	tokens float64
	seen   time.Time
}

// RateLimiter spends one token per request from a per-client bucket refilled
// at perSec up to burst. Idle clients are swept inline during Allow, so the
// limiter holds no background goroutine.
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	perSec    float64
	burst     float64
	idleTTL   time.Duration
	lastSweep time.Time
	logger    *logging.Logger
}

// NewRateLimiter creates a limiter allowing perSec requests per second with
// the given burst per client. idleTTL bounds how long an idle client's
// bucket is kept; zero falls back to ten minutes.
func NewRateLimiter(perSec float64, burst int, idleTTL time.Duration, logger *logging.Logger) *RateLimiter {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RateLimiter{
		visitors:  make(map[string]*visitor),
		perSec:    perSec,
		burst:     float64(burst),
		idleTTL:   idleTTL,
		lastSweep: time.Now(),
		logger:    logger,
	}
}

// Allow refills addr's bucket for the elapsed time and spends one token.
func (rl *RateLimiter) Allow(addr string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= rl.idleTTL {
		rl.sweepLocked(now)
	}

	v, ok := rl.visitors[addr]
	if !ok {
		rl.visitors[addr] = &visitor{tokens: rl.burst - 1, seen: now}
		return true
	}

	v.tokens = math.Min(rl.burst, v.tokens+now.Sub(v.seen).Seconds()*rl.perSec)
	v.seen = now
	if v.tokens < 1 {
		return false
	}
	v.tokens--
	return true
}

// sweepLocked drops buckets idle for longer than the TTL. Callers hold mu.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	evicted := 0
	for addr, v := range rl.visitors {
		if now.Sub(v.seen) > rl.idleTTL {
			delete(rl.visitors, addr)
			evicted++
		}
	}
	rl.lastSweep = now
	if evicted > 0 {
		rl.logger.Debug("rate limiter swept idle clients", "evicted", evicted, "tracked", len(rl.visitors))
	}
}

// Middleware rejects over-budget requests with the shared error body.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr := clientAddr(r)
		if !rl.Allow(addr) {
			rl.logger.Warn("request rate limited", "remote_ip", addr, "path", r.URL.Path)
			httpx.WriteError(w, ErrTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit builds a per-client limiting middleware.
func RateLimit(perSec float64, burst int, idleTTL time.Duration, logger *logging.Logger) func(http.Handler) http.Handler {
	return NewRateLimiter(perSec, burst, idleTTL, logger).Middleware
}

// clientAddr keys the bucket by client IP. chi's RealIP middleware runs
// earlier in the chain and rewrites RemoteAddr from the proxy headers.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
