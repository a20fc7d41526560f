package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	h "eventease/internal/delivery/http/helpers"
)

// Limiter decides whether a client identified by key may make another request.
// The token bucket in adapters/ratelimit implements it; a distributed limiter can too.
type Limiter interface {
	Allow(key string) bool
	RetryAfter() time.Duration
}

var rateLimitExempt = map[string]struct{}{
	"/healthz": {},
	"/metrics": {},
}

// RateLimit rejects requests over the client's budget with 429 and a
// Retry-After header. Health and metrics probes are never limited.
func RateLimit(limiter Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, skip := rateLimitExempt[r.URL.Path]; skip || limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		if !limiter.Allow(ClientIP(r)) {
			seconds := int(math.Ceil(limiter.RetryAfter().Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(max(seconds, 1)))
			h.WriteJSONError(w, http.StatusTooManyRequests, h.ErrCodeTooManyRequests, "rate limit exceeded, try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the remote address host of r.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
