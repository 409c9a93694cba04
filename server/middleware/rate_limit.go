// Package middleware holds HTTP middleware shared by the API routes.
package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/hrygo/docinsight/plugin/ai/cache"
	aierrors "github.com/hrygo/docinsight/server/internal/errors"
)

const (
	// DefaultRate is the steady request rate allowed per client.
	DefaultRate = 10
	// DefaultBurst is the burst size allowed per client.
	DefaultBurst = 20

	maxTrackedClients = 10000
	clientIdleTTL     = 10 * time.Minute
)

// RateLimiter provides per-key rate limiting. Idle keys are forgotten.
type RateLimiter struct {
	limit  rate.Limit
	burst  int
	limits *cache.LRU[string, *rate.Limiter]
}

// NewRateLimiter creates a new rate limiter allowing rps requests per second
// per key with the given burst. Non-positive values use the defaults.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		rps = DefaultRate
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &RateLimiter{
		limit:  rate.Limit(rps),
		burst:  burst,
		limits: cache.NewLRU[string, *rate.Limiter](maxTrackedClients, clientIdleTTL),
	}
}

// getLimiter gets or creates a limiter for the given key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := rl.limits.Get(key); ok {
		return limiter
	}
	limiter := rate.NewLimiter(rl.limit, rl.burst)
	if rl.limits.Add(key, limiter) {
		return limiter
	}
	// Lost a race with another request for the same key.
	if existing, ok := rl.limits.Get(key); ok {
		return existing
	}
	return limiter
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Middleware rejects requests over the per-client-IP limit. reject renders
// the RATE_LIMIT_EXCEEDED error; when nil a bare 429 is returned.
func (rl *RateLimiter) Middleware(reject func(echo.Context, error) error) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.Allow(c.RealIP()) {
				err := aierrors.RateLimitExceeded("too many requests")
				if reject == nil {
					return echo.NewHTTPError(http.StatusTooManyRequests, err.Message)
				}
				return reject(c, err)
			}
			return next(c)
		}
	}
}
