package middleware

import (
	"fmt"
	"net/http"
	"sync"

	"docshare/internal/auth"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// KeyFunc picks the bucket a request is charged to.
type KeyFunc func(c echo.Context) string

// RateLimiter implements token bucket rate limiting per identity
type RateLimiter struct {
	limiters sync.Map // key -> *rate.Limiter
	rate     rate.Limit
	burst    int
	keyFunc  KeyFunc
}

// NewRateLimiter creates a new rate limiter
// requestsPerSecond: number of requests allowed per second
// burst: maximum burst size
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:    rate.Limit(requestsPerSecond),
		burst:   burst,
		keyFunc: IdentityKey,
	}
}

// WithKeyFunc replaces the default identity key.
func (rl *RateLimiter) WithKeyFunc(fn KeyFunc) *RateLimiter {
	rl.keyFunc = fn
	return rl
}

// getLimiter gets or creates a rate limiter for the given key
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	limiter, exists := rl.limiters.Load(key)
	if !exists {
		limiter, _ = rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rate, rl.burst))
	}
	return limiter.(*rate.Limiter)
}

// Allow checks if a request should be allowed for the given key
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Middleware returns an Echo middleware function for rate limiting
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			limiter := rl.getLimiter(rl.keyFunc(c))

			if !limiter.Allow() {
				c.Response().Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.burst))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				c.Response().Header().Set("Retry-After", "1")

				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "rate limit exceeded",
				})
			}

			tokens := int(limiter.Tokens())
			c.Response().Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.burst))
			c.Response().Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", tokens))

			return next(c)
		}
	}
}

// IdentityKey charges authenticated users by user id, share visitors by
// their share session and everyone else by IP.
func IdentityKey(c echo.Context) string {
	if auth.GetAuthType(c) == auth.AuthTypeJWT {
		if userID, err := auth.GetUserID(c); err == nil {
			return "user:" + userID.String()
		}
	}
	if session := GetShareSession(c); session != "" {
		return "session:" + session
	}
	return "ip:" + c.RealIP()
}

// PasswordAttemptKey charges password attempts per client IP and share, so
// rotating the share session cookie does not buy extra guesses.
func PasswordAttemptKey(c echo.Context) string {
	return "pw:" + c.RealIP() + ":" + c.Param("id")
}

// NewGlobalRateLimiter creates a lenient limiter for general API usage.
func NewGlobalRateLimiter() *RateLimiter {
	return NewRateLimiter(100, 200) // 100 req/sec, burst of 200
}

// NewShareRateLimiter limits public share views and downloads.
func NewShareRateLimiter() *RateLimiter {
	return NewRateLimiter(10, 30)
}

// NewPasswordRateLimiter allows a handful of password guesses, then one
// every ten seconds.
func NewPasswordRateLimiter() *RateLimiter {
	return NewRateLimiter(0.1, 5).WithKeyFunc(PasswordAttemptKey)
}
