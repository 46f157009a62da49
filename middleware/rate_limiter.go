// middleware/rate_limiter.go
package middleware

import (
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type RateLimiter struct {
	ips            map[string]*rate.Limiter
	blockedIPs     map[string]time.Time
	mu             *sync.RWMutex
	defaultLimit   rate.Limit
	defaultBurst   int
	blockDuration  time.Duration
	endpointLimits map[string]struct {
		limit rate.Limit
		burst int
	}
}

func NewRateLimiter() *RateLimiter {
	limiter := &RateLimiter{
		ips:           make(map[string]*rate.Limiter),
		blockedIPs:    make(map[string]time.Time),
		mu:            &sync.RWMutex{},
		defaultLimit:  rate.Every(100 * time.Millisecond), // 10 requests per second
		defaultBurst:  20,
		blockDuration: 5 * time.Minute,
		endpointLimits: make(map[string]struct {
			limit rate.Limit
			burst int
		}),
	}

	// Withdrawal creation is deliberately slow: a consultant has no reason
	// to submit more than a handful of requests per minute
	limiter.endpointLimits["/api/withdrawals"] = struct {
		limit rate.Limit
		burst int
	}{
		limit: rate.Every(2 * time.Second),
		burst: 5,
	}

	// The provider retries webhook deliveries aggressively; keep this lenient
	limiter.endpointLimits["/api/payout/webhook"] = struct {
		limit rate.Limit
		burst int
	}{
		limit: rate.Every(50 * time.Millisecond),
		burst: 50,
	}

	return limiter
}

func (rl *RateLimiter) getLimiter(ip, path string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	key := ip + ":" + path
	limiter, exists := rl.ips[key]
	if !exists {
		limit := rl.defaultLimit
		burst := rl.defaultBurst
		for prefix, endpointLimit := range rl.endpointLimits {
			if strings.HasPrefix(path, prefix) {
				limit = endpointLimit.limit
				burst = endpointLimit.burst
				break
			}
		}
		limiter = rate.NewLimiter(limit, burst)
		rl.ips[key] = limiter
	}

	return limiter
}

// RateLimit returns middleware enforcing per-IP request limits
func (rl *RateLimiter) RateLimit() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			path := c.Request().URL.Path

			rl.mu.RLock()
			blockedUntil, blocked := rl.blockedIPs[ip]
			rl.mu.RUnlock()

			if blocked {
				if time.Now().Before(blockedUntil) {
					return echo.NewHTTPError(429, "Too many requests. Try again later.")
				}
				rl.mu.Lock()
				delete(rl.blockedIPs, ip)
				rl.mu.Unlock()
			}

			limiter := rl.getLimiter(ip, path)
			if !limiter.Allow() {
				rl.mu.Lock()
				rl.blockedIPs[ip] = time.Now().Add(rl.blockDuration)
				rl.mu.Unlock()
				return echo.NewHTTPError(429, "Too many requests. Try again later.")
			}

			return next(c)
		}
	}
}
