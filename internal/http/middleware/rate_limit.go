package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/diagnosis/quickstay/internal/http/response"
	"github.com/diagnosis/quickstay/pkg/logger"
)

// Limiter counts hits against a key inside a fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimitConfig defines rate limiting parameters
type RateLimitConfig struct {
	Requests int                            // Max requests per window
	Window   time.Duration                  // Time window duration
	Scope    string                         // Prefix that separates independent limits
	KeyFunc  func(r *http.Request) []string // Function to generate rate limit keys
	SkipFunc func(r *http.Request) bool     // Function to skip rate limiting

	// TrustProxyHeaders keys the default limit on X-Forwarded-For/X-Real-IP.
	// Only enable it behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
}

// RateLimiter provides rate limiting functionality
type RateLimiter struct {
	limiter Limiter
	config  RateLimitConfig
}

// NewRateLimiter creates a new rate limiter. KeyFunc defaults to the peer IP,
// or the forwarded client IP when TrustProxyHeaders is set.
func NewRateLimiter(limiter Limiter, config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = ClientIPKeyFunc
		if config.TrustProxyHeaders {
			config.KeyFunc = ForwardedIPKeyFunc
		}
	}
	return &RateLimiter{limiter: limiter, config: config}
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.config.SkipFunc != nil && rl.config.SkipFunc(r) {
				next.ServeHTTP(w, r)
				return
			}

			for _, key := range rl.config.KeyFunc(r) {
				allowed, err := rl.limiter.Allow(r.Context(), rl.config.Scope+":"+key, rl.config.Requests, rl.config.Window)
				if err != nil {
					// fail open
					logger.WarnContext(r.Context(), "Rate limit check failed", "error", err)
				}
				if !allowed {
					w.Header().Set("Retry-After", retryAfter(rl.config.Window))
					response.RateLimit(w, "Too many requests. Try again later.")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func retryAfter(window time.Duration) string {
	secs := int(window.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// ClientIPKeyFunc limits by the address of the connected peer.
func ClientIPKeyFunc(r *http.Request) []string {
	return ipKey(peerIP(r))
}

// ForwardedIPKeyFunc limits by the client IP reported by a trusted proxy.
func ForwardedIPKeyFunc(r *http.Request) []string {
	return ipKey(forwardedIP(r))
}

func ipKey(ip string) []string {
	if ip == "" {
		return nil
	}
	return []string{"ip:" + ip}
}

func peerIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// forwardedIP reads the proxy headers and falls back to the peer address.
func forwardedIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take the first IP if there are multiple
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	return peerIP(r)
}
