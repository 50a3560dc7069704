// SPDX-License-Identifier: MIT

package middleware

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig configures request throttling.
type RateLimitConfig struct {
	// RequestLimit is the maximum number of requests per window.
	RequestLimit int
	// WindowSize is the sliding window length.
	WindowSize time.Duration
	// Whitelist lists client IPs exempt from throttling.
	Whitelist []string
}

// RateLimit throttles per client IP using a sliding window counter.
// Whitelisted IPs bypass the limiter entirely.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	exempt := make(map[string]bool, len(cfg.Whitelist))
	for _, ip := range cfg.Whitelist {
		exempt[ip] = true
	}

	limiter := httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowSize,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(cfg.WindowSize.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded","detail":"Too many requests. Please try again later."}`))
		}),
	)

	return func(next http.Handler) http.Handler {
		limited := limiter(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(exempt) > 0 {
				if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && exempt[host] {
					next.ServeHTTP(w, r)
					return
				}
			}
			limited.ServeHTTP(w, r)
		})
	}
}
