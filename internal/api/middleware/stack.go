// SPDX-License-Identifier: MIT

package middleware

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/chatrelay/internal/log"
)

// StackConfig configures the canonical HTTP ingress middleware stack.
type StackConfig struct {
	AllowedOrigins []string
	CSP            string

	EnableMetrics  bool
	TracingService string // empty disables tracing
	EnableLogging  bool

	RateLimitEnabled bool
	RateLimitPerMin  int
	RateLimitExempt  []string
}

// ApplyStack applies the canonical middleware stack to r. WebSocket routes
// must not go through this stack: the logging and metrics writers do not
// implement http.Hijacker.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(CORS(cfg.AllowedOrigins))
	r.Use(SecurityHeaders(cfg.CSP))
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	if cfg.TracingService != "" {
		r.Use(Tracing(cfg.TracingService))
	}
	if cfg.EnableLogging {
		r.Use(log.Middleware())
	}
	if cfg.RateLimitEnabled {
		r.Use(RateLimit(RateLimitConfig{
			RequestLimit: cfg.RateLimitPerMin,
			WindowSize:   time.Minute,
			Whitelist:    cfg.RateLimitExempt,
		}))
	}
}
