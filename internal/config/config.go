// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads and validates the daemon configuration with the
// precedence ENV > file > defaults.
package config

import (
	"time"
)

// Config is the fully resolved daemon configuration.
type Config struct {
	// Listen is the HTTP listen address, e.g. ":8080".
	Listen string `yaml:"listen"`

	// DataDir is the base directory for persistent state.
	DataDir string `yaml:"dataDir"`

	// DBPath is the SQLite database path. Defaults to <DataDir>/chatrelay.db.
	DBPath string `yaml:"dbPath"`

	LogLevel   string `yaml:"logLevel"`
	LogService string `yaml:"logService"`

	// AuthSecret signs bearer tokens. Mandatory outside dev mode.
	AuthSecret string `yaml:"authSecret"`
	// AllowQueryToken permits ?token= authentication. WebSocket clients
	// cannot set headers from browsers, so this defaults to true.
	AllowQueryToken bool `yaml:"allowQueryToken"`
	// TokenTTL bounds minted tokens.
	TokenTTL time.Duration `yaml:"tokenTTL"`

	// Provider API keys. Usually injected via ANTHROPIC_API_KEY and
	// OPENAI_API_KEY rather than the file.
	AnthropicAPIKey string `yaml:"-"`
	OpenAIAPIKey    string `yaml:"-"`

	// Redis enables the shared response cache; empty means in-memory.
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"-"`
	RedisDB       int    `yaml:"redisDB"`

	// ResponseCacheTTL is how long identical turns are served from cache.
	ResponseCacheTTL time.Duration `yaml:"responseCacheTTL"`

	// SessionTTL is the default chat session lifetime.
	SessionTTL time.Duration `yaml:"sessionTTL"`
	// JanitorInterval drives the expiry sweep.
	JanitorInterval time.Duration `yaml:"janitorInterval"`
	// InactiveRetention is how long deactivated sessions are kept.
	InactiveRetention time.Duration `yaml:"inactiveRetention"`

	// WebSocketTimeout is the idle read deadline for streaming sockets.
	// Honors the Railway WEBSOCKET_TIMEOUT environment variable.
	WebSocketTimeout time.Duration `yaml:"webSocketTimeout"`
	// StreamChunkSize is the number of characters per stream_chunk frame.
	StreamChunkSize int `yaml:"streamChunkSize"`
	// StreamChunkDelay is the pause between stream_chunk frames.
	StreamChunkDelay time.Duration `yaml:"streamChunkDelay"`

	// AllowedOrigins restricts WebSocket and CORS origins. Empty allows all.
	AllowedOrigins []string `yaml:"allowedOrigins"`
	TrustedProxies string   `yaml:"trustedProxies"`

	RateLimitEnabled bool `yaml:"rateLimitEnabled"`
	RateLimitRPM     int  `yaml:"rateLimitRPM"`

	// Tracing
	OTELEnabled      bool    `yaml:"otelEnabled"`
	OTELExporter     string  `yaml:"otelExporter"` // "grpc" or "http"
	OTELEndpoint     string  `yaml:"otelEndpoint"`
	OTELSamplingRate float64 `yaml:"otelSamplingRate"`
	Environment      string  `yaml:"environment"`

	Version string `yaml:"-"`
}

// Defaults returns the baseline configuration before file and env merging.
func Defaults() Config {
	return Config{
		Listen:            ":8080",
		DataDir:           "/data",
		LogLevel:          "info",
		LogService:        "chatrelay",
		AllowQueryToken:   true,
		TokenTTL:          24 * time.Hour,
		ResponseCacheTTL:  30 * time.Minute,
		SessionTTL:        24 * time.Hour,
		JanitorInterval:   10 * time.Minute,
		InactiveRetention: 7 * 24 * time.Hour,
		WebSocketTimeout:  300 * time.Second,
		StreamChunkSize:   20,
		StreamChunkDelay:  50 * time.Millisecond,
		RateLimitEnabled:  true,
		RateLimitRPM:      600,
		OTELExporter:      "http",
		OTELSamplingRate:  0.1,
		Environment:       "production",
	}
}
