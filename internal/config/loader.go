// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence ENV > File > Defaults.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a new configuration loader. configPath may be empty.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Load resolves the effective configuration: defaults, then the YAML file if
// present, then environment overrides, then validation.
func (l *Loader) Load() (Config, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := mergeFile(&cfg, l.configPath); err != nil {
			return Config{}, err
		}
	}

	mergeEnv(&cfg)
	cfg.Version = l.version

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "chatrelay.db")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file not found: %s", path)
		}
		return fmt.Errorf("config file read failed: %w", err)
	}

	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("config file parse failed: %w", err)
	}
	return nil
}

// mergeEnv applies environment overrides. CHATRELAY_* wins over everything;
// the Railway platform variables (PORT, WEBSOCKET_TIMEOUT) and the provider
// key conventions are honored when no explicit override exists.
func mergeEnv(cfg *Config) {
	if port := os.Getenv("PORT"); port != "" {
		cfg.Listen = ":" + port
	}
	cfg.Listen = ParseString("CHATRELAY_LISTEN", cfg.Listen)
	cfg.DataDir = ParseString("CHATRELAY_DATA", cfg.DataDir)
	cfg.DBPath = ParseString("CHATRELAY_DB_PATH", cfg.DBPath)
	cfg.LogLevel = ParseString("CHATRELAY_LOG_LEVEL", cfg.LogLevel)

	cfg.AuthSecret = ParseString("CHATRELAY_AUTH_SECRET", cfg.AuthSecret)
	cfg.AllowQueryToken = ParseBool("CHATRELAY_ALLOW_QUERY_TOKEN", cfg.AllowQueryToken)
	cfg.TokenTTL = ParseDuration("CHATRELAY_TOKEN_TTL", cfg.TokenTTL)

	cfg.AnthropicAPIKey = ParseString("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.OpenAIAPIKey = ParseString("OPENAI_API_KEY", cfg.OpenAIAPIKey)

	cfg.RedisAddr = ParseString("CHATRELAY_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = ParseString("CHATRELAY_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = ParseInt("CHATRELAY_REDIS_DB", cfg.RedisDB)

	cfg.ResponseCacheTTL = ParseDuration("CHATRELAY_RESPONSE_CACHE_TTL", cfg.ResponseCacheTTL)
	cfg.SessionTTL = ParseDuration("CHATRELAY_SESSION_TTL", cfg.SessionTTL)
	cfg.JanitorInterval = ParseDuration("CHATRELAY_JANITOR_INTERVAL", cfg.JanitorInterval)
	cfg.InactiveRetention = ParseDuration("CHATRELAY_INACTIVE_RETENTION", cfg.InactiveRetention)

	// Railway exposes WEBSOCKET_TIMEOUT in seconds.
	cfg.WebSocketTimeout = ParseDuration("WEBSOCKET_TIMEOUT", cfg.WebSocketTimeout)
	cfg.WebSocketTimeout = ParseDuration("CHATRELAY_WS_TIMEOUT", cfg.WebSocketTimeout)
	cfg.StreamChunkSize = ParseInt("CHATRELAY_STREAM_CHUNK_SIZE", cfg.StreamChunkSize)
	cfg.StreamChunkDelay = ParseDuration("CHATRELAY_STREAM_CHUNK_DELAY", cfg.StreamChunkDelay)

	if origins := ParseString("CHATRELAY_ALLOWED_ORIGINS", ""); origins != "" {
		cfg.AllowedOrigins = splitCSV(origins)
	}
	cfg.TrustedProxies = ParseString("CHATRELAY_TRUSTED_PROXIES", cfg.TrustedProxies)

	cfg.RateLimitEnabled = ParseBool("CHATRELAY_RATELIMIT_ENABLED", cfg.RateLimitEnabled)
	cfg.RateLimitRPM = ParseInt("CHATRELAY_RATELIMIT_RPM", cfg.RateLimitRPM)

	cfg.OTELEnabled = ParseBool("CHATRELAY_OTEL_ENABLED", cfg.OTELEnabled)
	cfg.OTELExporter = ParseString("CHATRELAY_OTEL_EXPORTER", cfg.OTELExporter)
	cfg.OTELEndpoint = ParseString("CHATRELAY_OTEL_ENDPOINT", cfg.OTELEndpoint)
	cfg.OTELSamplingRate = ParseFloat("CHATRELAY_OTEL_SAMPLING", cfg.OTELSamplingRate)
	cfg.Environment = ParseString("CHATRELAY_ENVIRONMENT", cfg.Environment)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
