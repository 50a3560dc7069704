// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader("", "test").Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("Listen = %q, want %q", cfg.Listen, ":8080")
	}
	if cfg.DBPath != filepath.Join(cfg.DataDir, "chatrelay.db") {
		t.Errorf("DBPath = %q, want derived from DataDir", cfg.DBPath)
	}
	if cfg.Version != "test" {
		t.Errorf("Version = %q, want %q", cfg.Version, "test")
	}
	if cfg.WebSocketTimeout != 300*time.Second {
		t.Errorf("WebSocketTimeout = %v, want 300s", cfg.WebSocketTimeout)
	}
}

func TestLoadFileMerge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("listen: \":9999\"\nlogLevel: debug\nstreamChunkSize: 7\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoader(path, "test").Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Listen != ":9999" {
		t.Errorf("Listen = %q, want %q", cfg.Listen, ":9999")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.StreamChunkSize != 7 {
		t.Errorf("StreamChunkSize = %d, want 7", cfg.StreamChunkSize)
	}
	// Untouched keys keep defaults.
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want 24h", cfg.SessionTTL)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("listne: \":9999\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLoader(path, "test").Load(); err == nil {
		t.Error("Load() error = nil, want parse failure for unknown key")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := NewLoader("/does/not/exist.yaml", "test").Load(); err == nil {
		t.Error("Load() error = nil, want not-found error")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("listen: \":9999\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHATRELAY_LISTEN", ":7777")

	cfg, err := NewLoader(path, "test").Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Listen != ":7777" {
		t.Errorf("Listen = %q, want env override %q", cfg.Listen, ":7777")
	}
}

func TestRailwayEnvConventions(t *testing.T) {
	t.Setenv("PORT", "5050")
	t.Setenv("WEBSOCKET_TIMEOUT", "120")

	cfg, err := NewLoader("", "test").Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Listen != ":5050" {
		t.Errorf("Listen = %q, want %q from PORT", cfg.Listen, ":5050")
	}
	if cfg.WebSocketTimeout != 120*time.Second {
		t.Errorf("WebSocketTimeout = %v, want 120s from WEBSOCKET_TIMEOUT", cfg.WebSocketTimeout)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		valid  bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"empty listen", func(c *Config) { c.Listen = "" }, false},
		{"zero chunk size", func(c *Config) { c.StreamChunkSize = 0 }, false},
		{"negative chunk delay", func(c *Config) { c.StreamChunkDelay = -time.Second }, false},
		{"ratelimit on without rpm", func(c *Config) { c.RateLimitRPM = 0 }, false},
		{"otel without endpoint", func(c *Config) { c.OTELEnabled = true }, false},
		{
			"otel complete",
			func(c *Config) {
				c.OTELEnabled = true
				c.OTELEndpoint = "collector:4318"
			},
			true,
		},
		{
			"otel bad exporter",
			func(c *Config) {
				c.OTELEnabled = true
				c.OTELEndpoint = "collector:4318"
				c.OTELExporter = "udp"
			},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
			if !tt.valid {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("Validate() error = %v, want *ValidationError", err)
				}
			}
		})
	}
}
