// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/chatrelay/internal/analytics"
	"github.com/ManuGH/chatrelay/internal/api"
	"github.com/ManuGH/chatrelay/internal/auth"
	"github.com/ManuGH/chatrelay/internal/cache"
	"github.com/ManuGH/chatrelay/internal/config"
	"github.com/ManuGH/chatrelay/internal/conversation"
	"github.com/ManuGH/chatrelay/internal/health"
	"github.com/ManuGH/chatrelay/internal/llm"
	crlog "github.com/ManuGH/chatrelay/internal/log"
	"github.com/ManuGH/chatrelay/internal/metrics"
	"github.com/ManuGH/chatrelay/internal/pipeline"
	"github.com/ManuGH/chatrelay/internal/store"
	"github.com/ManuGH/chatrelay/internal/telemetry"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	listenAddr := flag.String("listen", "", "override listen address")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until the real config is loaded.
	crlog.Configure(crlog.Config{
		Level:   "info",
		Service: "chatrelay",
		Version: version,
	})
	logger := crlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Explicit --config wins; otherwise auto-load <dataDir>/config.yaml if
	// present so a generated config persists across restarts.
	effectiveConfigPath := strings.TrimSpace(*configPath)
	if effectiveConfigPath == "" {
		dataDir := strings.TrimSpace(os.Getenv("CHATRELAY_DATA"))
		if dataDir == "" {
			dataDir = config.Defaults().DataDir
		}
		autoPath := filepath.Join(dataDir, "config.yaml")
		if _, err := os.Stat(autoPath); err == nil {
			effectiveConfigPath = autoPath
		}
	}

	loader := config.NewLoader(effectiveConfigPath, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}
	if *listenAddr != "" {
		cfg.Listen = *listenAddr
	}

	crlog.Configure(crlog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})

	if effectiveConfigPath != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file").
			Str("path", effectiveConfigPath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.Listen).
		Msg("starting chatrelay")

	// Tracing
	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.OTELEnabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: version,
		Environment:    cfg.Environment,
		ExporterType:   cfg.OTELExporter,
		Endpoint:       cfg.OTELEndpoint,
		SamplingRate:   cfg.OTELSamplingRate,
	})
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "telemetry.init_failed").
			Msg("failed to initialize tracing")
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	// Persistence
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "store.open_failed").
			Str("path", cfg.DBPath).
			Msg("failed to open session store")
	}
	defer st.Close()

	// Response cache: Redis when configured, in-memory otherwise.
	var backend cache.Cache
	var redisCheck func(context.Context) error
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, crlog.WithComponent("cache"))
		if err != nil {
			logger.Fatal().
				Err(err).
				Str("event", "cache.redis_failed").
				Str("addr", cfg.RedisAddr).
				Msg("failed to connect to redis")
		}
		defer rc.Close()
		backend = rc
		redisCheck = rc.HealthCheck
		logger.Info().Str("addr", cfg.RedisAddr).Msg("→ Cache: redis")
	} else {
		backend = cache.NewMemoryCache(5 * time.Minute)
		logger.Info().Msg("→ Cache: in-memory")
	}
	respCache := pipeline.NewResponseCache(backend, cfg.ResponseCacheTTL)

	// LLM providers
	router := llm.NewRouter(cfg.AnthropicAPIKey, cfg.OpenAIAPIKey)
	providers := router.Providers()
	if len(providers) == 0 {
		logger.Warn().Msg("→ Providers: NONE configured. Set ANTHROPIC_API_KEY or OPENAI_API_KEY.")
	} else {
		logger.Info().Msgf("→ Providers: %s", strings.Join(providers, ", "))
	}
	logger.Info().Msgf("→ Data dir: %s", cfg.DataDir)

	signer, err := auth.NewSigner(cfg.AuthSecret)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "auth.init_failed").
			Msg("invalid auth secret")
	}

	convo := conversation.NewService(st, router, respCache)
	an := analytics.NewService(st)

	hm := health.NewManager(version)
	hm.Register(health.NewStoreChecker(st))
	hm.Register(health.NewProviderChecker(router.Providers))
	if redisCheck != nil {
		hm.Register(health.NewCacheChecker(redisCheck))
	}

	srv := api.New(cfg, signer, st, convo, an, hm)

	// Expiry sweep
	go janitor(ctx, st, cfg, logger)

	// Config watch: only the log level can change at runtime; everything
	// else needs a restart.
	if effectiveConfigPath != "" {
		go func() {
			err := config.Watch(ctx, effectiveConfigPath, version, func(next config.Config) {
				crlog.SetLevel(next.LogLevel)
				logger.Info().
					Str("event", "config.reloaded").
					Str("log_level", next.LogLevel).
					Msg("configuration reloaded")
			})
			if err != nil && ctx.Err() == nil {
				logger.Warn().Err(err).Msg("config watch stopped")
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// No WriteTimeout: WebSocket streams are long-lived.
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Listen).Msg("listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("server exiting")
}

// janitor periodically removes expired and long-inactive sessions.
func janitor(ctx context.Context, st *store.Store, cfg config.Config, logger zerolog.Logger) {
	ticker := time.NewTicker(cfg.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := st.SweepExpired(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("expiry sweep failed")
				continue
			}
			if swept > 0 {
				metrics.SessionsSwept.Add(float64(swept))
				logger.Info().
					Int64("sessions", swept).
					Msg("deactivated expired sessions")
			}
			purged, err := st.PurgeInactive(ctx, cfg.InactiveRetention)
			if err != nil {
				logger.Error().Err(err).Msg("inactive purge failed")
				continue
			}
			if purged > 0 {
				logger.Info().
					Int64("sessions", purged).
					Msg("purged inactive sessions")
			}
		}
	}
}
