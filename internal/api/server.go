// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api exposes the REST and WebSocket surface of the chat relay.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/chatrelay/internal/analytics"
	"github.com/ManuGH/chatrelay/internal/api/middleware"
	"github.com/ManuGH/chatrelay/internal/auth"
	"github.com/ManuGH/chatrelay/internal/config"
	"github.com/ManuGH/chatrelay/internal/conversation"
	"github.com/ManuGH/chatrelay/internal/health"
	"github.com/ManuGH/chatrelay/internal/store"
	"github.com/ManuGH/chatrelay/internal/ws"
)

// Server wires all services into one HTTP handler.
type Server struct {
	cfg       config.Config
	signer    *auth.Signer
	store     *store.Store
	convo     *conversation.Service
	analytics *analytics.Service
	health    *health.Manager
	hub       *ws.Hub

	mux *chi.Mux
}

// New assembles the server and its routes.
func New(
	cfg config.Config,
	signer *auth.Signer,
	st *store.Store,
	convo *conversation.Service,
	an *analytics.Service,
	hm *health.Manager,
) *Server {
	s := &Server{
		cfg:       cfg,
		signer:    signer,
		store:     st,
		convo:     convo,
		analytics: an,
		health:    hm,
		hub:       ws.NewHub(),
	}
	s.mux = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.mux }

// Hub exposes the WebSocket hub, mainly for tests.
func (s *Server) Hub() *ws.Hub { return s.hub }

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()

	stack := middleware.StackConfig{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		EnableMetrics:    true,
		EnableLogging:    true,
		RateLimitEnabled: s.cfg.RateLimitEnabled,
		RateLimitPerMin:  s.cfg.RateLimitRPM,
	}
	if s.cfg.OTELEnabled {
		stack.TracingService = "chatrelay-api"
	}

	// REST surface with the full middleware stack.
	r.Group(func(r chi.Router) {
		middleware.ApplyStack(r, stack)

		r.Get("/healthz", s.health.ServeHealth)
		r.Get("/readyz", s.health.ServeReady)
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())

		r.Post("/api/auth/token", s.handleTokenMint)

		r.Route("/api/chat", func(r chi.Router) {
			r.Use(auth.Middleware(s.signer, s.cfg.AllowQueryToken))

			r.Post("/send", s.handleChatSend)

			r.Get("/sessions", s.handleSessionList)
			r.Post("/sessions", s.handleSessionCreate)
			r.Post("/sessions/create", s.handleSessionCreate)
			r.Get("/sessions/{sessionID}", s.handleSessionDetail)
			r.Patch("/sessions/{sessionID}", s.handleSessionUpdate)
			r.Delete("/sessions/{sessionID}", s.handleSessionDelete)
			r.Get("/sessions/{sessionID}/history", s.handleMessageHistory)
			r.Get("/sessions/{sessionID}/insights", s.handleSessionInsights)

			r.Get("/presets", s.handlePresets)
			r.Post("/validate-preset", s.handleValidatePreset)
			r.Get("/provider-status", s.handleProviderStatus)

			r.Get("/analytics", s.handleAnalyticsSummary)
			r.Get("/analytics/provider-comparison", s.handleProviderComparison)
		})
	})

	// WebSocket routes bypass the logging/metrics/ratelimit wrappers: their
	// response writers do not implement http.Hijacker, which the upgrade
	// needs. Recovery and request IDs still apply.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recoverer)
		r.Use(middleware.RequestID)

		wsCfg := ws.Config{
			ChunkSize:      s.cfg.StreamChunkSize,
			ChunkDelay:     s.cfg.StreamChunkDelay,
			IdleTimeout:    s.cfg.WebSocketTimeout,
			SessionTTL:     s.cfg.SessionTTL,
			AllowedOrigins: s.cfg.AllowedOrigins,
		}
		r.Method(http.MethodGet, "/ws/chat/stream/{sessionID}",
			ws.NewChatHandler(wsCfg, s.signer, s.store, s.convo, s.hub, false))
		r.Method(http.MethodGet, "/ws/chat/stream-chunked/{sessionID}",
			ws.NewChatHandler(wsCfg, s.signer, s.store, s.convo, s.hub, true))
		r.Method(http.MethodGet, "/ws/chat/analytics",
			ws.NewAnalyticsHandler(wsCfg, s.signer, s.store))
	})

	return r
}
