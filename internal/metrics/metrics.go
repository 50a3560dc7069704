// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package metrics exposes Prometheus collectors for the chat relay.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP surface.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_http_requests_total",
		Help: "HTTP requests by method, route and status class.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chatrelay_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// WebSocket surface.
	WSConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatrelay_ws_connections_active",
		Help: "Currently open WebSocket connections.",
	})

	WSConnectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_ws_connections_total",
		Help: "WebSocket connections accepted or rejected by outcome.",
	}, []string{"outcome"})

	WSFramesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_ws_frames_sent_total",
		Help: "WebSocket frames sent by type.",
	}, []string{"type"})

	// Streaming.
	StreamChunksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_stream_chunks_total",
		Help: "Response chunks streamed to clients.",
	})

	StreamDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chatrelay_stream_duration_seconds",
		Help:    "Duration of a full response stream.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	// Conversations.
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_messages_total",
		Help: "Persisted chat messages by role.",
	}, []string{"role"})

	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_sessions_created_total",
		Help: "Chat sessions created.",
	})

	SessionsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_sessions_swept_total",
		Help: "Expired sessions deactivated by the janitor.",
	})

	// LLM providers.
	llmRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_llm_requests_total",
		Help: "Upstream LLM requests by provider, model and outcome.",
	}, []string{"provider", "model", "outcome"})

	llmRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chatrelay_llm_request_duration_seconds",
		Help:    "Upstream LLM request latency.",
		Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
	}, []string{"provider", "model"})

	// Control orchestration.
	ControlCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_control_calls_total",
		Help: "Control orchestration calls by outcome.",
	}, []string{"outcome"})

	// Response cache.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_response_cache_hits_total",
		Help: "Response cache hits.",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_response_cache_misses_total",
		Help: "Response cache misses.",
	})
)

// LLMTimer tracks one upstream request from start to completion.
type LLMTimer struct {
	provider string
	model    string
	start    time.Time
}

// StartLLMRequest begins timing an upstream request.
func StartLLMRequest(provider, model string) *LLMTimer {
	return &LLMTimer{provider: provider, model: model, start: time.Now()}
}

// Done records latency and outcome for the request.
func (t *LLMTimer) Done(outcome string) {
	llmRequestsTotal.WithLabelValues(t.provider, t.model, outcome).Inc()
	llmRequestDuration.WithLabelValues(t.provider, t.model).Observe(time.Since(t.start).Seconds())
}
