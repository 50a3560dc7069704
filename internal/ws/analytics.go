// SPDX-License-Identifier: MIT

package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ManuGH/chatrelay/internal/auth"
	"github.com/ManuGH/chatrelay/internal/metrics"
	"github.com/ManuGH/chatrelay/internal/store"
)

// AnalyticsHandler serves the live analytics feed. Clients get an initial
// snapshot on connect and can refresh with request_analytics frames.
type AnalyticsHandler struct {
	cfg      Config
	signer   *auth.Signer
	store    *store.Store
	upgrader websocket.Upgrader
}

// NewAnalyticsHandler builds the handler behind /ws/chat/analytics.
func NewAnalyticsHandler(cfg Config, signer *auth.Signer, st *store.Store) *AnalyticsHandler {
	check := originChecker(cfg.AllowedOrigins)
	return &AnalyticsHandler{
		cfg:    cfg,
		signer: signer,
		store:  st,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || check(origin)
			},
		},
	}
}

func (h *AnalyticsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.WSConnectionsTotal.WithLabelValues("upgrade_failed").Inc()
		return
	}
	c := newClient(conn)

	principal, err := h.signer.Verify(auth.ExtractToken(r, true))
	if err != nil {
		metrics.WSConnectionsTotal.WithLabelValues("auth_failed").Inc()
		c.closeWith(CloseAuthFailed, "authentication failed")
		return
	}

	metrics.WSConnectionsTotal.WithLabelValues("accepted").Inc()
	metrics.WSConnectionsActive.Inc()
	defer metrics.WSConnectionsActive.Dec()
	defer func() { _ = conn.Close() }()

	h.sendSnapshot(r.Context(), c, principal.UserID)

	idle := h.cfg.IdleTimeout
	_ = conn.SetReadDeadline(time.Now().Add(idle))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(idle))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(idle))

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Type == TypeRequestAnalytics {
			h.sendSnapshot(r.Context(), c, principal.UserID)
		}
	}
}

// sendSnapshot sends current per-user activity counters.
func (h *AnalyticsHandler) sendSnapshot(ctx context.Context, c *client, userID string) {
	sessions, err := h.store.SessionsForUser(ctx, userID, true)
	if err != nil {
		_ = c.send(TypeAnalyticsError, map[string]any{"error": err.Error()})
		return
	}

	totalMessages := 0
	for _, sess := range sessions {
		totalMessages += sess.MessageCount
	}

	_ = c.send(TypeAnalyticsUpdate, map[string]any{
		"data": map[string]any{
			"total_sessions":  len(sessions),
			"active_sessions": len(sessions),
			"total_messages":  totalMessages,
			"recent_activity": totalMessages > 0,
		},
	})
}
