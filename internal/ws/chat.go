// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ManuGH/chatrelay/internal/auth"
	"github.com/ManuGH/chatrelay/internal/conversation"
	"github.com/ManuGH/chatrelay/internal/log"
	"github.com/ManuGH/chatrelay/internal/metrics"
	"github.com/ManuGH/chatrelay/internal/store"
)

// emoteLeadTime gives clients a beat to render the emote before chunks
// start arriving.
const emoteLeadTime = 100 * time.Millisecond

// Config tunes the streaming behavior of chat sockets.
type Config struct {
	// ChunkSize is the number of characters per stream_chunk frame.
	ChunkSize int
	// ChunkDelay is the pause between chunks.
	ChunkDelay time.Duration
	// IdleTimeout is the read deadline; it tracks the platform's
	// WEBSOCKET_TIMEOUT so the relay closes sockets before the edge does.
	IdleTimeout time.Duration
	// SessionTTL slides the session expiry on every completed turn.
	SessionTTL time.Duration
	// AllowedOrigins restricts browser origins. Empty allows all.
	AllowedOrigins []string
}

// ChatHandler upgrades chat stream connections and runs their read loop.
type ChatHandler struct {
	cfg      Config
	signer   *auth.Signer
	store    *store.Store
	convo    *conversation.Service
	hub      *Hub
	upgrader websocket.Upgrader

	// chunked adds the user_message_stored stage and message-scoped
	// stream_start frames.
	chunked bool
}

// NewChatHandler builds the handler behind /ws/chat/stream/{sessionID}.
func NewChatHandler(cfg Config, signer *auth.Signer, st *store.Store, convo *conversation.Service, hub *Hub, chunked bool) *ChatHandler {
	check := originChecker(cfg.AllowedOrigins)
	return &ChatHandler{
		cfg:     cfg,
		signer:  signer,
		store:   st,
		convo:   convo,
		hub:     hub,
		chunked: chunked,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || check(origin)
			},
		},
	}
}

// ServeHTTP upgrades the socket, authenticates via the query token, checks
// session ownership and enters the read loop. Auth failures close with
// 4001, foreign sessions with 4003.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	logger := log.WithComponentFromContext(r.Context(), "ws").With().
		Str(log.FieldSessionID, sessionID).Logger()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		metrics.WSConnectionsTotal.WithLabelValues("upgrade_failed").Inc()
		logger.Warn().Err(err).Str(log.FieldEvent, "ws.upgrade_failed").Msg("websocket upgrade failed")
		return
	}
	c := newClient(conn)

	principal, err := h.signer.Verify(auth.ExtractToken(r, true))
	if err != nil {
		metrics.WSConnectionsTotal.WithLabelValues("auth_failed").Inc()
		c.closeWith(CloseAuthFailed, "authentication failed")
		return
	}

	sess, err := h.store.Session(r.Context(), sessionID)
	if err != nil || sess.UserID != principal.UserID {
		metrics.WSConnectionsTotal.WithLabelValues("forbidden").Inc()
		c.closeWith(CloseForbidden, "session access denied")
		return
	}

	metrics.WSConnectionsTotal.WithLabelValues("accepted").Inc()
	metrics.WSConnectionsActive.Inc()
	defer metrics.WSConnectionsActive.Dec()

	h.hub.join(sessionID, c)
	defer h.hub.leave(sessionID, c)

	_ = c.send(TypeConnectionEstablished, map[string]any{
		"session_id": sessionID,
		"user_id":    principal.UserID,
	})

	h.readLoop(r.Context(), c, sessionID, principal.UserID, logger)
}

// readLoop dispatches inbound frames until the socket closes or goes idle.
// A server ping keepalive extends the read deadline while the peer answers.
func (h *ChatHandler) readLoop(ctx context.Context, c *client, sessionID, userID string, logger zerolog.Logger) {
	idle := h.cfg.IdleTimeout
	_ = c.conn.SetReadDeadline(time.Now().Add(idle))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(idle))
	})

	stopPing := make(chan struct{})
	defer close(stopPing)
	go func() {
		ticker := time.NewTicker(idle * 9 / 10)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := c.ping(); err != nil {
					return
				}
			case <-stopPing:
				return
			}
		}
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug().Err(err).Str(log.FieldEvent, "ws.closed").Msg("socket closed")
			}
			return
		}
		// Each inbound frame refreshes the idle window.
		_ = c.conn.SetReadDeadline(time.Now().Add(idle))

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			_ = c.sendError("Invalid JSON format", CodeJSONDecode)
			continue
		}

		switch msg.Type {
		case TypeSendMessage:
			h.handleSend(ctx, c, sessionID, userID, msg, logger)
		case TypePing:
			_ = c.send(TypePong, nil)
		default:
			_ = c.sendError("Unknown message type", CodeInvalidMessageType)
		}
	}
}

// handleSend runs the staged response pipeline for one turn:
// received → typing → (emote) → stream → complete → (quick responses) → idle.
func (h *ChatHandler) handleSend(ctx context.Context, c *client, sessionID, userID string, msg inbound, logger zerolog.Logger) {
	message := strings.TrimSpace(msg.Message)
	if message == "" {
		_ = c.sendError("Message cannot be empty", CodeEmptyMessage)
		return
	}

	_ = c.send(TypeMessageReceived, map[string]any{"message": message})
	_ = c.send(TypeTypingIndicator, map[string]any{"status": TypingActive})
	defer func() {
		_ = c.send(TypeTypingIndicator, map[string]any{"status": TypingIdle})
	}()

	result, err := h.convo.Send(ctx, conversation.SendRequest{
		SessionID:   sessionID,
		UserID:      userID,
		Message:     message,
		WantEmote:   msg.RequestEmote,
		WantReplies: msg.RequestQuickResponses,
	})
	if err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "ws.turn_failed").Msg("chat turn failed")
		_ = c.sendError(err.Error(), CodeConversationError)
		return
	}

	if h.cfg.SessionTTL > 0 {
		if err := h.store.ExtendTTL(ctx, sessionID, h.cfg.SessionTTL); err != nil {
			logger.Warn().Err(err).Str(log.FieldEvent, "ws.ttl_extend_failed").Msg("ttl extend failed")
		}
	}

	if h.chunked {
		_ = c.send(TypeUserMessageStored, map[string]any{
			"user_message": conversation.FormatMessage(result.UserMessage),
		})
	}

	h.streamResponse(c, result, msg)
}

func (h *ChatHandler) streamResponse(c *client, result *conversation.SendResult, msg inbound) {
	start := time.Now()

	if msg.RequestEmote && result.ControlData != nil && result.ControlData.Emote != "" {
		_ = c.send(TypeEmote, map[string]any{
			"emote":       result.ControlData.Emote,
			"emote_glyph": result.ControlData.EmoteGlyph,
		})
		time.Sleep(emoteLeadTime)
	}

	startFields := map[string]any{"session_id": result.SessionID}
	if h.chunked {
		startFields = map[string]any{"message_id": result.AssistantMessage.ID}
	}
	_ = c.send(TypeStreamStart, startFields)

	content := []rune(result.AssistantMessage.Content)
	chunkSize := h.cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 20
	}
	for i, index := 0, 0; i < len(content); i, index = i+chunkSize, index+1 {
		end := i + chunkSize
		if end > len(content) {
			end = len(content)
		}
		_ = c.send(TypeStreamChunk, map[string]any{
			"chunk":       string(content[i:end]),
			"chunk_index": index,
		})
		metrics.StreamChunksTotal.Inc()
		time.Sleep(h.cfg.ChunkDelay)
	}

	_ = c.send(TypeStreamComplete, map[string]any{
		"assistant_message": conversation.FormatMessage(result.AssistantMessage),
		"user_message":      conversation.FormatMessage(result.UserMessage),
		"session_id":        result.SessionID,
		"usage_stats":       conversation.ExtractUsageStats(result),
		"processing_info":   result.ProcessingInfo,
	})
	metrics.StreamDuration.Observe(time.Since(start).Seconds())

	if msg.RequestQuickResponses && result.ControlData != nil && len(result.ControlData.QuickReplies) > 0 {
		_ = c.send(TypeQuickResponses, map[string]any{
			"quick_replies": result.ControlData.QuickReplies,
		})
	}
}
