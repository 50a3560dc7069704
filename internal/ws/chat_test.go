// SPDX-License-Identifier: MIT

package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/goleak"

	"github.com/ManuGH/chatrelay/internal/auth"
	"github.com/ManuGH/chatrelay/internal/cache"
	"github.com/ManuGH/chatrelay/internal/conversation"
	"github.com/ManuGH/chatrelay/internal/llm"
	"github.com/ManuGH/chatrelay/internal/pipeline"
	"github.com/ManuGH/chatrelay/internal/provider"
	"github.com/ManuGH/chatrelay/internal/store"
)

type cannedClient struct {
	content string
}

func (c *cannedClient) Name() string { return "anthropic" }

func (c *cannedClient) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	return &llm.Response{
		Content:  c.content,
		Metadata: map[string]any{"usage": map[string]any{"input_tokens": 8, "output_tokens": 12}},
		Provider: "anthropic",
		Model:    req.Model,
		Success:  true,
	}, nil
}

type wsFixture struct {
	server  *httptest.Server
	signer  *auth.Signer
	store   *store.Store
	hub     *Hub
	session *store.Session
}

func newWSFixture(t *testing.T, chunked bool) *wsFixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	router := llm.NewRouter("", "")
	router.Register(&cannedClient{content: "Hello from the assistant, streaming ten words or so."})
	convo := conversation.NewService(st, router, pipeline.NewResponseCache(cache.NewMemoryCache(time.Minute), time.Minute))

	signer, err := auth.NewSigner("test-secret-0123456789abcdef")
	if err != nil {
		t.Fatalf("auth.NewSigner() error = %v", err)
	}

	hub := NewHub()
	cfg := Config{ChunkSize: 10, ChunkDelay: time.Millisecond, IdleTimeout: 5 * time.Second}
	handler := NewChatHandler(cfg, signer, st, convo, hub, chunked)

	r := chi.NewRouter()
	r.Handle("/ws/chat/stream/{sessionID}", handler)
	r.Handle("/ws/chat/analytics", NewAnalyticsHandler(cfg, signer, st))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	now := time.Now()
	sess := &store.Session{
		ID:     store.NewSessionID(),
		UserID: "user-1",
		Title:  "Test",
		ModelConfig: provider.ModelConfig{
			Provider: "anthropic",
			Model:    "claude-3-5-sonnet-20241022",
		},
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	if err := st.CreateSession(context.Background(), sess); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	return &wsFixture{server: srv, signer: signer, store: st, hub: hub, session: sess}
}

func (f *wsFixture) dial(t *testing.T, sessionID, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/chat/stream/" + sessionID
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (f *wsFixture) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := f.signer.Issue(userID, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return tok
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("frame decode: %v", err)
	}
	return payload
}

func TestChatStreamTurn(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newWSFixture(t, false)
	conn := f.dial(t, f.session.ID, f.token(t, "user-1"))

	established := readFrame(t, conn)
	if established["type"] != TypeConnectionEstablished {
		t.Fatalf("first frame = %v, want connection_established", established["type"])
	}
	if established["session_id"] != f.session.ID {
		t.Errorf("session_id = %v", established["session_id"])
	}

	err := conn.WriteJSON(map[string]any{"type": TypeSendMessage, "message": "What is the answer?"})
	if err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var types []string
	var chunks []string
	var complete map[string]any
	for {
		payload := readFrame(t, conn)
		ft, _ := payload["type"].(string)
		types = append(types, ft)
		switch ft {
		case TypeStreamChunk:
			chunk, _ := payload["chunk"].(string)
			chunks = append(chunks, chunk)
		case TypeStreamComplete:
			complete = payload
		}
		if ft == TypeTypingIndicator && payload["status"] == TypingIdle {
			break
		}
	}

	wantPrefix := []string{TypeMessageReceived, TypeTypingIndicator, TypeStreamStart}
	for i, want := range wantPrefix {
		if i >= len(types) || types[i] != want {
			t.Fatalf("frame order = %v, want prefix %v", types, wantPrefix)
		}
	}
	if complete == nil {
		t.Fatal("no stream_complete frame received")
	}
	full := strings.Join(chunks, "")
	if full != "Hello from the assistant, streaming ten words or so." {
		t.Errorf("reassembled chunks = %q", full)
	}
	am, _ := complete["assistant_message"].(map[string]any)
	if am["content"] != full {
		t.Errorf("assistant_message content = %v, want chunks to match", am["content"])
	}

	messages, err := f.store.SessionMessages(context.Background(), f.session.ID)
	if err != nil {
		t.Fatalf("SessionMessages() error = %v", err)
	}
	if len(messages) != 2 {
		t.Errorf("persisted messages = %d, want 2", len(messages))
	}
	if got := f.hub.Sessions(); got != 1 {
		t.Errorf("hub sessions while connected = %d, want 1", got)
	}

	// Close the socket and wait for the server side to unwind, so the
	// goroutine check sees a quiet state.
	_ = conn.Close()
	deadline := time.Now().Add(5 * time.Second)
	for f.hub.Sessions() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("hub did not drain after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestChatStreamChunkedStages(t *testing.T) {
	f := newWSFixture(t, true)
	conn := f.dial(t, f.session.ID, f.token(t, "user-1"))
	readFrame(t, conn) // connection_established

	if err := conn.WriteJSON(map[string]any{"type": TypeSendMessage, "message": "hi"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	sawStored := false
	for {
		payload := readFrame(t, conn)
		switch payload["type"] {
		case TypeUserMessageStored:
			sawStored = true
			um, _ := payload["user_message"].(map[string]any)
			if um["content"] != "hi" {
				t.Errorf("stored user message content = %v", um["content"])
			}
		case TypeStreamStart:
			if !sawStored {
				t.Error("stream_start before user_message_stored")
			}
			if _, ok := payload["message_id"].(string); !ok {
				t.Errorf("chunked stream_start missing message_id: %v", payload)
			}
		case TypeStreamComplete:
			return
		}
	}
}

func TestChatStreamPingPong(t *testing.T) {
	f := newWSFixture(t, false)
	conn := f.dial(t, f.session.ID, f.token(t, "user-1"))
	readFrame(t, conn)

	if err := conn.WriteJSON(map[string]any{"type": TypePing}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	pong := readFrame(t, conn)
	if pong["type"] != TypePong {
		t.Errorf("frame = %v, want pong", pong["type"])
	}
}

func TestChatStreamBadFrames(t *testing.T) {
	f := newWSFixture(t, false)
	conn := f.dial(t, f.session.ID, f.token(t, "user-1"))
	readFrame(t, conn)

	tests := []struct {
		name     string
		raw      string
		wantCode string
	}{
		{"invalid json", "{not json", CodeJSONDecode},
		{"unknown type", `{"type":"mystery"}`, CodeInvalidMessageType},
		{"empty message", `{"type":"send_message","message":"   "}`, CodeEmptyMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.raw)); err != nil {
				t.Fatalf("WriteMessage() error = %v", err)
			}
			payload := readFrame(t, conn)
			if payload["type"] != TypeError {
				t.Fatalf("frame = %v, want error", payload["type"])
			}
			if payload["error_code"] != tt.wantCode {
				t.Errorf("error_code = %v, want %s", payload["error_code"], tt.wantCode)
			}
		})
	}
}

func TestChatStreamAuthFailure(t *testing.T) {
	f := newWSFixture(t, false)
	conn := f.dial(t, f.session.ID, "not-a-token")

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, CloseAuthFailed) {
		t.Errorf("read error = %v, want close %d", err, CloseAuthFailed)
	}
}

func TestChatStreamForeignSession(t *testing.T) {
	f := newWSFixture(t, false)
	conn := f.dial(t, f.session.ID, f.token(t, "someone-else"))

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, CloseForbidden) {
		t.Errorf("read error = %v, want close %d", err, CloseForbidden)
	}
}

func TestChatStreamUnknownSession(t *testing.T) {
	f := newWSFixture(t, false)
	conn := f.dial(t, "chat_session_missing", f.token(t, "user-1"))

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, CloseForbidden) {
		t.Errorf("read error = %v, want close %d", err, CloseForbidden)
	}
}

func TestAnalyticsSocket(t *testing.T) {
	f := newWSFixture(t, false)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/chat/analytics?token=" + f.token(t, "user-1")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	snapshot := readFrame(t, conn)
	if snapshot["type"] != TypeAnalyticsUpdate {
		t.Fatalf("frame = %v, want analytics_update", snapshot["type"])
	}
	data, _ := snapshot["data"].(map[string]any)
	if data["total_sessions"] != float64(1) {
		t.Errorf("total_sessions = %v, want 1", data["total_sessions"])
	}

	if err := conn.WriteJSON(map[string]any{"type": TypeRequestAnalytics}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	refresh := readFrame(t, conn)
	if refresh["type"] != TypeAnalyticsUpdate {
		t.Errorf("refresh frame = %v, want analytics_update", refresh["type"])
	}
}
