// SPDX-License-Identifier: MIT

package ws

import (
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ManuGH/chatrelay/internal/metrics"
)

const writeWait = 10 * time.Second

// client wraps one socket with serialized writes. The read loop, the staged
// response writer and the keepalive ticker all write through here.
type client struct {
	conn *websocket.Conn

	mu sync.Mutex
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn}
}

func (c *client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *client) send(frameType string, fields map[string]any) error {
	if err := c.write(frame(frameType, fields)); err != nil {
		return err
	}
	metrics.WSFramesSent.WithLabelValues(frameType).Inc()
	return nil
}

func (c *client) sendError(message, code string) error {
	return c.send(TypeError, map[string]any{
		"message":    message,
		"error_code": code,
	})
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// closeWith sends a close frame with the given application close code and
// drops the connection.
func (c *client) closeWith(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = c.conn.Close()
}

// originChecker builds the upgrader origin policy. An empty allow list or a
// "*" entry accepts any origin.
func originChecker(allowed []string) func(origin string) bool {
	if len(allowed) == 0 {
		return func(string) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimSuffix(o, "/")] = true
	}
	if set["*"] {
		return func(string) bool { return true }
	}
	return func(origin string) bool {
		return set[strings.TrimSuffix(origin, "/")]
	}
}
