// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ws

import (
	"sync"
)

// Hub tracks open chat sockets grouped by session, so future multi-client
// sessions can fan frames out to every connected device.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{groups: make(map[string]map[*client]struct{})}
}

func (h *Hub) join(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.groups[sessionID]
	if !ok {
		group = make(map[*client]struct{})
		h.groups[sessionID] = group
	}
	group[c] = struct{}{}
}

func (h *Hub) leave(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.groups[sessionID]
	if !ok {
		return
	}
	delete(group, c)
	if len(group) == 0 {
		delete(h.groups, sessionID)
	}
}

// Broadcast sends a frame to every socket joined to the session.
func (h *Hub) Broadcast(sessionID string, payload []byte) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.groups[sessionID]))
	for c := range h.groups[sessionID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		_ = c.write(payload)
	}
}

// Sessions returns the number of sessions with at least one open socket.
func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups)
}
