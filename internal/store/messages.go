// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// History is one page of a session's message history.
type History struct {
	Messages   []Message `json:"messages"`
	SessionID  string    `json:"session_id"`
	TotalCount int       `json:"total_count"`
	HasMore    bool      `json:"has_more"`
	Offset     int       `json:"offset"`
	Limit      int       `json:"limit,omitempty"`
}

// AddMessage appends a message to an active, unexpired session and bumps the
// session's updated timestamp. Returns the stored message with ID and time.
func (s *Store) AddMessage(ctx context.Context, sessionID, role, content string, metadata map[string]any) (*Message, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if metadata == nil {
		metadata = map[string]any{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("store: metadata encode failed: %w", err)
	}

	msg := &Message{
		ID:        uuid.New().String(),
		SessionID: sess.ID,
		Role:      role,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, session_id, role, content, metadata_json, created_at_ms)
		VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, msg.Role, msg.Content, string(metaJSON), timeToMs(msg.CreatedAt),
	); err != nil {
		return nil, fmt.Errorf("store: message insert failed: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at_ms = ? WHERE session_id = ?`,
		timeToMs(msg.CreatedAt), msg.SessionID,
	); err != nil {
		return nil, fmt.Errorf("store: session touch failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return msg, nil
}

// MessageCount returns the total number of messages in a session.
func (s *Store) MessageCount(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE session_id = ?`, sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("store: message count failed: %w", err)
	}
	return count, nil
}

// MessageHistory returns a page of messages in chronological order.
// limit <= 0 returns everything from offset.
func (s *Store) MessageHistory(ctx context.Context, sessionID string, limit, offset int) (*History, error) {
	if _, err := s.Session(ctx, sessionID); err != nil {
		return nil, err
	}

	total, err := s.MessageCount(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, session_id, role, content, metadata_json, created_at_ms
		FROM messages WHERE session_id = ?
		ORDER BY created_at_ms ASC, id ASC`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	} else if offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: history query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	h := &History{
		Messages:   messages,
		SessionID:  sessionID,
		TotalCount: total,
		Offset:     offset,
		Limit:      limit,
	}
	if limit > 0 {
		h.HasMore = offset+limit < total
	}
	return h, nil
}

// ConversationContext returns the most recent user/assistant messages in
// chronological order, capped at maxMessages. System messages are excluded.
func (s *Store) ConversationContext(ctx context.Context, sessionID string, maxMessages int) ([]Message, error) {
	if _, err := s.Session(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, metadata_json, created_at_ms
		FROM messages
		WHERE session_id = ? AND role != ?
		ORDER BY created_at_ms DESC, id DESC
		LIMIT ?`, sessionID, RoleSystem, maxMessages)
	if err != nil {
		return nil, fmt.Errorf("store: context query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	// Newest-first from the query; callers want chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func scanMessages(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]Message, error) {
	var messages []Message
	for rows.Next() {
		var (
			msg       Message
			metaJSON  string
			createdMs int64
		)
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &metaJSON, &createdMs); err != nil {
			return nil, fmt.Errorf("store: message scan failed: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &msg.Metadata); err != nil {
			return nil, fmt.Errorf("store: metadata decode failed: %w", err)
		}
		msg.CreatedAt = msToTime(createdMs)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
