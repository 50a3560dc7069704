// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldSessionID = "session_id"
	FieldUserID    = "user_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Chat fields
	FieldProvider = "provider"
	FieldModel    = "model"
	FieldRole     = "role"
	FieldPreset   = "preset"

	// Network fields
	FieldPath       = "path"
	FieldMethod     = "method"
	FieldRemoteAddr = "remote_addr"
	FieldStatus     = "status"
)
