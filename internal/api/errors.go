// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/chatrelay/internal/conversation"
	"github.com/ManuGH/chatrelay/internal/store"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a 400 with a single error string
func writeError(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"error": msg})
}

// writeErrors writes a 400 carrying an error list
func writeErrors(w http.ResponseWriter, msg string, errs []string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"error": msg, "errors": errs})
}

func writeForbidden(w http.ResponseWriter) {
	writeJSON(w, http.StatusForbidden, map[string]any{"error": "access denied"})
}

func writeNotFound(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusNotFound, map[string]any{"error": msg})
}

func writeInternal(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": msg})
}

// writeStoreError maps store and conversation errors to HTTP responses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeNotFound(w, "session not found")
	case errors.Is(err, store.ErrSessionExpired):
		writeJSON(w, http.StatusGone, map[string]any{"error": "session expired"})
	case errors.Is(err, conversation.ErrAccessDenied):
		writeForbidden(w)
	default:
		writeInternal(w, err.Error())
	}
}
