// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ManuGH/chatrelay/internal/log"
)

// Request ID headers, checked in order. Railway's edge proxy tags every
// request with X-Railway-Request-Id.
const (
	HeaderRailwayRequestID = "X-Railway-Request-Id"
	HeaderRequestID        = "X-Request-Id"
)

// RequestID propagates an inbound request ID or mints a new one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(HeaderRailwayRequestID)
		if reqID == "" {
			reqID = r.Header.Get(HeaderRequestID)
		}
		if reqID == "" {
			reqID = uuid.New().String()
		}
		w.Header().Set(HeaderRequestID, reqID)
		ctx := log.ContextWithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
