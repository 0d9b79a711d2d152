// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package middleware

import (
	"net/http"

	"github.com/tomtom215/vitrine/internal/logging"
)

const (
	// RequestIDHeader carries the request ID in both directions.
	RequestIDHeader = "X-Request-ID"

	// SessionIDHeader carries the visitor session ID on decision routes.
	SessionIDHeader = "X-Session-ID"

	// maxUpstreamIDLen bounds IDs accepted from clients so they cannot
	// bloat every log line.
	maxUpstreamIDLen = 128
)

// RequestID adds a request ID to the response header and the request
// context. An upstream X-Request-ID is kept when it is reasonably sized;
// otherwise a UUID v4 is generated. A X-Session-ID header, when present, is
// attached to the context as well so every log line of the request carries it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > maxUpstreamIDLen {
			requestID = logging.GenerateRequestID()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		if sessionID := r.Header.Get(SessionIDHeader); sessionID != "" && len(sessionID) <= maxUpstreamIDLen {
			ctx = logging.ContextWithSessionID(ctx, sessionID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
