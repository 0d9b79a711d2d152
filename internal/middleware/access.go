// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/logging"
)

// DefaultSlowRequestThreshold is the default warn threshold of AccessLog.
const DefaultSlowRequestThreshold = 250 * time.Millisecond

// AccessLog logs one line per request through the context logger, so the
// entry carries request_id and session_id. Requests slower than slow are
// logged at warn, everything else at debug.
func AccessLog(slow time.Duration) func(http.Handler) http.Handler {
	if slow <= 0 {
		slow = DefaultSlowRequestThreshold
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			status := statusOf(ww)

			var event *zerolog.Event
			switch {
			case status >= http.StatusInternalServerError:
				event = logging.Ctx(r.Context()).Error()
			case duration > slow:
				event = logging.Ctx(r.Context()).Warn().Dur("threshold", slow)
			default:
				event = logging.Ctx(r.Context()).Debug()
			}

			event.
				Str("method", r.Method).
				Str("route", routePattern(r)).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", duration).
				Msg("HTTP request")
		})
	}
}
