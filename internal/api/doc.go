// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

/*
Package api exposes the decision core over HTTP using the Chi router.

# Endpoints

	POST /api/v1/predict       model tokens for a context
	POST /api/v1/persona       persona of a session (X-Session-ID or body)
	GET  /api/v1/persona/{id}  current assignment, 404 when none
	DELETE /api/v1/persona/{id} drop the assignment, 204
	POST /api/v1/personalize   prediction and persona merged in one call
	POST /api/v1/feedback      interaction signal, 202 and fire-and-forget
	GET  /api/v1/personas      catalog listing
	GET  /health/live          liveness probe
	GET  /health/ready         readiness probe
	GET  /metrics              Prometheus exposition

Decision endpoints return their payload flat. Errors, the catalog listing
and health probes use the APIResponse envelope:

	{"success": false, "error": {"code": "VALIDATION_ERROR", "message": "...", "request_id": "..."}}

Context fields are never rejected for being out of range; the normalizer
clamps them. Only request-shape problems (malformed JSON, oversized bodies,
invalid session identifiers) produce 4xx responses.

# Middleware

Every route gets request IDs, real IP extraction, panic recovery and CORS.
/api/v1 adds Prometheus metrics, access logging, per-IP rate limiting via
go-chi/httprate, security headers and a request body cap.
*/
package api
