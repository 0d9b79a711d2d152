// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared by the HTTP handlers (request bodies),
// the persona catalog loader (every profile), and the feedback sink. Field
// names in errors follow the struct's json tags, and failures convert to the
// VALIDATION_ERROR API envelope through ToAPIError.
//
// # Custom Tags
//
//   - session_id: opaque client session token, 1-128 URL-safe characters
//
// # Usage
//
//	type PersonaRequest struct {
//	    SessionID string `json:"session_id" validate:"omitempty,session_id"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    respondError(w, http.StatusBadRequest, verr.ToAPIError())
//	}
package validation
