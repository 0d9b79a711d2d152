// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

// Package logging provides the process-wide zerolog logger.
//
// Call Init once from main with the [logging] config section; until then the
// package logs JSON at info level to stderr.
//
//	logging.Init(cfg.Logging)
//	logging.Info().Str("addr", addr).Msg("Server starting")
//
// Components receive a zerolog.Logger and derive their own with a component
// field:
//
//	logger := logging.WithComponent("predict")
//
// Request handlers use Ctx, which adds the request_id and session_id stored
// by the HTTP middleware:
//
//	logging.Ctx(r.Context()).Warn().Err(err).Msg("Persona assignment failed")
//
// NewSlogLogger bridges to slog for sutureslog.
//
// Always end an event chain with Msg or Send; an unterminated event is
// never written.
package logging
