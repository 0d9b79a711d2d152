// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package feedback

import (
	"time"

	"github.com/tomtom215/vitrine/internal/validation"
)

// Signal is one client-side interaction reported after personalization,
// e.g. a click on a recommended element.
type Signal struct {
	ID                 string    `json:"id"`
	SessionID          string    `json:"session_id,omitempty" validate:"omitempty,session_id"`
	PersonaID          string    `json:"persona_id,omitempty" validate:"omitempty,max=64"`
	Action             string    `json:"action" validate:"required,max=64"`
	Element            string    `json:"element" validate:"required,max=256"`
	Timestamp          time.Time `json:"timestamp"`
	SessionDurationSec float64   `json:"session_duration" validate:"gte=0"`
	ReceivedAt         time.Time `json:"received_at"`
}

// Validate checks the client-supplied fields.
func (s *Signal) Validate() error {
	if verr := validation.ValidateStruct(s); verr != nil {
		return verr
	}
	return nil
}
