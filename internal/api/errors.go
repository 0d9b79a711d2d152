// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
)

// Request body errors
var (
	// ErrEmptyBody indicates a POST without a body
	ErrEmptyBody = errors.New("request body is empty")

	// ErrBodyTooLarge indicates the body exceeded the configured limit
	ErrBodyTooLarge = errors.New("request body too large")

	// ErrMalformedBody indicates the body is not valid JSON for the endpoint
	ErrMalformedBody = errors.New("request body is not valid JSON")
)

// decodeJSON decodes the request body into dst. When allowEmpty is set an
// absent body leaves dst untouched.
func decodeJSON(r *http.Request, dst interface{}, allowEmpty bool) error {
	if r.Body == nil {
		if allowEmpty {
			return nil
		}
		return ErrEmptyBody
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return ErrBodyTooLarge
		}
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		if allowEmpty {
			return nil
		}
		return ErrEmptyBody
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return nil
}

// writeDecodeError maps a decodeJSON failure to its response.
func writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, r)
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		rw.Error(http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, ErrBodyTooLarge.Error())
	case errors.Is(err, ErrEmptyBody):
		rw.BadRequest(ErrEmptyBody.Error())
	default:
		rw.BadRequest(ErrMalformedBody.Error())
	}
}
