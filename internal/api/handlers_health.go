// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/vitrine/internal/predict"
)

// Health status values
const (
	HealthReady    = "ready"
	HealthDegraded = "degraded"
	HealthDraining = "draining"
)

// ReadinessStatus is the body of GET /health/ready.
type ReadinessStatus struct {
	Status         string          `json:"status"`
	CatalogVersion string          `json:"catalog_version"`
	Personas       int             `json:"personas"`
	Models         *predict.Status `json:"models,omitempty"`
	Uptime         float64         `json:"uptime"`
}

// HealthLive handles liveness probe requests.
// Returns 200 OK if the process is alive, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests.
//
// Missing models or an open breaker report "degraded" with 200: the service
// still answers every decision with fallback tokens. Only draining fails the
// probe.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	catalog := h.engine.Catalog()
	status := ReadinessStatus{
		Status:         HealthReady,
		CatalogVersion: catalog.Version(),
		Personas:       catalog.Len(),
		Uptime:         time.Since(h.startTime).Seconds(),
	}

	if h.models != nil {
		ms := h.models.Status()
		status.Models = &ms
		if !ms.ClassifierLoaded || !ms.RegressorLoaded || ms.BreakerState == "open" {
			status.Status = HealthDegraded
		}
	}

	rw := NewResponseWriter(w, r)
	if h.draining.Load() {
		status.Status = HealthDraining
		rw.writeJSON(http.StatusServiceUnavailable, APIResponse{
			Success: false,
			Data:    status,
			Error:   &APIError{Code: ErrCodeServiceUnavailable, Message: "shutting down"},
			Meta:    rw.meta(),
		})
		return
	}
	rw.Success(status)
}
