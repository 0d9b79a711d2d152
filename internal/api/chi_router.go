// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/vitrine/internal/middleware"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	slowRequest   time.Duration
}

// NewRouter creates a router. A zero slowRequest uses
// middleware.DefaultSlowRequestThreshold.
func NewRouter(handler *Handler, mw *ChiMiddleware, slowRequest time.Duration) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	if slowRequest <= 0 {
		slowRequest = middleware.DefaultSlowRequestThreshold
	}
	return &Router{
		handler:       handler,
		chiMiddleware: mw,
		slowRequest:   slowRequest,
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Applied to ALL routes in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		WriteError(w, req, http.StatusNotFound, ErrCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		WriteError(w, req, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Probes are not rate limited or access logged.
	r.Route("/health", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		r.Use(middleware.AccessLog(router.slowRequest))
		r.Use(router.chiMiddleware.RateLimit("/api/v1"))
		r.Use(APISecurityHeaders())
		r.Use(router.chiMiddleware.LimitBody())

		r.Post("/predict", router.handler.Predict)
		r.Post("/persona", router.handler.Persona)
		r.Get("/persona/{sessionID}", router.handler.PersonaLookup)
		r.Delete("/persona/{sessionID}", router.handler.PersonaRelease)
		r.Post("/personalize", router.handler.Personalize)
		r.Post("/feedback", router.handler.Feedback)
		r.Get("/personas", router.handler.Personas)
	})

	return r
}
