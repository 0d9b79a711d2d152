// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/tomtom215/vitrine/internal/api"
	"github.com/tomtom215/vitrine/internal/config"
	"github.com/tomtom215/vitrine/internal/logging"
	"github.com/tomtom215/vitrine/internal/metrics"
	"github.com/tomtom215/vitrine/internal/supervisor"
	"github.com/tomtom215/vitrine/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
		Output: os.Stdout,
	})

	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("addr", cfg.Server.Addr()).
		Msg("Starting Vitrine decision core")

	core, err := initDecisionCore(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize decision core")
	}
	defer func() {
		if err := core.store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing assignment store")
		}
	}()

	logging.Info().
		Str("feature_layout", core.layout.Signature()).
		Int("feature_length", core.layout.Len()).
		Str("catalog_version", core.catalog.Version()).
		Str("store", string(cfg.Persona.Store)).
		Msg("Decision core initialized")

	metrics.SetAppInfo(version, runtime.Version(), core.layout.Signature(), core.catalog.Version())

	sink, publisher, err := initFeedback(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize feedback sink")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing feedback publisher")
		}
	}()

	handler := api.NewHandler(core.engine, sink, core.predict)
	chiMW := api.NewChiMiddleware(&api.ChiMiddlewareConfig{
		CORSAllowedOrigins: cfg.Security.CORSOrigins,
		CORSAllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		CORSAllowedHeaders: api.DefaultChiMiddlewareConfig().CORSAllowedHeaders,
		CORSExposedHeaders: api.DefaultChiMiddlewareConfig().CORSExposedHeaders,
		CORSMaxAge:         86400,

		RateLimitRequests: cfg.Security.RateLimitReqs,
		RateLimitWindow:   cfg.Security.RateLimitWindow,
		RateLimitDisabled: cfg.Security.RateLimitDisabled,

		MaxBodyBytes: cfg.Security.MaxBodyBytes,
	})
	router := api.NewRouter(handler, chiMW, 0)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Create supervisor tree; sutureslog receives events through the slog adapter
	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	// Data layer: housekeeping for assignments and the prediction cache
	tree.AddDataService(services.NewIntervalService("assignment-sweeper",
		cfg.Persona.SweepInterval, core.assigner.Sweep, logging.Logger()))
	tree.AddDataService(services.NewIntervalService("prediction-cache-purge",
		cfg.Predict.CacheTTL, func(context.Context) (int, error) {
			return core.predict.PurgeExpired(), nil
		}, logging.Logger()))

	// Messaging layer: feedback publication
	tree.AddMessagingService(sink)

	// API layer: HTTP server
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, logging.Logger()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Received shutdown signal")
		handler.SetDraining()
		// The tree delivers exactly one result once every layer has stopped.
		treeErr = <-errCh
	case treeErr = <-errCh:
		stop()
	}
	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		logging.Error().Err(treeErr).Msg("Supervisor tree error")
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := core.predict.Close(closeCtx); err != nil {
		logging.Warn().Err(err).Msg("Prediction service did not finish in-flight inference")
	}

	logging.Info().Msg("Application stopped gracefully")
}
