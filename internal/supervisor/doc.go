// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

/*
Package supervisor provides process supervision for Vitrine using suture v4.

# Overview

Long-running services are organized into three layers:

	RootSupervisor ("vitrine")
	├── DataSupervisor ("data-layer")
	│   ├── assignment-sweeper (IntervalService over persona.Assigner.Sweep)
	│   └── prediction-cache-purge (IntervalService over predict.Service.PurgeExpired)
	├── MessagingSupervisor ("messaging-layer")
	│   └── feedback-sink (feedback.Sink)
	└── APISupervisor ("api-layer")
	    └── http-server (HTTPServerService)

A crash in one layer restarts only that layer's services.

# Usage

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddDataService(services.NewIntervalService("assignment-sweeper", 10*time.Minute, sweep))
	tree.AddMessagingService(sink)
	tree.AddAPIService(services.NewHTTPServerService(server, 15*time.Second))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("Supervisor stopped")
	}

# Failure Handling

Each failure increments a counter that decays over FailureDecay seconds.
Above FailureThreshold the supervisor waits FailureBackoff before the next
restart. Services return ctx.Err() on shutdown and an error on failure;
returning nil means "done" and the service is not restarted.

# Debugging Shutdown Issues

	report, _ := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    logging.Warn().Str("service", svc.Name).Msg("Service did not stop")
	}
*/
package supervisor
