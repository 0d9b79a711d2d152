// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package main

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/vitrine/internal/config"
	"github.com/tomtom215/vitrine/internal/feedback"
	"github.com/tomtom215/vitrine/internal/logging"
)

// initFeedback creates the Watermill publisher for the configured backend
// and the sink in front of it. The caller closes the publisher after the
// sink has stopped.
func initFeedback(cfg *config.Config) (*feedback.Sink, message.Publisher, error) {
	wmLogger := feedback.NewWatermillLogger(logging.WithComponent("watermill"))

	pub, err := feedback.NewPublisher(&cfg.Feedback, wmLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("create feedback publisher: %w", err)
	}

	sink, err := feedback.NewSink(pub, &cfg.Feedback, logging.Logger())
	if err != nil {
		if closeErr := pub.Close(); closeErr != nil {
			logging.Error().Err(closeErr).Msg("Error closing feedback publisher")
		}
		return nil, nil, err
	}

	event := logging.Info().
		Str("backend", cfg.Feedback.Backend).
		Str("topic", cfg.Feedback.Topic).
		Int("buffer_size", cfg.Feedback.BufferSize)
	if cfg.Feedback.Backend == feedback.BackendNATS {
		event = event.Str("nats_url", cfg.Feedback.NATS.URL)
	}
	event.Msg("Feedback sink configured")

	return sink, pub, nil
}
