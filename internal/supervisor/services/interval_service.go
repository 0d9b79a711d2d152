// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// IntervalTask is one housekeeping pass. It returns how many items it
// processed, for logging.
type IntervalTask func(ctx context.Context) (int, error)

// IntervalService runs a task on a fixed interval. A failing pass is logged
// and retried on the next tick; it does not stop the service.
//
//	sweep := services.NewIntervalService("assignment-sweeper", 10*time.Minute, assigner.Sweep, logger)
//	tree.AddDataService(sweep)
type IntervalService struct {
	name     string
	interval time.Duration
	task     IntervalTask
	logger   zerolog.Logger
}

// NewIntervalService creates the service. A non-positive interval means 1m.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewIntervalService(name string, interval time.Duration, task IntervalTask, logger zerolog.Logger) *IntervalService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &IntervalService{
		name:     name,
		interval: interval,
		task:     task,
		logger:   logger.With().Str("service", name).Logger(),
	}
}

// Serve implements suture.Service.
func (s *IntervalService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *IntervalService) runOnce(ctx context.Context) {
	start := time.Now()
	n, err := s.task(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Housekeeping pass failed")
		return
	}
	if n > 0 {
		s.logger.Debug().Int("processed", n).Dur("duration", time.Since(start)).Msg("Housekeeping pass completed")
	}
}

func (s *IntervalService) String() string {
	return s.name
}
