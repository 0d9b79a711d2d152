// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

var _ suture.Service = (*IntervalService)(nil)

func TestIntervalService_RunsUntilCanceled(t *testing.T) {
	var runs atomic.Int32
	svc := NewIntervalService("assignment-sweeper", 10*time.Millisecond, func(context.Context) (int, error) {
		runs.Add(1)
		return 2, nil
	}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 75*time.Millisecond)
	defer cancel()

	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() error = %v, want context.DeadlineExceeded", err)
	}
	if runs.Load() < 3 {
		t.Errorf("task ran %d times, want at least 3", runs.Load())
	}
	if svc.String() != "assignment-sweeper" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestIntervalService_FailuresDoNotStopTheLoop(t *testing.T) {
	var buf bytes.Buffer
	var runs atomic.Int32
	svc := NewIntervalService("prediction-cache-purge", 10*time.Millisecond, func(context.Context) (int, error) {
		runs.Add(1)
		return 0, errors.New("transaction conflict")
	}, zerolog.New(&buf))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_ = svc.Serve(ctx)

	if runs.Load() < 2 {
		t.Errorf("task ran %d times after failing, want at least 2", runs.Load())
	}
	out := buf.String()
	if !strings.Contains(out, "transaction conflict") || !strings.Contains(out, `"service":"prediction-cache-purge"`) {
		t.Errorf("failure not logged with service name:\n%s", out)
	}
}

func TestNewIntervalService_DefaultInterval(t *testing.T) {
	svc := NewIntervalService("x", 0, func(context.Context) (int, error) { return 0, nil }, zerolog.Nop())
	if svc.interval != time.Minute {
		t.Errorf("interval = %v, want 1m", svc.interval)
	}
}
