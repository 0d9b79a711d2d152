// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

/*
Package services provides suture.Service wrappers for Vitrine components.

Each wrapper translates a component lifecycle into suture's context-aware
Serve pattern and implements fmt.Stringer for supervisor event logs.

  - HTTPServerService: ListenAndServe plus graceful Shutdown with a drain timeout
  - IntervalService: periodic housekeeping (expired session assignments,
    expired prediction cache entries)

The feedback sink implements suture.Service itself and needs no wrapper.
*/
package services
