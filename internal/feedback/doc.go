// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

// Package feedback forwards client interaction signals to a message bus.
//
// Sink.Submit is fire-and-forget: it validates the signal, stamps an ID and
// receive time, and enqueues it without blocking. Sink.Serve runs under the
// supervisor and publishes each signal as a JSON Watermill message, either
// to an in-process gochannel or to NATS JetStream (see NewPublisher).
package feedback
