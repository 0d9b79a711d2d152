// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/metrics"
)

// ErrBufferFull is returned by Submit when the signal was dropped.
var ErrBufferFull = errors.New("feedback buffer full")

// Sink accepts feedback signals without blocking and publishes them from a
// single background loop.
type Sink struct {
	publisher    message.Publisher
	topic        string
	queue        chan Signal
	drainTimeout time.Duration
	now          func() time.Time
	logger       zerolog.Logger
}

// NewSink creates a sink publishing to pub. Serve must be running for
// signals to leave the buffer.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSink(pub message.Publisher, cfg *Config, logger zerolog.Logger) (*Sink, error) {
	if pub == nil {
		return nil, errors.New("publisher is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid feedback config: %w", err)
	}
	return &Sink{
		publisher:    pub,
		topic:        cfg.Topic,
		queue:        make(chan Signal, cfg.BufferSize),
		drainTimeout: cfg.PublishTimeout,
		now:          time.Now,
		logger:       logger.With().Str("component", "feedback").Logger(),
	}, nil
}

// Submit validates sig and queues it. It never blocks: when the buffer is
// full the signal is dropped and ErrBufferFull returned.
func (s *Sink) Submit(sig Signal) error {
	if err := sig.Validate(); err != nil {
		return err
	}
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	sig.ReceivedAt = s.now().UTC()
	if sig.Timestamp.IsZero() {
		sig.Timestamp = sig.ReceivedAt
	}

	select {
	case s.queue <- sig:
		metrics.RecordFeedback(metrics.FeedbackAccepted)
		metrics.UpdateFeedbackQueueDepth(len(s.queue))
		return nil
	default:
		metrics.RecordFeedback(metrics.FeedbackDropped)
		return ErrBufferFull
	}
}

// Pending returns the number of buffered signals.
func (s *Sink) Pending() int {
	return len(s.queue)
}

// Serve publishes queued signals until ctx is canceled, then drains the
// buffer for at most the configured publish timeout.
// Implements suture.Service.
func (s *Sink) Serve(ctx context.Context) error {
	s.logger.Info().Str("topic", s.topic).Msg("Feedback sink started")

	for {
		select {
		case <-ctx.Done():
			s.drain()
			s.logger.Info().Msg("Feedback sink stopped")
			return ctx.Err()
		case sig := <-s.queue:
			s.publish(sig)
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (s *Sink) String() string {
	return "feedback-sink"
}

func (s *Sink) drain() {
	deadline := time.NewTimer(s.drainTimeout)
	defer deadline.Stop()

	for {
		select {
		case sig := <-s.queue:
			s.publish(sig)
		case <-deadline.C:
			if n := len(s.queue); n > 0 {
				s.logger.Warn().Int("pending", n).Msg("Feedback drain timed out")
			}
			return
		default:
			return
		}
	}
}

func (s *Sink) publish(sig Signal) {
	defer metrics.UpdateFeedbackQueueDepth(len(s.queue))

	data, err := json.Marshal(&sig)
	if err != nil {
		metrics.RecordFeedback(metrics.FeedbackFailed)
		s.logger.Error().Err(err).Str("signal_id", sig.ID).Msg("Failed to encode feedback signal")
		return
	}

	msg := message.NewMessage(sig.ID, data)
	msg.Metadata.Set("action", sig.Action)
	if sig.SessionID != "" {
		msg.Metadata.Set("session_id", sig.SessionID)
	}

	if err := s.publisher.Publish(s.topic, msg); err != nil {
		metrics.RecordFeedback(metrics.FeedbackFailed)
		s.logger.Warn().Err(err).Str("signal_id", sig.ID).Msg("Failed to publish feedback signal")
		return
	}
	metrics.RecordFeedback(metrics.FeedbackPublished)
}
