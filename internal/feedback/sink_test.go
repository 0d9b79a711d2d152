// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package feedback

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/tomtom215/vitrine/internal/metrics"
	"github.com/tomtom215/vitrine/internal/validation"
)

// recordingPublisher captures published messages and optionally fails.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []*message.Message
	err      error
}

func (p *recordingPublisher) Publish(_ string, msgs ...*message.Message) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msgs...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

func testSinkConfig(buffer int) *Config {
	cfg := DefaultConfig()
	cfg.BufferSize = buffer
	cfg.PublishTimeout = time.Second
	return &cfg
}

func validSignal() Signal {
	return Signal{SessionID: "sess-1", Action: "click", Element: "hero-cta", SessionDurationSec: 42}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"nats backend", func(c *Config) { c.Backend = BackendNATS }, false},
		{"nats without url", func(c *Config) { c.Backend = BackendNATS; c.NATS.URL = "" }, true},
		{"unknown backend", func(c *Config) { c.Backend = "kafka" }, true},
		{"empty topic", func(c *Config) { c.Topic = "" }, true},
		{"zero buffer", func(c *Config) { c.BufferSize = 0 }, true},
		{"zero publish timeout", func(c *Config) { c.PublishTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSignal_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(s *Signal)
		wantField string
	}{
		{"valid", func(*Signal) {}, ""},
		{"missing action", func(s *Signal) { s.Action = "" }, "action"},
		{"missing element", func(s *Signal) { s.Element = "" }, "element"},
		{"negative duration", func(s *Signal) { s.SessionDurationSec = -1 }, "session_duration"},
		{"bad session id", func(s *Signal) { s.SessionID = "has spaces" }, "session_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSignal()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			var verr *validation.RequestValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want RequestValidationError", err)
			}
			if got := verr.Errors()[0].Field(); got != tt.wantField {
				t.Errorf("field = %s, want %s", got, tt.wantField)
			}
		})
	}
}

func TestNewSink_Validation(t *testing.T) {
	if _, err := NewSink(nil, testSinkConfig(1), zerolog.Nop()); err == nil {
		t.Error("NewSink() without publisher should fail")
	}
	if _, err := NewSink(&recordingPublisher{}, testSinkConfig(0), zerolog.Nop()); err == nil {
		t.Error("NewSink() with zero buffer should fail")
	}
}

func TestSink_SubmitNeverBlocks(t *testing.T) {
	sink, err := NewSink(&recordingPublisher{}, testSinkConfig(2), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSink() error = %v", err)
	}

	dropped := testutil.ToFloat64(metrics.FeedbackSignals.WithLabelValues(metrics.FeedbackDropped))

	for i := 0; i < 2; i++ {
		if err := sink.Submit(validSignal()); err != nil {
			t.Fatalf("Submit(%d) error = %v", i, err)
		}
	}

	done := make(chan error, 1)
	go func() { done <- sink.Submit(validSignal()) }()

	select {
	case err := <-done:
		if !errors.Is(err, ErrBufferFull) {
			t.Errorf("Submit() on full buffer error = %v, want ErrBufferFull", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Submit() blocked on a full buffer")
	}

	if got := testutil.ToFloat64(metrics.FeedbackSignals.WithLabelValues(metrics.FeedbackDropped)) - dropped; got != 1 {
		t.Errorf("dropped counter delta = %v, want 1", got)
	}
	if sink.Pending() != 2 {
		t.Errorf("Pending() = %d, want 2", sink.Pending())
	}
}

func TestSink_SubmitRejectsInvalid(t *testing.T) {
	sink, err := NewSink(&recordingPublisher{}, testSinkConfig(4), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSink() error = %v", err)
	}

	s := validSignal()
	s.Action = ""
	if err := sink.Submit(s); err == nil {
		t.Error("Submit() accepted a signal without action")
	}
	if sink.Pending() != 0 {
		t.Error("invalid signal was queued")
	}
}

func TestSink_PublishesThroughGoChannel(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	defer pubSub.Close()

	cfg := testSinkConfig(8)
	messages, err := pubSub.Subscribe(context.Background(), cfg.Topic)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	sink, err := NewSink(pubSub, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSink() error = %v", err)
	}
	fixed := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)
	sink.now = func() time.Time { return fixed }

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- sink.Serve(ctx) }()

	if err := sink.Submit(validSignal()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	select {
	case msg := <-messages:
		msg.Ack()
		var got Signal
		if err := json.Unmarshal(msg.Payload, &got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if got.ID == "" || got.ID != msg.UUID {
			t.Errorf("signal ID = %q, message UUID = %q", got.ID, msg.UUID)
		}
		if got.Action != "click" || got.Element != "hero-cta" {
			t.Errorf("decoded signal = %+v", got)
		}
		if !got.ReceivedAt.Equal(fixed) || !got.Timestamp.Equal(fixed) {
			t.Errorf("timestamps = %v / %v, want %v", got.Timestamp, got.ReceivedAt, fixed)
		}
		if msg.Metadata.Get("session_id") != "sess-1" {
			t.Errorf("session_id metadata = %q", msg.Metadata.Get("session_id"))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message published")
	}

	cancel()
	if err := <-served; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}
}

func TestSink_DrainsOnShutdown(t *testing.T) {
	pub := &recordingPublisher{}
	sink, err := NewSink(pub, testSinkConfig(8), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSink() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := sink.Submit(validSignal()); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = sink.Serve(ctx)

	if pub.count() != 3 {
		t.Errorf("published %d signals, want 3", pub.count())
	}
	if sink.Pending() != 0 {
		t.Errorf("Pending() = %d after drain, want 0", sink.Pending())
	}
}

func TestSink_PublishFailureIsCounted(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats unavailable")}
	sink, err := NewSink(pub, testSinkConfig(4), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSink() error = %v", err)
	}

	failed := testutil.ToFloat64(metrics.FeedbackSignals.WithLabelValues(metrics.FeedbackFailed))
	if err := sink.Submit(validSignal()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = sink.Serve(ctx)

	if got := testutil.ToFloat64(metrics.FeedbackSignals.WithLabelValues(metrics.FeedbackFailed)) - failed; got != 1 {
		t.Errorf("failed counter delta = %v, want 1", got)
	}
}

func TestNewPublisher(t *testing.T) {
	cfg := DefaultConfig()
	pub, err := NewPublisher(&cfg, nil)
	if err != nil {
		t.Fatalf("NewPublisher(channel) error = %v", err)
	}
	if err := pub.Publish(cfg.Topic, message.NewMessage("m-1", []byte(`{}`))); err != nil {
		t.Errorf("Publish() error = %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	cfg.Backend = "kafka"
	if _, err := NewPublisher(&cfg, nil); err == nil {
		t.Error("NewPublisher() accepted an unknown backend")
	}
}

func TestWatermillLogger(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewWatermillLogger(zerolog.New(&buf)).With(watermill.LogFields{"topic": "vitrine.feedback"})

	adapter.Info("subscribed", watermill.LogFields{"consumer": "c1"})
	adapter.Error("publish failed", errors.New("timeout"), nil)

	out := buf.String()
	for _, want := range []string{`"topic":"vitrine.feedback"`, `"consumer":"c1"`, `"message":"subscribed"`, `"error":"timeout"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}
