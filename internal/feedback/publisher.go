// Vitrine - Storefront Personalization Decision Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package feedback

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"
)

// Publisher backends.
const (
	BackendChannel = "channel"
	BackendNATS    = "nats"
)

// DefaultTopic is where feedback signals are published.
const DefaultTopic = "vitrine.feedback"

// Config selects and tunes the feedback transport.
type Config struct {
	// Backend is "channel" (in-process) or "nats" (JetStream).
	Backend string `koanf:"backend"`

	Topic string `koanf:"topic"`

	// BufferSize bounds signals waiting to be published; Submit drops beyond it.
	BufferSize int `koanf:"buffer_size"`

	// PublishTimeout bounds the drain of buffered signals at shutdown.
	PublishTimeout time.Duration `koanf:"publish_timeout"`

	NATS NATSConfig `koanf:"nats"`
}

// NATSConfig holds JetStream publisher settings.
type NATSConfig struct {
	URL             string        `koanf:"url"`
	MaxReconnects   int           `koanf:"max_reconnects"`
	ReconnectWait   time.Duration `koanf:"reconnect_wait"`
	ReconnectBuffer int           `koanf:"reconnect_buffer"`
	TrackMsgID      bool          `koanf:"track_msg_id"`
	AutoProvision   bool          `koanf:"auto_provision"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendChannel,
		Topic:          DefaultTopic,
		BufferSize:     1024,
		PublishTimeout: 5 * time.Second,
		NATS: NATSConfig{
			URL:             natsgo.DefaultURL,
			MaxReconnects:   -1, // Unlimited
			ReconnectWait:   2 * time.Second,
			ReconnectBuffer: 8 * 1024 * 1024, // 8MB
			TrackMsgID:      true,
			AutoProvision:   true,
		},
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendChannel:
	case BackendNATS:
		if c.NATS.URL == "" {
			return fmt.Errorf("feedback nats url is required for the nats backend")
		}
	default:
		return fmt.Errorf("feedback backend must be %q or %q, got %q", BackendChannel, BackendNATS, c.Backend)
	}
	if c.Topic == "" {
		return fmt.Errorf("feedback topic is required")
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("feedback buffer_size must be positive, got %d", c.BufferSize)
	}
	if c.PublishTimeout <= 0 {
		return fmt.Errorf("feedback publish_timeout must be positive, got %v", c.PublishTimeout)
	}
	return nil
}

// NewPublisher creates the Watermill publisher for cfg.Backend.
//
// The channel backend keeps signals in process; it is what tests and single
// node deployments use. The NATS backend publishes to JetStream with the
// message UUID as Nats-Msg-Id so redeliveries are deduplicated.
func NewPublisher(cfg *Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	switch cfg.Backend {
	case BackendChannel:
		return gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: int64(cfg.BufferSize),
		}, logger), nil
	case BackendNATS:
		return newNATSPublisher(&cfg.NATS, logger)
	default:
		return nil, fmt.Errorf("unknown feedback backend %q", cfg.Backend)
	}
}

func newNATSPublisher(cfg *NATSConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: cfg.AutoProvision,
			TrackMsgId:    cfg.TrackMsgID,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}
	return pub, nil
}
