package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mcoot/typerace/internal/model"
)

// NATSConfig holds NATS connection settings
type NATSConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns sensible defaults for NATS
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// conn is the subset of *nats.Conn the publisher needs
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes JSON-encoded race events to NATS core subjects
type NATSPublisher struct {
	nc     conn
	logger *slog.Logger
}

var _ Publisher = (*NATSPublisher)(nil)

// NewNATSPublisher connects to NATS
func NewNATSPublisher(cfg NATSConfig, logger *slog.Logger) (*NATSPublisher, error) {
	logger = logger.With(slog.String("component", "events"))

	opts := []nats.Option{
		nats.Name("typerace"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Error("nats error", slog.String("error", err.Error()))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSPublisher{nc: nc, logger: logger}, nil
}

func (p *NATSPublisher) PublishResultRecorded(_ context.Context, result *model.RaceResult) error {
	return p.publish(SubjectResultRecorded, result)
}

func (p *NATSPublisher) PublishRoomFinished(_ context.Context, finished *model.RoomFinished) error {
	return p.publish(SubjectRoomFinished, finished)
}

func (p *NATSPublisher) publish(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", subject, err)
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close drains pending messages and closes the connection
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}
