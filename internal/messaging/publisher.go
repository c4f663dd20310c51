// Package messaging hands lifecycle signals to the EDI and notification gateway.
// The core never waits on the gateway for correctness; delivery outcomes come back
// through send status columns and EDI logs.
package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/straye-as/fms-api/internal/config"
	"go.uber.org/zap"
)

// Event types published to the gateway
const (
	EventDocumentIssued   = "document.issued"
	EventPreAlertDue      = "prealert.due"
	EventArrivalNotice    = "arrival.notice"
	EventCustomsSubmitted = "customs.submitted"
	EventShipmentStatus   = "shipment.status"
)

// Event is the envelope every message is wrapped in
type Event struct {
	Type       string      `json:"type"`
	Key        string      `json:"key"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

// NewEvent builds an envelope stamped with the current time
func NewEvent(eventType, key string, payload interface{}) Event {
	return Event{Type: eventType, Key: key, OccurredAt: time.Now().UTC(), Payload: payload}
}

// Publisher is the interface used by services to publish events.
type Publisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// NoopPublisher logs events instead of sending them. Used when messaging is disabled.
type NoopPublisher struct {
	logger *zap.Logger
}

// NewNoopPublisher creates a publisher that only logs
func NewNoopPublisher(logger *zap.Logger) *NoopPublisher {
	return &NoopPublisher{logger: logger}
}

// Publish logs the key and succeeds
func (p *NoopPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	p.logger.Debug("messaging disabled, event dropped", zap.String("key", key))
	return nil
}

// Close does nothing
func (p *NoopPublisher) Close() error { return nil }

// New builds the publisher selected by cfg.Driver
func New(cfg *config.MessagingConfig, logger *zap.Logger) (Publisher, error) {
	switch cfg.Driver {
	case "", "none":
		return NewNoopPublisher(logger), nil
	case "kafka":
		if len(cfg.Brokers) == 0 || cfg.Topic == "" {
			return nil, fmt.Errorf("kafka messaging requires brokers and topic")
		}
		return NewKafkaPublisher(cfg.Brokers, cfg.Topic, logger), nil
	case "rabbitmq":
		if cfg.RabbitURL == "" || cfg.Queue == "" {
			return nil, fmt.Errorf("rabbitmq messaging requires url and queue")
		}
		return NewRabbitPublisher(cfg.RabbitURL, cfg.Queue, logger)
	default:
		return nil, fmt.Errorf("unknown messaging driver %q", cfg.Driver)
	}
}
