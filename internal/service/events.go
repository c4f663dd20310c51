package service

import (
	"context"

	"github.com/straye-as/fms-api/internal/messaging"
	"go.uber.org/zap"
)

// publishEvent hands an event to the gateway after the owning transaction committed.
// Delivery failures are logged; the caller's result stands.
func publishEvent(ctx context.Context, publisher messaging.Publisher, logger *zap.Logger, eventType, key string, payload interface{}) error {
	if publisher == nil {
		return nil
	}
	if err := publisher.Publish(ctx, key, messaging.NewEvent(eventType, key, payload)); err != nil {
		logger.Warn("failed to publish event",
			zap.String("event_type", eventType),
			zap.String("key", key),
			zap.Error(err))
		return err
	}
	return nil
}
