package observability

import (
	"context"

	"go.uber.org/zap"
)

// EventBus implements the domain.EventPublisher interface by writing audit
// events to the structured log.
type EventBus struct {
	logger *zap.Logger
}

// NewEventBus creates a new event bus.
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		logger: logger,
	}
}

// Publish publishes an event with the given type and data.
func (e *EventBus) Publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if e == nil || e.logger == nil {
		return
	}

	fields := make([]zap.Field, 0, len(data)+1)
	fields = append(fields, zap.String("event", eventType))
	for k, v := range data {
		fields = append(fields, zap.Any(k, v))
	}

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}

	e.logger.Info("audit event", fields...)
}
