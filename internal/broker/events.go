package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"order-analytics/internal/models"
	"order-analytics/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing report events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// Events of one report share a key so they stay ordered within a partition.
func reportKey(report string) string {
	return fmt.Sprintf("report-%s", report)
}

// PublishReportRequested publishes ReportRequested event
func (ep *EventPublisher) PublishReportRequested(ctx context.Context, event *models.ReportRequestedEvent) error {
	return ep.producer.PublishEvent(ctx, reportKey(event.Report), event)
}

// PublishReportGenerated publishes ReportGenerated event
func (ep *EventPublisher) PublishReportGenerated(ctx context.Context, event *models.ReportGeneratedEvent) error {
	return ep.producer.PublishEvent(ctx, reportKey(event.Report), event)
}

// PublishReportFailed publishes ReportFailed event
func (ep *EventPublisher) PublishReportFailed(ctx context.Context, event *models.ReportFailedEvent) error {
	return ep.producer.PublishEvent(ctx, reportKey(event.Report), event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onReportRequested func(context.Context, *models.ReportRequestedEvent) error
	logger            *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnReportRequested registers a handler for ReportRequested events
func (eh *EventHandler) OnReportRequested(handler func(context.Context, *models.ReportRequestedEvent) error) {
	eh.onReportRequested = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID),
	)

	switch baseEvent.EventType {
	case models.EventTypeReportRequested:
		if eh.onReportRequested != nil {
			var event models.ReportRequestedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ReportRequested event: %w", err)
			}
			return eh.onReportRequested(ctx, &event)
		}

	case models.EventTypeReportGenerated, models.EventTypeReportFailed:
		// Outcome events are for downstream consumers.

	default:
		eh.logger.Warn("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}
