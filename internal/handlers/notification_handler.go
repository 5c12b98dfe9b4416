package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Shopify/sarama"

	"github.com/SpideeCode/uberPharmaV2/internal/models"
	"github.com/SpideeCode/uberPharmaV2/pkg/logger"
)

// NotificationHandler consumes order lifecycle events from Kafka and fans
// them out as notifications. Delivery channels (push, mail) plug in behind
// the log lines.
type NotificationHandler struct {
	logger logger.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(logger logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		logger: logger,
	}
}

// HandleMessage handles incoming lifecycle events from Kafka messages
func (h *NotificationHandler) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event models.OutboxMessageEvent

	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Error("failed to unmarshal message", "error", err)
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	h.logger.Info("Handling lifecycle event",
		"eventType", event.EventType,
		"eventId", event.EventID,
		"aggregateId", event.AggregateID,
		"occurredAt", event.OccurredAt,
	)

	switch event.EventType {
	case "order_created":
		return h.handleOrderCreated(event)
	case "order_status_changed":
		return h.handleOrderStatusChanged(event)
	case "delivery_status_changed":
		return h.handleDeliveryStatusChanged(event)
	case "payment_processed":
		return h.handlePaymentProcessed(event)
	default:
		h.logger.Warn("unknown event type", "eventType", event.EventType)
		return nil
	}
}

func (h *NotificationHandler) handleOrderCreated(event models.OutboxMessageEvent) error {
	h.logger.Info("Notifying pharmacy of new order",
		"orderID", event.AggregateID,
		"eventID", event.EventID,
	)

	return nil
}

func (h *NotificationHandler) handleOrderStatusChanged(event models.OutboxMessageEvent) error {
	data, ok := event.Data.(map[string]interface{})

	if !ok {
		h.logger.Error("Invalid event data format", "eventID", event.EventID)
		return fmt.Errorf("invalid event data format")
	}

	oldStatus, _ := data["old_status"].(string)
	newStatus, _ := data["new_status"].(string)

	h.logger.Info("Notifying client of order status change",
		"orderID", event.AggregateID,
		"oldStatus", oldStatus,
		"newStatus", newStatus)

	return nil
}

func (h *NotificationHandler) handleDeliveryStatusChanged(event models.OutboxMessageEvent) error {
	data, ok := event.Data.(map[string]interface{})

	if !ok {
		h.logger.Error("Invalid event data format", "eventID", event.EventID)
		return fmt.Errorf("invalid event data format")
	}

	newStatus, _ := data["new_status"].(string)

	h.logger.Info("Notifying client of delivery progress",
		"orderID", event.AggregateID,
		"status", newStatus)

	return nil
}

func (h *NotificationHandler) handlePaymentProcessed(event models.OutboxMessageEvent) error {
	h.logger.Info("Sending payment receipt",
		"orderID", event.AggregateID,
		"eventID", event.EventID)

	return nil
}
