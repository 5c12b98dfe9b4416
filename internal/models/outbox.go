package models

import (
	"encoding/json"
	"time"
)

// OutboxStatus represents the status of an outbox message
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusCompleted  OutboxStatus = "completed"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// OutboxMessage is a row in the transactional outbox, written in the same
// transaction as the state change it describes
type OutboxMessage struct {
	ID                 int64        `db:"id" json:"id"`
	AggregateType      string       `db:"aggregate_type" json:"aggregate_type"`
	AggregateID        string       `db:"aggregate_id" json:"aggregate_id"`
	EventType          string       `db:"event_type" json:"event_type"`
	Payload            []byte       `db:"payload" json:"payload"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	ProcessedAt        *time.Time   `db:"processed_at" json:"processed_at,omitempty"`
	ProcessingAttempts int          `db:"processing_attempts" json:"processing_attempts"`
	LastError          *string      `db:"last_error" json:"last_error,omitempty"`
	Status             OutboxStatus `db:"status" json:"status"`
}

// OutboxMessageEvent is the envelope serialized into the outbox payload
type OutboxMessageEvent struct {
	EventType   string      `json:"event_type"`
	EventID     string      `json:"event_id"`
	AggregateID string      `json:"aggregate_id"`
	OccurredAt  time.Time   `json:"occurred_at"`
	Data        interface{} `json:"data"`
}

func newOutboxMessage(aggregateType, aggregateID, eventType string, data interface{}) (*OutboxMessage, error) {
	event := OutboxMessageEvent{
		EventType:   eventType,
		EventID:     GenerateID("evt"),
		AggregateID: aggregateID,
		OccurredAt:  GetCurrentTime(),
		Data:        data,
	}

	payload, err := json.Marshal(event)

	if err != nil {
		return nil, err
	}

	return &OutboxMessage{
		AggregateType:      aggregateType,
		AggregateID:        aggregateID,
		EventType:          eventType,
		Payload:            payload,
		CreatedAt:          GetCurrentTime(),
		ProcessingAttempts: 0,
		Status:             OutboxStatusPending,
	}, nil
}

// NewOrderCreatedEvent creates the outbox message for a new order
func NewOrderCreatedEvent(order *Order) (*OutboxMessage, error) {
	return newOutboxMessage("order", order.ID, "order_created", order)
}

// NewOrderStatusChangedEvent creates the outbox message for an order status change
func NewOrderStatusChangedEvent(order *Order, oldStatus OrderStatus) (*OutboxMessage, error) {
	return newOutboxMessage("order", order.ID, "order_status_changed", map[string]interface{}{
		"order_id":   order.ID,
		"user_id":    order.UserID,
		"old_status": oldStatus,
		"new_status": order.Status,
	})
}

// NewDeliveryStatusChangedEvent creates the outbox message for a delivery status change
func NewDeliveryStatusChangedEvent(delivery *Delivery, oldStatus DeliveryStatus) (*OutboxMessage, error) {
	return newOutboxMessage("delivery", delivery.OrderID, "delivery_status_changed", map[string]interface{}{
		"delivery_id": delivery.ID,
		"order_id":    delivery.OrderID,
		"courier_id":  delivery.CourierID,
		"old_status":  oldStatus,
		"new_status":  delivery.Status,
	})
}

// NewPaymentProcessedEvent creates the outbox message for a processed payment
func NewPaymentProcessedEvent(payment *Payment) (*OutboxMessage, error) {
	return newOutboxMessage("order", payment.OrderID, "payment_processed", map[string]interface{}{
		"payment_id":     payment.ID,
		"order_id":       payment.OrderID,
		"user_id":        payment.UserID,
		"amount":         payment.Amount,
		"method":         payment.Method,
		"transaction_id": payment.TransactionID,
	})
}
