package models

import (
	"time"
)

// DeliveryStatus represents the status of a delivery
type DeliveryStatus string

const (
	DeliveryStatusAssigned DeliveryStatus = "assigned"
	DeliveryStatusPickedUp DeliveryStatus = "picked_up"
	DeliveryStatusOnTheWay DeliveryStatus = "on_the_way"
	DeliveryStatusArrived  DeliveryStatus = "arrived"
	DeliveryStatusDelivered DeliveryStatus = "delivered"

	// Legacy statuses still present in older rows. They are accepted when
	// reading but are never valid targets or sources for Advance.
	DeliveryStatusLegacyPending        DeliveryStatus = "pending"
	DeliveryStatusLegacyInTransit      DeliveryStatus = "in_transit"
	DeliveryStatusLegacyOutForDelivery DeliveryStatus = "out_for_delivery"
	DeliveryStatusLegacyFailed         DeliveryStatus = "failed"
	DeliveryStatusLegacyReturned       DeliveryStatus = "returned"
)

// deliverySuccessors lists the statuses a delivery may move to from each
// current status. The chain only moves forward; a delivered delivery never
// regresses. A courier may go straight from picked_up or on_the_way to
// delivered for short runs, but never skip the pickup itself.
var deliverySuccessors = map[DeliveryStatus][]DeliveryStatus{
	DeliveryStatusAssigned: {DeliveryStatusPickedUp},
	DeliveryStatusPickedUp: {DeliveryStatusOnTheWay, DeliveryStatusDelivered},
	DeliveryStatusOnTheWay: {DeliveryStatusArrived, DeliveryStatusDelivered},
	DeliveryStatusArrived:  {DeliveryStatusDelivered},
	DeliveryStatusDelivered: {},
}

// ValidDeliveryStatus reports whether s is a known status, legacy included
func ValidDeliveryStatus(s DeliveryStatus) bool {
	if _, ok := deliverySuccessors[s]; ok {
		return true
	}
	switch s {
	case DeliveryStatusLegacyPending, DeliveryStatusLegacyInTransit,
		DeliveryStatusLegacyOutForDelivery, DeliveryStatusLegacyFailed,
		DeliveryStatusLegacyReturned:
		return true
	}
	return false
}

// CanAdvanceDelivery reports whether a delivery in status from may move to to
func CanAdvanceDelivery(from, to DeliveryStatus) bool {
	for _, next := range deliverySuccessors[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Delivery is the courier-facing fulfillment record for one order
type Delivery struct {
	ID              string         `db:"id" json:"id"`
	OrderID         string         `db:"order_id" json:"order_id"`
	CourierID       *string        `db:"courier_id" json:"courier_id,omitempty"`
	Status          DeliveryStatus `db:"status" json:"status"`
	CurrentLocation *string        `db:"current_location" json:"current_location,omitempty"`
	EstimatedDelivery *time.Time   `db:"estimated_delivery" json:"estimated_delivery,omitempty"`
	Notes           *string        `db:"notes" json:"notes,omitempty"`
	AssignedAt      *time.Time     `db:"assigned_at" json:"assigned_at,omitempty"`
	PickedUpAt      *time.Time     `db:"picked_up_at" json:"picked_up_at,omitempty"`
	DeliveredAt     *time.Time     `db:"delivered_at" json:"delivered_at,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// NewDelivery creates an unclaimed delivery for an order
func NewDelivery(orderID string) *Delivery {
	now := GetCurrentTime()

	return &Delivery{
		ID:        GenerateID("dlv"),
		OrderID:   orderID,
		Status:    DeliveryStatusAssigned,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TrackingInfo is the read-only projection returned to authorized trackers
type TrackingInfo struct {
	DeliveryID        string         `json:"delivery_id"`
	OrderID           string         `json:"order_id"`
	Status            DeliveryStatus `json:"status"`
	CourierName       string         `json:"courier_name"`
	EstimatedDelivery *time.Time     `json:"estimated_delivery,omitempty"`
	CurrentLocation   *string        `json:"current_location,omitempty"`
	Notes             *string        `json:"notes,omitempty"`
	AssignedAt        *time.Time     `json:"assigned_at,omitempty"`
	PickedUpAt        *time.Time     `json:"picked_up_at,omitempty"`
	DeliveredAt       *time.Time     `json:"delivered_at,omitempty"`
}
