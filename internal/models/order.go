package models

import (
	"time"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "pending"
	OrderStatusProcessing        OrderStatus = "processing"
	OrderStatusReadyForDelivery  OrderStatus = "ready_for_delivery"
	OrderStatusAssignedToCourier OrderStatus = "assigned_to_courier"
	OrderStatusInDelivery        OrderStatus = "in_delivery"
	OrderStatusDelivered         OrderStatus = "delivered"
	OrderStatusCompleted         OrderStatus = "completed"
	OrderStatusCancelled         OrderStatus = "cancelled"
	OrderStatusRefunded          OrderStatus = "refunded"
	OrderStatusPartiallyRefunded OrderStatus = "partially_refunded"
)

// ValidOrderStatus reports whether s is a known order status
func ValidOrderStatus(s OrderStatus) bool {
	_, ok := orderTransitions[s]
	return ok
}

// IsTerminalOrderStatus reports whether no further transition leaves s
func IsTerminalOrderStatus(s OrderStatus) bool {
	return len(orderTransitions[s]) == 0
}

// orderTransitions is the single source of truth for the order state machine:
// for each current status, the set of reachable statuses and the roles allowed
// to request each transition. Ownership checks (the client owns the order, the
// courier is the assigned one) happen in the policy layer, not here.
var orderTransitions = map[OrderStatus]map[OrderStatus][]Role{
	OrderStatusPending: {
		OrderStatusProcessing:        {RolePharmacy, RoleAdmin},
		OrderStatusReadyForDelivery:  {RolePharmacy, RoleAdmin},
		OrderStatusCancelled:         {RoleClient, RolePharmacy, RoleAdmin},
		OrderStatusRefunded:          {RoleAdmin},
		OrderStatusPartiallyRefunded: {RoleAdmin},
	},
	OrderStatusProcessing: {
		OrderStatusReadyForDelivery:  {RolePharmacy, RoleAdmin},
		OrderStatusCancelled:         {RoleClient, RolePharmacy, RoleAdmin},
		OrderStatusRefunded:          {RoleAdmin},
		OrderStatusPartiallyRefunded: {RoleAdmin},
	},
	OrderStatusReadyForDelivery: {
		OrderStatusAssignedToCourier: {RoleCourier, RoleAdmin},
		OrderStatusCancelled:         {RoleClient, RolePharmacy, RoleAdmin},
		OrderStatusRefunded:          {RoleAdmin},
		OrderStatusPartiallyRefunded: {RoleAdmin},
	},
	OrderStatusAssignedToCourier: {
		OrderStatusInDelivery:        {RoleCourier, RoleAdmin},
		OrderStatusCancelled:         {RoleClient, RolePharmacy, RoleAdmin},
		OrderStatusRefunded:          {RoleAdmin},
		OrderStatusPartiallyRefunded: {RoleAdmin},
	},
	OrderStatusInDelivery: {
		OrderStatusDelivered:         {RoleCourier, RoleAdmin},
		OrderStatusCompleted:         {RoleCourier, RoleAdmin},
		OrderStatusCancelled:         {RoleClient, RolePharmacy, RoleAdmin},
		OrderStatusRefunded:          {RoleAdmin},
		OrderStatusPartiallyRefunded: {RoleAdmin},
	},
	OrderStatusDelivered: {
		OrderStatusRefunded:          {RoleAdmin},
		OrderStatusPartiallyRefunded: {RoleAdmin},
	},
	OrderStatusCompleted: {
		OrderStatusRefunded:          {RoleAdmin},
		OrderStatusPartiallyRefunded: {RoleAdmin},
	},
	OrderStatusCancelled:         {},
	OrderStatusRefunded:          {},
	OrderStatusPartiallyRefunded: {},
}

// TransitionExists reports whether the state machine has an edge from -> to
func TransitionExists(from, to OrderStatus) bool {
	_, ok := orderTransitions[from][to]
	return ok
}

// RoleCanTransition reports whether the given role may request the from -> to
// transition. The edge must exist; a missing edge is a state conflict, not a
// role problem.
func RoleCanTransition(from, to OrderStatus, role Role) bool {
	roles, ok := orderTransitions[from][to]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// RefundStatus reports whether s is one of the refund statuses
func RefundStatus(s OrderStatus) bool {
	return s == OrderStatusRefunded || s == OrderStatusPartiallyRefunded
}

// PaymentStatus represents the payment state of an order
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Order represents a client's purchase from one pharmacy
type Order struct {
	ID                 string      `db:"id" json:"id"`
	UserID             string      `db:"user_id" json:"user_id"`
	PharmacyID         string      `db:"pharmacy_id" json:"pharmacy_id"`
	CourierID          *string     `db:"courier_id" json:"courier_id,omitempty"`
	Status             OrderStatus `db:"status" json:"status"`
	TotalAmount        float64     `db:"total_amount" json:"total_amount"`
	PaymentStatus      PaymentStatus `db:"payment_status" json:"payment_status"`
	ShippingAddress    string      `db:"shipping_address" json:"shipping_address"`
	ShippingCity       string      `db:"shipping_city" json:"shipping_city"`
	ShippingPostalCode string      `db:"shipping_postal_code" json:"shipping_postal_code"`
	ShippingCountry    string      `db:"shipping_country" json:"shipping_country"`
	Notes              string      `db:"notes" json:"notes,omitempty"`
	CreatedAt          time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at" json:"updated_at"`

	// Items is populated by the repository when the order is loaded as a
	// full aggregate; it is not a database column.
	Items []*OrderItem `db:"-" json:"items,omitempty"`
}

// ShippingInfo is the destination block required when creating an order
type ShippingInfo struct {
	Address    string `json:"shipping_address"`
	City       string `json:"shipping_city"`
	PostalCode string `json:"shipping_postal_code"`
	Country    string `json:"shipping_country"`
	Notes      string `json:"notes,omitempty"`
}

// NewOrder creates a pending order for the given client and pharmacy
func NewOrder(userID, pharmacyID string, shipping ShippingInfo) *Order {
	now := GetCurrentTime()

	return &Order{
		ID:                 GenerateID("ord"),
		UserID:             userID,
		PharmacyID:         pharmacyID,
		Status:             OrderStatusPending,
		PaymentStatus:      PaymentStatusUnpaid,
		ShippingAddress:    shipping.Address,
		ShippingCity:       shipping.City,
		ShippingPostalCode: shipping.PostalCode,
		ShippingCountry:    shipping.Country,
		Notes:              shipping.Notes,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}
