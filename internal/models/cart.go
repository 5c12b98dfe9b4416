package models

import (
	"time"
)

// Cart is a user's active basket for one pharmacy. A user has at most one
// active cart per pharmacy.
type Cart struct {
	ID          string     `db:"id" json:"id"`
	UserID      string     `db:"user_id" json:"user_id"`
	PharmacyID  string     `db:"pharmacy_id" json:"pharmacy_id"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	Subtotal    float64    `db:"subtotal" json:"subtotal"`
	DeliveryFee float64    `db:"delivery_fee" json:"delivery_fee"`
	ServiceFee  float64    `db:"service_fee" json:"service_fee"`
	Total       float64    `db:"total" json:"total"`
	ExpiresAt   *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`

	Items []*CartItem `db:"-" json:"items,omitempty"`
}

// CartItem is one product line in a cart. LineTotal is always recomputed
// from quantity and the price captured at addition, never taken from input.
type CartItem struct {
	ID              string    `db:"id" json:"id"`
	CartID          string    `db:"cart_id" json:"cart_id"`
	ProductID       string    `db:"product_id" json:"product_id"`
	Quantity        int       `db:"quantity" json:"quantity"`
	PriceAtAddition float64   `db:"price_at_addition" json:"price_at_addition"`
	LineTotal       float64   `db:"line_total" json:"line_total"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// NewCart creates an active cart for the (user, pharmacy) pair
func NewCart(userID, pharmacyID string) *Cart {
	now := GetCurrentTime()

	return &Cart{
		ID:         GenerateID("crt"),
		UserID:     userID,
		PharmacyID: pharmacyID,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NewCartItem creates a cart line with the current product price captured
func NewCartItem(cartID, productID string, quantity int, price float64) *CartItem {
	now := GetCurrentTime()

	item := &CartItem{
		ID:              GenerateID("cti"),
		CartID:          cartID,
		ProductID:       productID,
		Quantity:        quantity,
		PriceAtAddition: price,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	item.Recalc()
	return item
}

// Recalc recomputes the line total from quantity and the captured price
func (i *CartItem) Recalc() {
	i.LineTotal = float64(i.Quantity) * i.PriceAtAddition
}

// RecalcTotals recomputes the cart subtotal and total from its items
func (c *Cart) RecalcTotals() {
	var subtotal float64
	for _, item := range c.Items {
		item.Recalc()
		subtotal += item.LineTotal
	}

	c.Subtotal = subtotal
	c.Total = subtotal + c.DeliveryFee + c.ServiceFee
	if c.Total < 0 {
		c.Total = 0
	}
}

// IsExpired reports whether the cart has passed its expiry
func (c *Cart) IsExpired() bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(GetCurrentTime())
}
