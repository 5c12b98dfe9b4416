package models

import (
	"time"
)

// OrderItem is a single line of an order. UnitPrice is a snapshot of the
// product price at order time; later price changes never touch it.
type OrderItem struct {
	ID         string    `db:"id" json:"id"`
	OrderID    string    `db:"order_id" json:"order_id"`
	ProductID  string    `db:"product_id" json:"product_id"`
	Quantity   int       `db:"quantity" json:"quantity"`
	UnitPrice  float64   `db:"unit_price" json:"unit_price"`
	TotalPrice float64   `db:"total_price" json:"total_price"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// NewOrderItem creates an order line with the price frozen at unitPrice
func NewOrderItem(orderID, productID string, quantity int, unitPrice float64) *OrderItem {
	return &OrderItem{
		ID:         GenerateID("itm"),
		OrderID:    orderID,
		ProductID:  productID,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		TotalPrice: unitPrice * float64(quantity),
		CreatedAt:  GetCurrentTime(),
	}
}

// SumItems returns the order total implied by the given lines
func SumItems(items []*OrderItem) float64 {
	var total float64
	for _, item := range items {
		total += item.TotalPrice
	}
	return total
}
