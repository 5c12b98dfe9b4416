package models

import (
	"time"
)

// PaymentMethod is the payment instrument chosen by the client
type PaymentMethod string

const (
	PaymentMethodCreditCard  PaymentMethod = "credit_card"
	PaymentMethodMobileMoney PaymentMethod = "mobile_money"
	PaymentMethodPaypal      PaymentMethod = "paypal"
)

// ValidPaymentMethod reports whether m is a supported method
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodMobileMoney, PaymentMethodPaypal:
		return true
	}
	return false
}

// Payment records a completed gateway transaction for an order
type Payment struct {
	ID            string        `db:"id" json:"id"`
	OrderID       string        `db:"order_id" json:"order_id"`
	UserID        string        `db:"user_id" json:"user_id"`
	Amount        float64       `db:"amount" json:"amount"`
	Method        PaymentMethod `db:"method" json:"method"`
	TransactionID string        `db:"transaction_id" json:"transaction_id"`
	Status        string        `db:"status" json:"status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// NewPayment creates a completed payment record
func NewPayment(orderID, userID string, amount float64, method PaymentMethod, transactionID string) *Payment {
	return &Payment{
		ID:            GenerateID("pay"),
		OrderID:       orderID,
		UserID:        userID,
		Amount:        amount,
		Method:        method,
		TransactionID: transactionID,
		Status:        "completed",
		CreatedAt:     GetCurrentTime(),
	}
}

// User is the slice of the identity record the core needs: names for
// tracking projections. Authentication happens upstream.
type User struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Role Role   `db:"role" json:"role"`
}
