package models

import (
	"time"
)

// Product is a pharmacy's catalog entry. Stock is the scarce resource the
// order engine reserves and releases; nothing else mutates it.
type Product struct {
	ID         string    `db:"id" json:"id"`
	PharmacyID string    `db:"pharmacy_id" json:"pharmacy_id"`
	CategoryID *string   `db:"category_id" json:"category_id,omitempty"`
	Name       string    `db:"name" json:"name"`
	Price      float64   `db:"price" json:"price"`
	Stock      int       `db:"stock" json:"stock"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// StockSnapshot is what a successful stock reservation returns: the frozen
// pricing and ownership data captured in the same statement that debited the
// stock.
type StockSnapshot struct {
	ProductID  string  `db:"id"`
	PharmacyID string  `db:"pharmacy_id"`
	Name       string  `db:"name"`
	Price      float64 `db:"price"`
}
