package models

import (
	"time"
)

// AddressType classifies an address book entry
type AddressType string

const (
	AddressTypeHome  AddressType = "home"
	AddressTypeWork  AddressType = "work"
	AddressTypeOther AddressType = "other"
)

// ValidAddressType reports whether t is a known address type
func ValidAddressType(t AddressType) bool {
	switch t {
	case AddressTypeHome, AddressTypeWork, AddressTypeOther:
		return true
	}
	return false
}

// Address is a saved delivery destination in a user's address book. At most
// one address per user is the default; the service keeps that invariant when
// addresses are created, promoted, or deleted.
type Address struct {
	ID            string      `db:"id" json:"id"`
	UserID        string      `db:"user_id" json:"user_id"`
	Label         string      `db:"label" json:"label"`
	RecipientName string      `db:"recipient_name" json:"recipient_name"`
	PhoneNumber   string      `db:"phone_number" json:"phone_number"`
	AddressLine1  string      `db:"address_line1" json:"address_line1"`
	AddressLine2  *string     `db:"address_line2" json:"address_line2,omitempty"`
	City          string      `db:"city" json:"city"`
	State         string      `db:"state" json:"state"`
	PostalCode    string      `db:"postal_code" json:"postal_code"`
	Country       string      `db:"country" json:"country"`
	Landmark      *string     `db:"landmark" json:"landmark,omitempty"`
	Type          AddressType `db:"type" json:"type"`
	IsDefault     bool        `db:"is_default" json:"is_default"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at" json:"updated_at"`
}

// NewAddress creates an address book entry for a user
func NewAddress(userID string) *Address {
	now := GetCurrentTime()

	return &Address{
		ID:        GenerateID("adr"),
		UserID:    userID,
		Type:      AddressTypeHome,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
