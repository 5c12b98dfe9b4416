package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCartRecalcTotals(t *testing.T) {
	cart := NewCart("usr-1", "phm-1")
	cart.DeliveryFee = 2.00
	cart.Items = []*CartItem{
		NewCartItem(cart.ID, "prd-a", 2, 3.50),
		NewCartItem(cart.ID, "prd-b", 1, 7.00),
	}

	cart.RecalcTotals()

	assert.InDelta(t, 14.00, cart.Subtotal, 0.001)
	assert.InDelta(t, 16.00, cart.Total, 0.001)
}

func TestCartItemLineTotalNeverTrusted(t *testing.T) {
	item := NewCartItem("crt-1", "prd-a", 3, 2.50)
	assert.InDelta(t, 7.50, item.LineTotal, 0.001)

	// A tampered line total is overwritten on the next recalc.
	item.LineTotal = 0.01
	item.Recalc()
	assert.InDelta(t, 7.50, item.LineTotal, 0.001)

	item.Quantity = 4
	item.Recalc()
	assert.InDelta(t, 10.00, item.LineTotal, 0.001)
}

func TestCartExpiry(t *testing.T) {
	cart := NewCart("usr-1", "phm-1")
	assert.False(t, cart.IsExpired())

	past := time.Now().UTC().Add(-time.Hour)
	cart.ExpiresAt = &past
	assert.True(t, cart.IsExpired())

	future := time.Now().UTC().Add(time.Hour)
	cart.ExpiresAt = &future
	assert.False(t, cart.IsExpired())
}
