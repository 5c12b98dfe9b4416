package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SpideeCode/uberPharmaV2/internal/models"
)

func strptr(s string) *string { return &s }

func TestAllows(t *testing.T) {
	assert.True(t, Allows(models.RoleAdmin, ResourcePayment, CapDelete))
	assert.True(t, Allows(models.RoleClient, ResourceOrder, CapCreate))
	assert.False(t, Allows(models.RolePharmacy, ResourceOrder, CapCreate))
	assert.False(t, Allows(models.RoleCourier, ResourceCart, CapView))
	assert.False(t, Allows(models.RoleClient, ResourceProduct, CapUpdate))
}

func TestCanViewOrder(t *testing.T) {
	order := &models.Order{ID: "ord-1", UserID: "usr-1", PharmacyID: "phm-1"}

	owner := models.Actor{UserID: "usr-1", Role: models.RoleClient}
	stranger := models.Actor{UserID: "usr-2", Role: models.RoleClient}
	pharmacy := models.Actor{UserID: "usr-3", Role: models.RolePharmacy, PharmacyID: "phm-1"}
	otherPharmacy := models.Actor{UserID: "usr-4", Role: models.RolePharmacy, PharmacyID: "phm-2"}
	admin := models.Actor{UserID: "usr-5", Role: models.RoleAdmin}

	assert.True(t, CanViewOrder(owner, order))
	assert.False(t, CanViewOrder(stranger, order))
	assert.True(t, CanViewOrder(pharmacy, order))
	assert.False(t, CanViewOrder(otherPharmacy, order))
	assert.True(t, CanViewOrder(admin, order))
}

func TestCanViewOrderCourier(t *testing.T) {
	unassigned := &models.Order{ID: "ord-1", UserID: "usr-1", PharmacyID: "phm-1"}
	assigned := &models.Order{ID: "ord-2", UserID: "usr-1", PharmacyID: "phm-1", CourierID: strptr("cou-1")}

	courier := models.Actor{UserID: "cou-1", Role: models.RoleCourier}
	otherCourier := models.Actor{UserID: "cou-2", Role: models.RoleCourier}

	assert.False(t, CanViewOrder(courier, unassigned))
	assert.True(t, CanViewOrder(courier, assigned))
	assert.False(t, CanViewOrder(otherCourier, assigned))
}

func TestCanMutateDelivery(t *testing.T) {
	unclaimed := &models.Delivery{ID: "dlv-1", OrderID: "ord-1"}
	claimed := &models.Delivery{ID: "dlv-2", OrderID: "ord-2", CourierID: strptr("cou-1")}

	courier := models.Actor{UserID: "cou-1", Role: models.RoleCourier}
	otherCourier := models.Actor{UserID: "cou-2", Role: models.RoleCourier}
	client := models.Actor{UserID: "usr-1", Role: models.RoleClient}
	admin := models.Actor{UserID: "adm-1", Role: models.RoleAdmin}

	assert.True(t, CanMutateDelivery(courier, unclaimed))
	assert.True(t, CanMutateDelivery(courier, claimed))
	assert.False(t, CanMutateDelivery(otherCourier, claimed))
	assert.False(t, CanMutateDelivery(client, unclaimed))
	assert.True(t, CanMutateDelivery(admin, claimed))
}

func TestCanTrackDelivery(t *testing.T) {
	order := &models.Order{ID: "ord-1", UserID: "usr-1", PharmacyID: "phm-1"}
	delivery := &models.Delivery{ID: "dlv-1", OrderID: "ord-1", CourierID: strptr("cou-1")}

	assert.True(t, CanTrackDelivery(models.Actor{UserID: "usr-1", Role: models.RoleClient}, delivery, order))
	assert.True(t, CanTrackDelivery(models.Actor{UserID: "cou-1", Role: models.RoleCourier}, delivery, order))
	assert.True(t, CanTrackDelivery(models.Actor{UserID: "adm-1", Role: models.RoleAdmin}, delivery, order))
	assert.False(t, CanTrackDelivery(models.Actor{UserID: "usr-9", Role: models.RoleClient}, delivery, order))
	assert.False(t, CanTrackDelivery(models.Actor{UserID: "cou-9", Role: models.RoleCourier}, delivery, order))
}
