package policy

import (
	"github.com/SpideeCode/uberPharmaV2/internal/models"
)

// Capability is an action an actor may hold on a resource type
type Capability string

const (
	CapView   Capability = "view"
	CapCreate Capability = "create"
	CapUpdate Capability = "update"
	CapDelete Capability = "delete"
)

// Resource is a kind of entity the policy table covers
type Resource string

const (
	ResourceOrder    Resource = "order"
	ResourceDelivery Resource = "delivery"
	ResourceCart     Resource = "cart"
	ResourcePayment  Resource = "payment"
	ResourceProduct  Resource = "product"
	ResourceAddress  Resource = "address"
	ResourceFavorite Resource = "favorite"
	ResourceReview   Resource = "review"
)

// rules is the central capability table: which role holds which capabilities
// on which resource type. Per-record ownership is checked separately by the
// Can* helpers below; this table answers the coarse "may this role ever do
// this" question.
var rules = map[models.Role]map[Resource][]Capability{
	models.RoleAdmin: {
		ResourceOrder:    {CapView, CapCreate, CapUpdate, CapDelete},
		ResourceDelivery: {CapView, CapCreate, CapUpdate, CapDelete},
		ResourceCart:     {CapView, CapCreate, CapUpdate, CapDelete},
		ResourcePayment:  {CapView, CapCreate, CapUpdate, CapDelete},
		ResourceProduct:  {CapView, CapCreate, CapUpdate, CapDelete},
		ResourceAddress:  {CapView, CapCreate, CapUpdate, CapDelete},
		ResourceFavorite: {CapView, CapCreate, CapUpdate, CapDelete},
		ResourceReview:   {CapView, CapCreate, CapUpdate, CapDelete},
	},
	models.RolePharmacy: {
		ResourceOrder:   {CapView, CapUpdate},
		ResourceProduct: {CapView, CapCreate, CapUpdate, CapDelete},
		ResourceReview:  {CapView},
	},
	models.RoleClient: {
		ResourceOrder:    {CapView, CapCreate, CapUpdate},
		ResourceDelivery: {CapView},
		ResourceCart:     {CapView, CapCreate, CapUpdate, CapDelete},
		ResourcePayment:  {CapView, CapCreate},
		ResourceProduct:  {CapView},
		ResourceAddress:  {CapView, CapCreate, CapUpdate, CapDelete},
		ResourceFavorite: {CapView, CapCreate, CapUpdate, CapDelete},
		ResourceReview:   {CapView, CapCreate, CapUpdate, CapDelete},
	},
	models.RoleCourier: {
		ResourceOrder:    {CapView, CapUpdate},
		ResourceDelivery: {CapView, CapUpdate},
	},
}

// Allows reports whether the role holds the capability on the resource type
func Allows(role models.Role, resource Resource, capability Capability) bool {
	for _, c := range rules[role][resource] {
		if c == capability {
			return true
		}
	}
	return false
}

// CanViewOrder reports whether the actor may read this specific order:
// admins always, clients their own orders, pharmacies the orders placed
// against them, couriers the orders assigned to them.
func CanViewOrder(actor models.Actor, order *models.Order) bool {
	if !Allows(actor.Role, ResourceOrder, CapView) {
		return false
	}

	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleClient:
		return order.UserID == actor.UserID
	case models.RolePharmacy:
		return order.PharmacyID == actor.PharmacyID
	case models.RoleCourier:
		return order.CourierID != nil && *order.CourierID == actor.UserID
	}
	return false
}

// CanUpdateOrder reports whether the actor may mutate this specific order.
// Which transitions are legal for the role is the state machine's concern;
// this only answers whether the actor is one of the order's parties.
func CanUpdateOrder(actor models.Actor, order *models.Order) bool {
	if !Allows(actor.Role, ResourceOrder, CapUpdate) {
		return false
	}

	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleClient:
		return order.UserID == actor.UserID
	case models.RolePharmacy:
		return order.PharmacyID == actor.PharmacyID
	case models.RoleCourier:
		return order.CourierID == nil || *order.CourierID == actor.UserID
	}
	return false
}

// CanMutateDelivery reports whether the actor may change this delivery:
// the assigned courier, a courier claiming an unassigned one, or an admin.
func CanMutateDelivery(actor models.Actor, delivery *models.Delivery) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}
	if actor.Role != models.RoleCourier {
		return false
	}
	return delivery.CourierID == nil || *delivery.CourierID == actor.UserID
}

// CanTrackDelivery reports whether the actor may read the tracking
// projection: the order's client, the assigned courier, or an admin.
func CanTrackDelivery(actor models.Actor, delivery *models.Delivery, order *models.Order) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}
	if order.UserID == actor.UserID {
		return true
	}
	return delivery.CourierID != nil && *delivery.CourierID == actor.UserID
}
