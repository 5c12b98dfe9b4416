package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/SpideeCode/uberPharmaV2/pkg/errors"
	"github.com/SpideeCode/uberPharmaV2/pkg/logger"

	"github.com/SpideeCode/uberPharmaV2/internal/models"
	"github.com/SpideeCode/uberPharmaV2/internal/repository"
)

var testShipping = models.ShippingInfo{
	Address:    "12 Rue des Lilas",
	City:       "Lyon",
	PostalCode: "69003",
	Country:    "FR",
}

var (
	clientActor   = models.Actor{UserID: "usr-1", Role: models.RoleClient}
	strangerActor = models.Actor{UserID: "usr-9", Role: models.RoleClient}
	pharmacyActor = models.Actor{UserID: "phu-1", Role: models.RolePharmacy, PharmacyID: "phm-1"}
	adminActor    = models.Actor{UserID: "adm-1", Role: models.RoleAdmin}
	courierActor  = models.Actor{UserID: "cou-1", Role: models.RoleCourier}
	courierActor2 = models.Actor{UserID: "cou-2", Role: models.RoleCourier}
)

func newTestOrderService(db *memDB) *OrderService {
	return NewOrderService(db, memProducts{db}, memDeliveries{db}, memPayments{db}, memOutbox{db}, logger.NewLogger("error"))
}

func seedProduct(db *memDB, id, pharmacyID string, price float64, stock int) {
	db.products[id] = &models.Product{
		ID:         id,
		PharmacyID: pharmacyID,
		Name:       "Product " + id,
		Price:      price,
		Stock:      stock,
	}
}

func TestCreateOrderReservesStockAndSnapshotsPrices(t *testing.T) {
	db := newMemDB()
	seedProduct(db, "prd-1", "phm-1", 3.50, 10)
	seedProduct(db, "prd-2", "phm-1", 7.00, 5)
	svc := newTestOrderService(db)

	order, err := svc.CreateOrder(context.Background(), clientActor, CreateOrderInput{
		Items: []OrderItemInput{
			{ProductID: "prd-1", Quantity: 2},
			{ProductID: "prd-2", Quantity: 1},
		},
		Shipping: testShipping,
	})

	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusUnpaid, order.PaymentStatus)
	assert.Equal(t, "phm-1", order.PharmacyID)
	assert.InDelta(t, 14.00, order.TotalAmount, 0.001)
	assert.Len(t, order.Items, 2)
	assert.InDelta(t, 3.50, order.Items[0].UnitPrice, 0.001)

	assert.Equal(t, 8, db.products["prd-1"].Stock)
	assert.Equal(t, 4, db.products["prd-2"].Stock)
	assert.Contains(t, db.eventTypes(), "order_created")
}

func TestCreateOrderIsAllOrNothing(t *testing.T) {
	db := newMemDB()
	seedProduct(db, "prd-1", "phm-1", 3.50, 5)
	seedProduct(db, "prd-2", "phm-1", 7.00, 1)
	svc := newTestOrderService(db)

	_, err := svc.CreateOrder(context.Background(), clientActor, CreateOrderInput{
		Items: []OrderItemInput{
			{ProductID: "prd-1", Quantity: 2},
			{ProductID: "prd-2", Quantity: 3},
		},
		Shipping: testShipping,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrOutOfStock)

	// The first line's reservation must have been rolled back.
	assert.Equal(t, 5, db.products["prd-1"].Stock)
	assert.Equal(t, 1, db.products["prd-2"].Stock)
	assert.Empty(t, db.orders)
	assert.Empty(t, db.eventTypes())
}

func TestCreateOrderNeverOversells(t *testing.T) {
	db := newMemDB()
	seedProduct(db, "prd-1", "phm-1", 3.50, 3)
	svc := newTestOrderService(db)

	_, err := svc.CreateOrder(context.Background(), clientActor, CreateOrderInput{
		Items:    []OrderItemInput{{ProductID: "prd-1", Quantity: 3}},
		Shipping: testShipping,
	})
	require.NoError(t, err)

	_, err = svc.CreateOrder(context.Background(), strangerActor, CreateOrderInput{
		Items:    []OrderItemInput{{ProductID: "prd-1", Quantity: 1}},
		Shipping: testShipping,
	})
	assert.ErrorIs(t, err, apperrors.ErrOutOfStock)
	assert.Equal(t, 0, db.products["prd-1"].Stock)
}

func TestCreateOrderRejectsMixedPharmacies(t *testing.T) {
	db := newMemDB()
	seedProduct(db, "prd-1", "phm-1", 3.50, 10)
	seedProduct(db, "prd-2", "phm-2", 7.00, 10)
	svc := newTestOrderService(db)

	_, err := svc.CreateOrder(context.Background(), clientActor, CreateOrderInput{
		Items: []OrderItemInput{
			{ProductID: "prd-1", Quantity: 1},
			{ProductID: "prd-2", Quantity: 1},
		},
		Shipping: testShipping,
	})

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, 10, db.products["prd-1"].Stock)
}

func TestCreateOrderValidation(t *testing.T) {
	db := newMemDB()
	seedProduct(db, "prd-1", "phm-1", 3.50, 10)
	svc := newTestOrderService(db)
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, clientActor, CreateOrderInput{Shipping: testShipping})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.CreateOrder(ctx, clientActor, CreateOrderInput{
		Items:    []OrderItemInput{{ProductID: "prd-1", Quantity: 0}},
		Shipping: testShipping,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.CreateOrder(ctx, clientActor, CreateOrderInput{
		Items: []OrderItemInput{{ProductID: "prd-1", Quantity: 1}},
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.CreateOrder(ctx, courierActor, CreateOrderInput{
		Items:    []OrderItemInput{{ProductID: "prd-1", Quantity: 1}},
		Shipping: testShipping,
	})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestGetOrderHidesForeignOrders(t *testing.T) {
	db := newMemDB()
	seedProduct(db, "prd-1", "phm-1", 3.50, 10)
	svc := newTestOrderService(db)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, clientActor, CreateOrderInput{
		Items:    []OrderItemInput{{ProductID: "prd-1", Quantity: 1}},
		Shipping: testShipping,
	})
	require.NoError(t, err)

	got, err := svc.GetOrder(ctx, clientActor, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.Len(t, got.Items, 1)

	// A stranger probing the ID gets the same answer as for a missing order.
	_, err = svc.GetOrder(ctx, strangerActor, order.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.GetOrder(ctx, clientActor, "ord-missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdateStatusRejectsUnknownAndIllegalTransitions(t *testing.T) {
	db := newMemDB()
	seedProduct(db, "prd-1", "phm-1", 3.50, 10)
	svc := newTestOrderService(db)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, clientActor, CreateOrderInput{
		Items:    []OrderItemInput{{ProductID: "prd-1", Quantity: 1}},
		Shipping: testShipping,
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, pharmacyActor, order.ID, "shipped")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.UpdateStatus(ctx, pharmacyActor, order.ID, models.OrderStatusDelivered)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "pending", appErr.Context["current_state"])
}

func TestUpdateStatusEnforcesRoles(t *testing.T) {
	db := newMemDB()
	seedProduct(db, "prd-1", "phm-1", 3.50, 10)
	svc := newTestOrderService(db)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, clientActor, CreateOrderInput{
		Items:    []OrderItemInput{{ProductID: "prd-1", Quantity: 1}},
		Shipping: testShipping,
	})
	require.NoError(t, err)

	// The edge exists but clients may not take it.
	_, err = svc.UpdateStatus(ctx, clientActor, order.ID, models.OrderStatusProcessing)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	updated, err := svc.UpdateStatus(ctx, pharmacyActor, order.ID, models.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, updated.Status)
	assert.Contains(t, db.eventTypes(), "order_status_changed")
}

func TestCancelRestocksExactlyOnce(t *testing.T) {
	db := newMemDB()
	seedProduct(db, "prd-1", "phm-1", 3.50, 10)
	svc := newTestOrderService(db)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, clientActor, CreateOrderInput{
		Items:    []OrderItemInput{{ProductID: "prd-1", Quantity: 4}},
		Shipping: testShipping,
	})
	require.NoError(t, err)
	assert.Equal(t, 6, db.products["prd-1"].Stock)

	cancelled, err := svc.UpdateStatus(ctx, clientActor, order.ID, models.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 10, db.products["prd-1"].Stock)

	// Cancelling a cancelled order is a conflict and must not restock again.
	_, err = svc.UpdateStatus(ctx, clientActor, order.ID, models.OrderStatusCancelled)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, 10, db.products["prd-1"].Stock)
}

func TestRefundRequiresPaymentAndAdmin(t *testing.T) {
	db := newMemDB()
	svc := newTestOrderService(db)
	ctx := context.Background()

	order := models.NewOrder("usr-1", "phm-1", testShipping)
	order.Status = models.OrderStatusDelivered
	order.PaymentStatus = models.PaymentStatusPaid
	order.TotalAmount = 21.00
	db.orders[order.ID] = order

	_, err := svc.UpdateStatus(ctx, clientActor, order.ID, models.OrderStatusRefunded)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.UpdateStatus(ctx, adminActor, order.ID, models.OrderStatusRefunded)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	payment := models.NewPayment(order.ID, "usr-1", 21.00, models.PaymentMethodCreditCard, "txn-1")
	db.payments[order.ID] = payment

	refunded, err := svc.UpdateStatus(ctx, adminActor, order.ID, models.OrderStatusRefunded)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusRefunded, refunded.Status)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.PaymentStatus)
	assert.Equal(t, "refunded", db.payments[order.ID].Status)

	// A paid order does not have to reach a terminal state first; an admin
	// can refund it while it is still being prepared.
	stuck := models.NewOrder("usr-1", "phm-1", testShipping)
	stuck.Status = models.OrderStatusProcessing
	stuck.PaymentStatus = models.PaymentStatusPaid
	stuck.TotalAmount = 9.50
	db.orders[stuck.ID] = stuck
	db.payments[stuck.ID] = models.NewPayment(stuck.ID, "usr-1", 9.50, models.PaymentMethodCreditCard, "txn-2")

	_, err = svc.UpdateStatus(ctx, pharmacyActor, stuck.ID, models.OrderStatusRefunded)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	refunded, err = svc.UpdateStatus(ctx, adminActor, stuck.ID, models.OrderStatusRefunded)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusRefunded, refunded.Status)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.PaymentStatus)

	partial := models.NewOrder("usr-1", "phm-1", testShipping)
	partial.Status = models.OrderStatusInDelivery
	partial.PaymentStatus = models.PaymentStatusPaid
	partial.TotalAmount = 30.00
	db.orders[partial.ID] = partial
	db.payments[partial.ID] = models.NewPayment(partial.ID, "usr-1", 30.00, models.PaymentMethodCreditCard, "txn-3")

	refunded, err = svc.UpdateStatus(ctx, adminActor, partial.ID, models.OrderStatusPartiallyRefunded)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPartiallyRefunded, refunded.Status)
}

func TestAcceptOrderHasSingleWinner(t *testing.T) {
	db := newMemDB()
	svc := newTestOrderService(db)
	ctx := context.Background()

	order := models.NewOrder("usr-1", "phm-1", testShipping)
	order.Status = models.OrderStatusReadyForDelivery
	db.orders[order.ID] = order

	accepted, err := svc.AcceptOrder(ctx, courierActor, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusAssignedToCourier, accepted.Status)
	require.NotNil(t, accepted.CourierID)
	assert.Equal(t, "cou-1", *accepted.CourierID)

	delivery, err := db.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, delivery.CourierID)
	assert.Equal(t, "cou-1", *delivery.CourierID)

	_, err = svc.AcceptOrder(ctx, courierActor2, order.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	stored, _ := db.GetByID(ctx, order.ID)
	assert.Equal(t, "cou-1", *stored.CourierID)
}

func TestAcceptOrderRequiresReadyOrder(t *testing.T) {
	db := newMemDB()
	svc := newTestOrderService(db)
	ctx := context.Background()

	order := models.NewOrder("usr-1", "phm-1", testShipping)
	db.orders[order.ID] = order

	_, err := svc.AcceptOrder(ctx, courierActor, order.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = svc.AcceptOrder(ctx, clientActor, order.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

// staleDeliveryReads simulates a rival courier inserting and claiming the
// delivery row between this courier's read and its own insert.
type staleDeliveryReads struct {
	memDeliveries
}

func (s staleDeliveryReads) GetByOrderID(ctx context.Context, orderID string) (*models.Delivery, error) {
	return nil, repository.ErrNotFound
}

func TestAcceptOrderConflictsWhenDeliveryAppearsMidAccept(t *testing.T) {
	db := newMemDB()
	svc := NewOrderService(db, memProducts{db}, staleDeliveryReads{memDeliveries{db}}, memPayments{db}, memOutbox{db}, logger.NewLogger("error"))
	ctx := context.Background()

	order := models.NewOrder("usr-1", "phm-1", testShipping)
	order.Status = models.OrderStatusReadyForDelivery
	db.orders[order.ID] = order

	delivery := models.NewDelivery(order.ID)
	rivalID := "cou-2"
	delivery.CourierID = &rivalID
	db.deliveries[delivery.ID] = delivery

	_, err := svc.AcceptOrder(ctx, courierActor, order.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	kept, err := db.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, kept.CourierID)
	assert.Equal(t, "cou-2", *kept.CourierID)
}

func TestCourierPickupAndCompletion(t *testing.T) {
	db := newMemDB()
	svc := newTestOrderService(db)
	ctx := context.Background()

	order := models.NewOrder("usr-1", "phm-1", testShipping)
	order.Status = models.OrderStatusReadyForDelivery
	db.orders[order.ID] = order

	_, err := svc.AcceptOrder(ctx, courierActor, order.ID)
	require.NoError(t, err)

	// Completing before pickup must fail.
	_, err = svc.CompleteOrder(ctx, courierActor, order.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	// Another courier may not touch the order.
	_, err = svc.PickUpOrder(ctx, courierActor2, order.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	picked, err := svc.PickUpOrder(ctx, courierActor, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusInDelivery, picked.Status)

	delivery, _ := db.GetByOrderID(ctx, order.ID)
	assert.Equal(t, models.DeliveryStatusPickedUp, delivery.Status)
	assert.NotNil(t, delivery.PickedUpAt)

	completed, err := svc.CompleteOrder(ctx, courierActor, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, completed.Status)

	delivery, _ = db.GetByOrderID(ctx, order.ID)
	assert.Equal(t, models.DeliveryStatusDelivered, delivery.Status)
	assert.NotNil(t, delivery.DeliveredAt)
	assert.Contains(t, db.eventTypes(), "delivery_status_changed")
}

func TestListOrdersPerRole(t *testing.T) {
	db := newMemDB()
	svc := newTestOrderService(db)
	ctx := context.Background()

	mine := models.NewOrder("usr-1", "phm-1", testShipping)
	other := models.NewOrder("usr-9", "phm-2", testShipping)
	courierID := "cou-1"
	other.CourierID = &courierID
	db.orders[mine.ID] = mine
	db.orders[other.ID] = other

	all, err := svc.ListOrders(ctx, adminActor, 20, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := svc.ListOrders(ctx, clientActor, 20, 0)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, mine.ID, own[0].ID)

	forPharmacy, err := svc.ListOrders(ctx, pharmacyActor, 20, 0)
	require.NoError(t, err)
	require.Len(t, forPharmacy, 1)
	assert.Equal(t, mine.ID, forPharmacy[0].ID)

	forCourier, err := svc.ListOrders(ctx, courierActor, 20, 0)
	require.NoError(t, err)
	require.Len(t, forCourier, 1)
	assert.Equal(t, other.ID, forCourier[0].ID)
}
