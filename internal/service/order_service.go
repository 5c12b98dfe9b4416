package service

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/SpideeCode/uberPharmaV2/pkg/errors"
	"github.com/SpideeCode/uberPharmaV2/pkg/logger"

	"github.com/SpideeCode/uberPharmaV2/internal/models"
	"github.com/SpideeCode/uberPharmaV2/internal/policy"
	"github.com/SpideeCode/uberPharmaV2/internal/repository"
)

// OrderItemInput is one requested line of a new order
type OrderItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CreateOrderInput is the request to place an order
type CreateOrderInput struct {
	Items    []OrderItemInput    `json:"items"`
	Shipping models.ShippingInfo `json:"shipping"`
}

// OrderService drives the order lifecycle: creation with atomic stock
// reservation, status transitions guarded by the state machine, and the
// courier acceptance flow that keeps order and delivery in step.
type OrderService struct {
	orders     OrderStore
	products   ProductStore
	deliveries DeliveryStore
	payments   PaymentStore
	outbox     OutboxStore
	logger     logger.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(orders OrderStore, products ProductStore, deliveries DeliveryStore, payments PaymentStore, outbox OutboxStore, logger logger.Logger) *OrderService {
	return &OrderService{
		orders:     orders,
		products:   products,
		deliveries: deliveries,
		payments:   payments,
		outbox:     outbox,
		logger:     logger,
	}
}

// CreateOrder places an order after reserving stock for every requested line
// inside one transaction. Either every line is reserved and the order exists,
// or nothing changed.
func (s *OrderService) CreateOrder(ctx context.Context, actor models.Actor, input CreateOrderInput) (*models.Order, error) {
	if !policy.Allows(actor.Role, policy.ResourceOrder, policy.CapCreate) {
		return nil, apperrors.NewForbiddenError("role cannot create orders")
	}

	if err := validateOrderInput(input); err != nil {
		return nil, err
	}

	tx, err := s.orders.BeginTx(ctx)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to start transaction")
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var pharmacyID string
	snapshots := make([]*models.StockSnapshot, 0, len(input.Items))

	for _, line := range input.Items {
		snapshot, reserveErr := s.products.ReserveStockInTx(ctx, tx, line.ProductID, line.Quantity)

		if reserveErr != nil {
			err = reserveErr
			if errors.Is(reserveErr, repository.ErrNotFound) {
				return nil, apperrors.NewNotFoundError(fmt.Sprintf("product %s not found", line.ProductID))
			}
			if errors.Is(reserveErr, repository.ErrInsufficientStock) {
				return nil, apperrors.NewOutOfStockError(line.ProductID, line.Quantity)
			}
			return nil, apperrors.NewInternalError("failed to reserve stock")
		}

		if pharmacyID == "" {
			pharmacyID = snapshot.PharmacyID
		} else if snapshot.PharmacyID != pharmacyID {
			err = apperrors.NewValidationError("all order items must belong to the same pharmacy")
			return nil, err
		}

		snapshots = append(snapshots, snapshot)
	}

	order := models.NewOrder(actor.UserID, pharmacyID, input.Shipping)

	items := make([]*models.OrderItem, 0, len(input.Items))
	for i, line := range input.Items {
		// Unit price comes from the snapshot taken while reserving, never
		// from the request body.
		items = append(items, models.NewOrderItem(order.ID, line.ProductID, line.Quantity, snapshots[i].Price))
	}
	order.TotalAmount = models.SumItems(items)
	order.Items = items

	if err = s.orders.CreateInTx(ctx, tx, order); err != nil {
		return nil, apperrors.NewInternalError("failed to create order")
	}

	for _, item := range items {
		if err = s.orders.CreateItemInTx(ctx, tx, item); err != nil {
			return nil, apperrors.NewInternalError("failed to create order item")
		}
	}

	if err = s.recordEvent(ctx, tx, func() (*models.OutboxMessage, error) {
		return models.NewOrderCreatedEvent(order)
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, apperrors.NewInternalError("failed to commit order")
	}

	s.logger.Info("Order created", "orderID", order.ID, "userID", order.UserID, "pharmacyID", order.PharmacyID, "total", order.TotalAmount)
	return order, nil
}

// GetOrder retrieves an order with its items for an authorized actor. Actors
// with no claim on the order get the same answer as for an order that does
// not exist.
func (s *OrderService) GetOrder(ctx context.Context, actor models.Actor, orderID string) (*models.Order, error) {
	order, err := s.orders.GetWithItems(ctx, orderID)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("order not found")
		}
		return nil, apperrors.NewInternalError("failed to get order")
	}

	if !policy.CanViewOrder(actor, order) {
		return nil, apperrors.NewNotFoundError("order not found")
	}

	return order, nil
}

// ListOrders retrieves the orders visible to the actor: admins see all,
// pharmacies their inbound orders, clients their own, couriers the orders
// assigned to them.
func (s *OrderService) ListOrders(ctx context.Context, actor models.Actor, limit, offset int) ([]*models.Order, error) {
	limit, offset = normalizePage(limit, offset)

	switch actor.Role {
	case models.RoleAdmin:
		return s.listOrders(s.orders.ListAll(ctx, limit, offset))
	case models.RolePharmacy:
		return s.listOrders(s.orders.ListByPharmacy(ctx, actor.PharmacyID, limit, offset))
	case models.RoleClient:
		return s.listOrders(s.orders.ListByUser(ctx, actor.UserID, limit, offset))
	case models.RoleCourier:
		return s.listOrders(s.orders.ListByCourier(ctx, actor.UserID, limit, offset))
	}

	return nil, apperrors.NewForbiddenError("role cannot list orders")
}

func (s *OrderService) listOrders(orders []*models.Order, err error) ([]*models.Order, error) {
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list orders")
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	return orders, nil
}

// UpdateStatus moves an order along the state machine. A transition the
// machine has no edge for is a conflict reporting the current state; an edge
// the actor's role may not take is forbidden. Cancelling restocks every line.
func (s *OrderService) UpdateStatus(ctx context.Context, actor models.Actor, orderID string, newStatus models.OrderStatus) (*models.Order, error) {
	if !models.ValidOrderStatus(newStatus) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown order status %q", newStatus))
	}

	order, err := s.orders.GetWithItems(ctx, orderID)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("order not found")
		}
		return nil, apperrors.NewInternalError("failed to get order")
	}

	if !policy.CanViewOrder(actor, order) {
		return nil, apperrors.NewNotFoundError("order not found")
	}

	if !policy.CanUpdateOrder(actor, order) {
		return nil, apperrors.NewForbiddenError("actor cannot update this order")
	}

	if !models.TransitionExists(order.Status, newStatus) {
		return nil, apperrors.NewConflictError(
			fmt.Sprintf("cannot move order from %s to %s", order.Status, newStatus),
			string(order.Status),
		)
	}

	if !models.RoleCanTransition(order.Status, newStatus, actor.Role) {
		return nil, apperrors.NewForbiddenError(fmt.Sprintf("role %s cannot move order from %s to %s", actor.Role, order.Status, newStatus))
	}

	var payment *models.Payment
	if models.RefundStatus(newStatus) {
		payment, err = s.payments.GetByOrderID(ctx, orderID)

		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewConflictError("no payment recorded for this order", string(order.Status))
			}
			return nil, apperrors.NewInternalError("failed to get payment")
		}
	}

	tx, err := s.orders.BeginTx(ctx)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to start transaction")
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if newStatus == models.OrderStatusCancelled {
		// The machine admits exactly one edge into cancelled from any
		// state, so the restock below cannot run twice for one order.
		for _, item := range order.Items {
			if err = s.products.RestockInTx(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return nil, apperrors.NewInternalError("failed to restock cancelled order")
			}
		}
	}

	if newStatus == models.OrderStatusReadyForDelivery {
		// Opening the order for couriers puts an unclaimed delivery in the
		// pool; re-entering the state leaves an existing row alone.
		if err = s.deliveries.CreateIfAbsentInTx(ctx, tx, models.NewDelivery(order.ID)); err != nil {
			return nil, apperrors.NewInternalError("failed to create delivery")
		}
	}

	oldStatus := order.Status
	order.Status = newStatus

	if models.RefundStatus(newStatus) {
		order.PaymentStatus = models.PaymentStatusRefunded
		if err = s.payments.UpdateStatusInTx(ctx, tx, payment.ID, "refunded"); err != nil {
			return nil, apperrors.NewInternalError("failed to update payment status")
		}
	}

	if err = s.orders.UpdateInTx(ctx, tx, order); err != nil {
		return nil, apperrors.NewInternalError("failed to update order")
	}

	if err = s.recordEvent(ctx, tx, func() (*models.OutboxMessage, error) {
		return models.NewOrderStatusChangedEvent(order, oldStatus)
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, apperrors.NewInternalError("failed to commit status update")
	}

	s.logger.Info("Order status updated", "orderID", order.ID, "from", oldStatus, "to", newStatus, "actor", actor.UserID)
	return order, nil
}

// AcceptOrder lets a courier take an order that is ready for delivery. The
// delivery row is claimed with a conditional update, so when two couriers
// race for the same order exactly one wins.
func (s *OrderService) AcceptOrder(ctx context.Context, actor models.Actor, orderID string) (*models.Order, error) {
	if actor.Role != models.RoleCourier {
		return nil, apperrors.NewForbiddenError("only couriers accept orders")
	}

	order, err := s.orders.GetByID(ctx, orderID)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("order not found")
		}
		return nil, apperrors.NewInternalError("failed to get order")
	}

	if !models.TransitionExists(order.Status, models.OrderStatusAssignedToCourier) {
		return nil, apperrors.NewConflictError(
			fmt.Sprintf("order in status %s cannot be accepted", order.Status),
			string(order.Status),
		)
	}

	delivery, err := s.deliveries.GetByOrderID(ctx, orderID)

	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternalError("failed to get delivery")
	}

	tx, err := s.orders.BeginTx(ctx)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to start transaction")
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if delivery == nil {
		// Another courier may have inserted the row between our read and
		// this insert; the upsert turns the loser's insert into a no-op and
		// the claim below settles who won.
		if err = s.deliveries.CreateIfAbsentInTx(ctx, tx, models.NewDelivery(order.ID)); err != nil {
			return nil, apperrors.NewInternalError("failed to create delivery")
		}
		if delivery, err = s.deliveries.GetByOrderIDInTx(ctx, tx, order.ID); err != nil {
			return nil, apperrors.NewInternalError("failed to get delivery")
		}
	}

	if delivery.CourierID != nil {
		err = apperrors.NewConflictError("order already has a courier", string(order.Status))
		return nil, err
	}

	if err = s.deliveries.ClaimInTx(ctx, tx, delivery.ID, actor.UserID); err != nil {
		if errors.Is(err, repository.ErrAlreadyClaimed) {
			return nil, apperrors.NewConflictError("order already has a courier", string(order.Status))
		}
		return nil, apperrors.NewInternalError("failed to claim delivery")
	}

	oldStatus := order.Status
	order.Status = models.OrderStatusAssignedToCourier
	order.CourierID = &actor.UserID

	if err = s.orders.UpdateInTx(ctx, tx, order); err != nil {
		return nil, apperrors.NewInternalError("failed to update order")
	}

	if err = s.recordEvent(ctx, tx, func() (*models.OutboxMessage, error) {
		return models.NewOrderStatusChangedEvent(order, oldStatus)
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, apperrors.NewInternalError("failed to commit acceptance")
	}

	s.logger.Info("Order accepted by courier", "orderID", order.ID, "courierID", actor.UserID)
	return order, nil
}

// PickUpOrder marks the courier's pickup: the delivery moves to picked_up and
// the order to in_delivery, together.
func (s *OrderService) PickUpOrder(ctx context.Context, actor models.Actor, orderID string) (*models.Order, error) {
	order, delivery, err := s.getCourierOrder(ctx, actor, orderID)

	if err != nil {
		return nil, err
	}

	if order.Status != models.OrderStatusAssignedToCourier {
		return nil, apperrors.NewConflictError(
			fmt.Sprintf("order in status %s cannot be picked up", order.Status),
			string(order.Status),
		)
	}

	if !models.CanAdvanceDelivery(delivery.Status, models.DeliveryStatusPickedUp) {
		return nil, apperrors.NewConflictError(
			fmt.Sprintf("delivery in status %s cannot be picked up", delivery.Status),
			string(delivery.Status),
		)
	}

	now := models.GetCurrentTime()
	mutate := func(o *models.Order, d *models.Delivery) {
		d.Status = models.DeliveryStatusPickedUp
		d.PickedUpAt = &now
		o.Status = models.OrderStatusInDelivery
	}

	if err := s.applyCourierStep(ctx, order, delivery, mutate); err != nil {
		return nil, err
	}

	s.logger.Info("Order picked up", "orderID", order.ID, "courierID", actor.UserID)
	return order, nil
}

// CompleteOrder marks the handover to the client: the delivery moves to
// delivered and the order follows.
func (s *OrderService) CompleteOrder(ctx context.Context, actor models.Actor, orderID string) (*models.Order, error) {
	order, delivery, err := s.getCourierOrder(ctx, actor, orderID)

	if err != nil {
		return nil, err
	}

	if order.Status != models.OrderStatusInDelivery {
		return nil, apperrors.NewConflictError(
			fmt.Sprintf("order in status %s cannot be completed", order.Status),
			string(order.Status),
		)
	}

	if !models.CanAdvanceDelivery(delivery.Status, models.DeliveryStatusDelivered) {
		return nil, apperrors.NewConflictError(
			fmt.Sprintf("delivery in status %s cannot be delivered", delivery.Status),
			string(delivery.Status),
		)
	}

	now := models.GetCurrentTime()
	mutate := func(o *models.Order, d *models.Delivery) {
		d.Status = models.DeliveryStatusDelivered
		d.DeliveredAt = &now
		o.Status = models.OrderStatusDelivered
	}

	if err := s.applyCourierStep(ctx, order, delivery, mutate); err != nil {
		return nil, err
	}

	s.logger.Info("Order delivered", "orderID", order.ID, "courierID", actor.UserID)
	return order, nil
}

// getCourierOrder loads an order plus its delivery and checks the actor is
// the assigned courier
func (s *OrderService) getCourierOrder(ctx context.Context, actor models.Actor, orderID string) (*models.Order, *models.Delivery, error) {
	if actor.Role != models.RoleCourier {
		return nil, nil, apperrors.NewForbiddenError("only couriers perform delivery steps")
	}

	order, err := s.orders.GetByID(ctx, orderID)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperrors.NewNotFoundError("order not found")
		}
		return nil, nil, apperrors.NewInternalError("failed to get order")
	}

	if order.CourierID == nil || *order.CourierID != actor.UserID {
		return nil, nil, apperrors.NewForbiddenError("order is assigned to another courier")
	}

	delivery, err := s.deliveries.GetByOrderID(ctx, orderID)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperrors.NewConflictError("order has no delivery record", string(order.Status))
		}
		return nil, nil, apperrors.NewInternalError("failed to get delivery")
	}

	return order, delivery, nil
}

// applyCourierStep persists an order and delivery mutation plus both change
// events in one transaction
func (s *OrderService) applyCourierStep(ctx context.Context, order *models.Order, delivery *models.Delivery, mutate func(*models.Order, *models.Delivery)) error {
	tx, err := s.orders.BeginTx(ctx)

	if err != nil {
		return apperrors.NewInternalError("failed to start transaction")
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	oldOrderStatus := order.Status
	oldDeliveryStatus := delivery.Status
	mutate(order, delivery)

	if err = s.deliveries.UpdateInTx(ctx, tx, delivery); err != nil {
		return apperrors.NewInternalError("failed to update delivery")
	}

	if err = s.orders.UpdateInTx(ctx, tx, order); err != nil {
		return apperrors.NewInternalError("failed to update order")
	}

	if err = s.recordEvent(ctx, tx, func() (*models.OutboxMessage, error) {
		return models.NewDeliveryStatusChangedEvent(delivery, oldDeliveryStatus)
	}); err != nil {
		return err
	}

	if err = s.recordEvent(ctx, tx, func() (*models.OutboxMessage, error) {
		return models.NewOrderStatusChangedEvent(order, oldOrderStatus)
	}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return apperrors.NewInternalError("failed to commit delivery step")
	}

	return nil
}

func (s *OrderService) recordEvent(ctx context.Context, tx repository.Tx, build func() (*models.OutboxMessage, error)) error {
	message, err := build()

	if err != nil {
		return apperrors.NewInternalError("failed to build event")
	}

	if err := s.outbox.CreateInTx(ctx, tx, message); err != nil {
		return apperrors.NewInternalError("failed to record event")
	}

	return nil
}

func validateOrderInput(input CreateOrderInput) error {
	if len(input.Items) == 0 {
		return apperrors.NewValidationError("order must contain at least one item")
	}

	for _, line := range input.Items {
		if line.ProductID == "" {
			return apperrors.NewValidationError("item product_id is required")
		}
		if line.Quantity < 1 {
			return apperrors.NewValidationError("item quantity must be at least 1")
		}
	}

	if input.Shipping.Address == "" || input.Shipping.City == "" ||
		input.Shipping.PostalCode == "" || input.Shipping.Country == "" {
		return apperrors.NewValidationError("shipping address, city, postal code and country are required")
	}

	return nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
