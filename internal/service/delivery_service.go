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

// AdvanceDeliveryInput carries the optional fields a courier may report while
// moving a delivery forward
type AdvanceDeliveryInput struct {
	Status          models.DeliveryStatus `json:"status"`
	CurrentLocation *string               `json:"current_location,omitempty"`
	Notes           *string               `json:"notes,omitempty"`
}

// DeliveryService drives the courier-facing side: the claimable pool, the
// claim itself, and the forward-only progress chain.
type DeliveryService struct {
	deliveries DeliveryStore
	orders     OrderStore
	users      UserStore
	outbox     OutboxStore
	logger     logger.Logger
}

// NewDeliveryService creates a new DeliveryService
func NewDeliveryService(deliveries DeliveryStore, orders OrderStore, users UserStore, outbox OutboxStore, logger logger.Logger) *DeliveryService {
	return &DeliveryService{
		deliveries: deliveries,
		orders:     orders,
		users:      users,
		outbox:     outbox,
		logger:     logger,
	}
}

// ListAvailable retrieves the deliveries a courier could claim: no courier
// yet, and the underlying order waiting for one
func (s *DeliveryService) ListAvailable(ctx context.Context, actor models.Actor, limit, offset int) ([]*models.Delivery, error) {
	if actor.Role != models.RoleCourier && !actor.IsAdmin() {
		return nil, apperrors.NewForbiddenError("only couriers browse available deliveries")
	}

	limit, offset = normalizePage(limit, offset)
	deliveries, err := s.deliveries.ListUnassigned(ctx, limit, offset)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to list available deliveries")
	}

	if deliveries == nil {
		deliveries = []*models.Delivery{}
	}
	return deliveries, nil
}

// ListDeliveries retrieves the deliveries visible to the actor: admins all,
// couriers their own
func (s *DeliveryService) ListDeliveries(ctx context.Context, actor models.Actor, limit, offset int) ([]*models.Delivery, error) {
	limit, offset = normalizePage(limit, offset)

	var (
		deliveries []*models.Delivery
		err        error
	)

	switch actor.Role {
	case models.RoleAdmin:
		deliveries, err = s.deliveries.ListAll(ctx, limit, offset)
	case models.RoleCourier:
		deliveries, err = s.deliveries.ListByCourier(ctx, actor.UserID, limit, offset)
	default:
		return nil, apperrors.NewForbiddenError("role cannot list deliveries")
	}

	if err != nil {
		return nil, apperrors.NewInternalError("failed to list deliveries")
	}

	if deliveries == nil {
		deliveries = []*models.Delivery{}
	}
	return deliveries, nil
}

// Claim assigns the delivery to the calling courier. The conditional update
// in the store decides races: the second courier to arrive gets a conflict,
// and the delivery changes hands exactly once.
func (s *DeliveryService) Claim(ctx context.Context, actor models.Actor, deliveryID string) (*models.Delivery, error) {
	if actor.Role != models.RoleCourier {
		return nil, apperrors.NewForbiddenError("only couriers claim deliveries")
	}

	delivery, err := s.deliveries.GetByID(ctx, deliveryID)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("delivery not found")
		}
		return nil, apperrors.NewInternalError("failed to get delivery")
	}

	if delivery.CourierID != nil {
		return nil, apperrors.NewConflictError("delivery already claimed", string(delivery.Status))
	}

	order, err := s.orders.GetByID(ctx, delivery.OrderID)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to get order")
	}

	if !models.TransitionExists(order.Status, models.OrderStatusAssignedToCourier) {
		return nil, apperrors.NewConflictError(
			fmt.Sprintf("order in status %s is not claimable", order.Status),
			string(order.Status),
		)
	}

	tx, err := s.deliveries.BeginTx(ctx)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to start transaction")
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = s.deliveries.ClaimInTx(ctx, tx, delivery.ID, actor.UserID); err != nil {
		if errors.Is(err, repository.ErrAlreadyClaimed) {
			return nil, apperrors.NewConflictError("delivery already claimed", string(delivery.Status))
		}
		return nil, apperrors.NewInternalError("failed to claim delivery")
	}

	oldOrderStatus := order.Status
	order.Status = models.OrderStatusAssignedToCourier
	order.CourierID = &actor.UserID

	if err = s.orders.UpdateInTx(ctx, tx, order); err != nil {
		return nil, apperrors.NewInternalError("failed to update order")
	}

	now := models.GetCurrentTime()
	delivery.CourierID = &actor.UserID
	delivery.Status = models.DeliveryStatusAssigned
	delivery.AssignedAt = &now

	if err = s.recordEvent(ctx, tx, func() (*models.OutboxMessage, error) {
		return models.NewOrderStatusChangedEvent(order, oldOrderStatus)
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, apperrors.NewInternalError("failed to commit claim")
	}

	s.logger.Info("Delivery claimed", "deliveryID", delivery.ID, "orderID", delivery.OrderID, "courierID", actor.UserID)
	return delivery, nil
}

// Advance moves a delivery one step along the chain. Pickup and handover
// pull the parent order along so the two records never disagree about where
// the package is.
func (s *DeliveryService) Advance(ctx context.Context, actor models.Actor, deliveryID string, input AdvanceDeliveryInput) (*models.Delivery, error) {
	if !models.ValidDeliveryStatus(input.Status) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown delivery status %q", input.Status))
	}

	delivery, err := s.deliveries.GetByID(ctx, deliveryID)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("delivery not found")
		}
		return nil, apperrors.NewInternalError("failed to get delivery")
	}

	if !policy.CanMutateDelivery(actor, delivery) {
		return nil, apperrors.NewForbiddenError("delivery belongs to another courier")
	}

	if delivery.CourierID == nil {
		return nil, apperrors.NewConflictError("delivery has no courier yet", string(delivery.Status))
	}

	if !models.CanAdvanceDelivery(delivery.Status, input.Status) {
		return nil, apperrors.NewConflictError(
			fmt.Sprintf("cannot move delivery from %s to %s", delivery.Status, input.Status),
			string(delivery.Status),
		)
	}

	order, err := s.orders.GetByID(ctx, delivery.OrderID)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to get order")
	}

	// Pickup and handover move the parent order too. If the order is not in
	// the state those steps require, something else moved it first.
	var newOrderStatus models.OrderStatus
	switch input.Status {
	case models.DeliveryStatusPickedUp:
		newOrderStatus = models.OrderStatusInDelivery
	case models.DeliveryStatusDelivered:
		newOrderStatus = models.OrderStatusCompleted
	}

	if newOrderStatus != "" && !models.TransitionExists(order.Status, newOrderStatus) {
		return nil, apperrors.NewConflictError(
			fmt.Sprintf("order in status %s does not admit this delivery step", order.Status),
			string(order.Status),
		)
	}

	tx, err := s.deliveries.BeginTx(ctx)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to start transaction")
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := models.GetCurrentTime()
	oldDeliveryStatus := delivery.Status
	delivery.Status = input.Status

	if input.CurrentLocation != nil {
		delivery.CurrentLocation = input.CurrentLocation
	}
	if input.Notes != nil {
		delivery.Notes = input.Notes
	}

	switch input.Status {
	case models.DeliveryStatusPickedUp:
		delivery.PickedUpAt = &now
	case models.DeliveryStatusDelivered:
		delivery.DeliveredAt = &now
	}

	if err = s.deliveries.UpdateInTx(ctx, tx, delivery); err != nil {
		return nil, apperrors.NewInternalError("failed to update delivery")
	}

	if err = s.recordEvent(ctx, tx, func() (*models.OutboxMessage, error) {
		return models.NewDeliveryStatusChangedEvent(delivery, oldDeliveryStatus)
	}); err != nil {
		return nil, err
	}

	if newOrderStatus != "" {
		oldOrderStatus := order.Status
		order.Status = newOrderStatus

		if err = s.orders.UpdateInTx(ctx, tx, order); err != nil {
			return nil, apperrors.NewInternalError("failed to update order")
		}

		if err = s.recordEvent(ctx, tx, func() (*models.OutboxMessage, error) {
			return models.NewOrderStatusChangedEvent(order, oldOrderStatus)
		}); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, apperrors.NewInternalError("failed to commit delivery advance")
	}

	s.logger.Info("Delivery advanced", "deliveryID", delivery.ID, "from", oldDeliveryStatus, "to", delivery.Status, "courierID", actor.UserID)
	return delivery, nil
}

// Track builds the read-only tracking projection for the order's client, the
// assigned courier, or an admin
func (s *DeliveryService) Track(ctx context.Context, actor models.Actor, deliveryID string) (*models.TrackingInfo, error) {
	delivery, err := s.deliveries.GetByID(ctx, deliveryID)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("delivery not found")
		}
		return nil, apperrors.NewInternalError("failed to get delivery")
	}

	order, err := s.orders.GetByID(ctx, delivery.OrderID)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to get order")
	}

	if !policy.CanTrackDelivery(actor, delivery, order) {
		return nil, apperrors.NewForbiddenError("not allowed to track this delivery")
	}

	courierName := "Not assigned"
	if delivery.CourierID != nil {
		courier, userErr := s.users.GetByID(ctx, *delivery.CourierID)
		if userErr == nil {
			courierName = courier.Name
		}
	}

	return &models.TrackingInfo{
		DeliveryID:        delivery.ID,
		OrderID:           delivery.OrderID,
		Status:            delivery.Status,
		CourierName:       courierName,
		EstimatedDelivery: delivery.EstimatedDelivery,
		CurrentLocation:   delivery.CurrentLocation,
		Notes:             delivery.Notes,
		AssignedAt:        delivery.AssignedAt,
		PickedUpAt:        delivery.PickedUpAt,
		DeliveredAt:       delivery.DeliveredAt,
	}, nil
}

func (s *DeliveryService) recordEvent(ctx context.Context, tx repository.Tx, build func() (*models.OutboxMessage, error)) error {
	message, err := build()

	if err != nil {
		return apperrors.NewInternalError("failed to build event")
	}

	if err := s.outbox.CreateInTx(ctx, tx, message); err != nil {
		return apperrors.NewInternalError("failed to record event")
	}

	return nil
}
