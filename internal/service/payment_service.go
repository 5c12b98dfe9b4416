package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	apperrors "github.com/SpideeCode/uberPharmaV2/pkg/errors"
	"github.com/SpideeCode/uberPharmaV2/pkg/logger"

	"github.com/SpideeCode/uberPharmaV2/internal/clients"
	"github.com/SpideeCode/uberPharmaV2/internal/models"
	"github.com/SpideeCode/uberPharmaV2/internal/policy"
	"github.com/SpideeCode/uberPharmaV2/internal/repository"
)

// amountTolerance absorbs float rounding between the client's displayed
// total and the stored one
const amountTolerance = 0.01

// PaymentGateway is the external charge surface, satisfied by
// clients.PaymentClient
type PaymentGateway interface {
	Charge(ctx context.Context, req clients.ChargeRequest) (*clients.ChargeResult, error)
}

// ProcessPaymentInput is the request to pay for an order
type ProcessPaymentInput struct {
	Amount float64              `json:"amount"`
	Method models.PaymentMethod `json:"method"`
}

// PaymentService charges orders through the gateway and records the result
// atomically with the order's payment flag.
type PaymentService struct {
	payments PaymentStore
	orders   OrderStore
	gateway  PaymentGateway
	outbox   OutboxStore
	logger   logger.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(payments PaymentStore, orders OrderStore, gateway PaymentGateway, outbox OutboxStore, logger logger.Logger) *PaymentService {
	return &PaymentService{
		payments: payments,
		orders:   orders,
		gateway:  gateway,
		outbox:   outbox,
		logger:   logger,
	}
}

// ProcessPayment charges the order total and marks the order paid. The
// charge amount is the stored order total; the client's amount only has to
// agree with it, it is never what gets charged.
func (s *PaymentService) ProcessPayment(ctx context.Context, actor models.Actor, orderID string, input ProcessPaymentInput) (*models.Payment, error) {
	if !policy.Allows(actor.Role, policy.ResourcePayment, policy.CapCreate) {
		return nil, apperrors.NewForbiddenError("role cannot pay for orders")
	}

	order, err := s.orders.GetByID(ctx, orderID)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("order not found")
		}
		return nil, apperrors.NewInternalError("failed to get order")
	}

	if !actor.IsAdmin() && order.UserID != actor.UserID {
		return nil, apperrors.NewNotFoundError("order not found")
	}

	if !models.ValidPaymentMethod(input.Method) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown payment method %q", input.Method))
	}

	if order.PaymentStatus == models.PaymentStatusPaid {
		return nil, apperrors.NewConflictError("order is already paid", string(order.Status))
	}

	if models.IsTerminalOrderStatus(order.Status) {
		return nil, apperrors.NewConflictError("order can no longer be paid", string(order.Status))
	}

	if math.Abs(input.Amount-order.TotalAmount) > amountTolerance {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("amount %.2f does not match order total %.2f", input.Amount, order.TotalAmount),
		)
	}

	result, err := s.gateway.Charge(ctx, clients.ChargeRequest{
		OrderID: order.ID,
		UserID:  order.UserID,
		Amount:  order.TotalAmount,
		Method:  input.Method,
	})

	if err != nil {
		s.logger.Error("Payment gateway charge failed", "orderID", order.ID, "error", err)
		return nil, err
	}

	if !result.Authorized {
		return nil, apperrors.NewAppError(
			apperrors.ErrValidation,
			fmt.Sprintf("payment declined: %s", result.DeclineReason),
			http.StatusPaymentRequired,
			false,
		)
	}

	payment := models.NewPayment(order.ID, order.UserID, order.TotalAmount, input.Method, result.TransactionID)

	tx, err := s.orders.BeginTx(ctx)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to start transaction")
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = s.payments.CreateInTx(ctx, tx, payment); err != nil {
		return nil, apperrors.NewInternalError("failed to record payment")
	}

	order.PaymentStatus = models.PaymentStatusPaid

	if err = s.orders.UpdateInTx(ctx, tx, order); err != nil {
		return nil, apperrors.NewInternalError("failed to update order payment status")
	}

	message, buildErr := models.NewPaymentProcessedEvent(payment)

	if buildErr != nil {
		err = buildErr
		return nil, apperrors.NewInternalError("failed to build event")
	}

	if err = s.outbox.CreateInTx(ctx, tx, message); err != nil {
		return nil, apperrors.NewInternalError("failed to record event")
	}

	if err = tx.Commit(); err != nil {
		return nil, apperrors.NewInternalError("failed to commit payment")
	}

	s.logger.Info("Payment processed", "orderID", order.ID, "paymentID", payment.ID, "amount", payment.Amount, "method", payment.Method)
	return payment, nil
}

// GetPayment retrieves the payment recorded for an order, for the order's
// client or an admin
func (s *PaymentService) GetPayment(ctx context.Context, actor models.Actor, orderID string) (*models.Payment, error) {
	order, err := s.orders.GetByID(ctx, orderID)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("order not found")
		}
		return nil, apperrors.NewInternalError("failed to get order")
	}

	if !actor.IsAdmin() && order.UserID != actor.UserID {
		return nil, apperrors.NewNotFoundError("order not found")
	}

	payment, err := s.payments.GetByOrderID(ctx, orderID)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("no payment recorded for this order")
		}
		return nil, apperrors.NewInternalError("failed to get payment")
	}

	return payment, nil
}
