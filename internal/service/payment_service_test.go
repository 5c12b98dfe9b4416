package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/SpideeCode/uberPharmaV2/pkg/errors"
	"github.com/SpideeCode/uberPharmaV2/pkg/logger"

	"github.com/SpideeCode/uberPharmaV2/internal/clients"
	"github.com/SpideeCode/uberPharmaV2/internal/models"
)

// scriptedGateway returns a canned verdict and records what it was asked
type scriptedGateway struct {
	result *clients.ChargeResult
	err    error
	calls  int
	last   clients.ChargeRequest
}

func (g *scriptedGateway) Charge(ctx context.Context, req clients.ChargeRequest) (*clients.ChargeResult, error) {
	g.calls++
	g.last = req
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

func newTestPaymentService(db *memDB, gateway *scriptedGateway) *PaymentService {
	return NewPaymentService(memPayments{db}, db, gateway, memOutbox{db}, logger.NewLogger("error"))
}

func seedUnpaidOrder(db *memDB, userID string, total float64) *models.Order {
	order := models.NewOrder(userID, "phm-1", testShipping)
	order.TotalAmount = total
	db.orders[order.ID] = order
	return order
}

func TestProcessPaymentSuccess(t *testing.T) {
	db := newMemDB()
	gateway := &scriptedGateway{result: &clients.ChargeResult{Authorized: true, TransactionID: "txn-42"}}
	svc := newTestPaymentService(db, gateway)
	ctx := context.Background()

	order := seedUnpaidOrder(db, "usr-1", 14.00)

	payment, err := svc.ProcessPayment(ctx, clientActor, order.ID, ProcessPaymentInput{
		Amount: 14.00,
		Method: models.PaymentMethodCreditCard,
	})

	require.NoError(t, err)
	assert.Equal(t, "txn-42", payment.TransactionID)
	assert.Equal(t, "completed", payment.Status)
	assert.InDelta(t, 14.00, payment.Amount, 0.001)

	// The gateway is charged the stored total, not the client's figure.
	assert.InDelta(t, 14.00, gateway.last.Amount, 0.001)

	stored, _ := db.GetByID(ctx, order.ID)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
	assert.Contains(t, db.eventTypes(), "payment_processed")
}

func TestProcessPaymentAmountMustMatchOrderTotal(t *testing.T) {
	db := newMemDB()
	gateway := &scriptedGateway{result: &clients.ChargeResult{Authorized: true, TransactionID: "txn-1"}}
	svc := newTestPaymentService(db, gateway)

	order := seedUnpaidOrder(db, "usr-1", 14.00)

	_, err := svc.ProcessPayment(context.Background(), clientActor, order.ID, ProcessPaymentInput{
		Amount: 5.00,
		Method: models.PaymentMethodCreditCard,
	})

	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Zero(t, gateway.calls)
}

func TestProcessPaymentDeclined(t *testing.T) {
	db := newMemDB()
	gateway := &scriptedGateway{result: &clients.ChargeResult{Authorized: false, DeclineReason: "insufficient funds"}}
	svc := newTestPaymentService(db, gateway)
	ctx := context.Background()

	order := seedUnpaidOrder(db, "usr-1", 14.00)

	_, err := svc.ProcessPayment(ctx, clientActor, order.ID, ProcessPaymentInput{
		Amount: 14.00,
		Method: models.PaymentMethodCreditCard,
	})

	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusPaymentRequired, appErr.StatusCode)

	stored, _ := db.GetByID(ctx, order.ID)
	assert.Equal(t, models.PaymentStatusUnpaid, stored.PaymentStatus)
	assert.Empty(t, db.payments)
}

func TestProcessPaymentGuards(t *testing.T) {
	db := newMemDB()
	gateway := &scriptedGateway{result: &clients.ChargeResult{Authorized: true, TransactionID: "txn-1"}}
	svc := newTestPaymentService(db, gateway)
	ctx := context.Background()

	order := seedUnpaidOrder(db, "usr-1", 14.00)

	// A stranger probing the order learns nothing.
	_, err := svc.ProcessPayment(ctx, strangerActor, order.ID, ProcessPaymentInput{Amount: 14.00, Method: models.PaymentMethodPaypal})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.ProcessPayment(ctx, courierActor, order.ID, ProcessPaymentInput{Amount: 14.00, Method: models.PaymentMethodPaypal})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.ProcessPayment(ctx, clientActor, order.ID, ProcessPaymentInput{Amount: 14.00, Method: "barter"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	order.PaymentStatus = models.PaymentStatusPaid
	_, err = svc.ProcessPayment(ctx, clientActor, order.ID, ProcessPaymentInput{Amount: 14.00, Method: models.PaymentMethodPaypal})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	order.PaymentStatus = models.PaymentStatusUnpaid
	order.Status = models.OrderStatusCancelled
	_, err = svc.ProcessPayment(ctx, clientActor, order.ID, ProcessPaymentInput{Amount: 14.00, Method: models.PaymentMethodPaypal})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestProcessPaymentGatewayFailurePropagates(t *testing.T) {
	db := newMemDB()
	gateway := &scriptedGateway{err: apperrors.NewTemporaryError("payment gateway unavailable")}
	svc := newTestPaymentService(db, gateway)

	order := seedUnpaidOrder(db, "usr-1", 14.00)

	_, err := svc.ProcessPayment(context.Background(), clientActor, order.ID, ProcessPaymentInput{
		Amount: 14.00,
		Method: models.PaymentMethodMobileMoney,
	})

	assert.ErrorIs(t, err, apperrors.ErrTemporaryFailure)
	assert.Empty(t, db.payments)
}

func TestGetPayment(t *testing.T) {
	db := newMemDB()
	svc := newTestPaymentService(db, &scriptedGateway{})
	ctx := context.Background()

	order := seedUnpaidOrder(db, "usr-1", 14.00)

	_, err := svc.GetPayment(ctx, clientActor, order.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	payment := models.NewPayment(order.ID, "usr-1", 14.00, models.PaymentMethodCreditCard, "txn-7")
	db.payments[order.ID] = payment

	got, err := svc.GetPayment(ctx, clientActor, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "txn-7", got.TransactionID)

	_, err = svc.GetPayment(ctx, adminActor, order.ID)
	require.NoError(t, err)

	_, err = svc.GetPayment(ctx, strangerActor, order.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
