package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/SpideeCode/uberPharmaV2/internal/database"
	"github.com/SpideeCode/uberPharmaV2/internal/models"
	"github.com/SpideeCode/uberPharmaV2/pkg/logger"
)

// PaymentRepository handles database operations for payments
type PaymentRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *database.Database, logger logger.Logger) *PaymentRepository {
	return &PaymentRepository{
		db:     db,
		logger: logger,
	}
}

// GetByOrderID retrieves the payment recorded for an order
func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	query := `
		SELECT id, order_id, user_id, amount, method, transaction_id, status, created_at
		FROM payments
		WHERE order_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var payment models.Payment
	err := r.db.DB.GetContext(ctx, &payment, query, orderID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get payment by order ID", "error", err, "orderID", orderID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &payment, nil
}

// CreateInTx inserts a payment row
func (r *PaymentRepository) CreateInTx(ctx context.Context, tx Tx, payment *models.Payment) error {
	query := `
		INSERT INTO payments (id, order_id, user_id, amount, method, transaction_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := tx.ExecContext(ctx, query,
		payment.ID, payment.OrderID, payment.UserID, payment.Amount,
		payment.Method, payment.TransactionID, payment.Status, payment.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create payment", "error", err, "orderID", payment.OrderID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// UpdateStatusInTx updates a payment's status
func (r *PaymentRepository) UpdateStatusInTx(ctx context.Context, tx Tx, paymentID, status string) error {
	query := `UPDATE payments SET status = $2 WHERE id = $1`

	result, err := tx.ExecContext(ctx, query, paymentID, status)

	if err != nil {
		r.logger.Error("Failed to update payment status", "error", err, "paymentID", paymentID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
