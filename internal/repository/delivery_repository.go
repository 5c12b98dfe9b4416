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

const deliveryColumns = `id, order_id, courier_id, status, current_location, estimated_delivery,
	notes, assigned_at, picked_up_at, delivered_at, created_at, updated_at`

// DeliveryRepository handles database operations for deliveries
type DeliveryRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewDeliveryRepository creates a new DeliveryRepository
func NewDeliveryRepository(db *database.Database, logger logger.Logger) *DeliveryRepository {
	return &DeliveryRepository{
		db:     db,
		logger: logger,
	}
}

// BeginTx starts a transaction for delivery operations
func (r *DeliveryRepository) BeginTx(ctx context.Context) (Tx, error) {
	return r.db.BeginTx(ctx)
}

// GetByID retrieves a delivery by its ID
func (r *DeliveryRepository) GetByID(ctx context.Context, id string) (*models.Delivery, error) {
	query := fmt.Sprintf(`SELECT %s FROM deliveries WHERE id = $1`, deliveryColumns)

	var delivery models.Delivery
	err := r.db.DB.GetContext(ctx, &delivery, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get delivery by ID", "error", err, "deliveryID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &delivery, nil
}

// GetByOrderID retrieves the delivery attached to an order
func (r *DeliveryRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Delivery, error) {
	query := fmt.Sprintf(`SELECT %s FROM deliveries WHERE order_id = $1`, deliveryColumns)

	var delivery models.Delivery
	err := r.db.DB.GetContext(ctx, &delivery, query, orderID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get delivery by order ID", "error", err, "orderID", orderID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &delivery, nil
}

// ListUnassigned retrieves the deliveries still open for couriers to claim
func (r *DeliveryRepository) ListUnassigned(ctx context.Context, limit, offset int) ([]*models.Delivery, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM deliveries d
		JOIN orders o ON o.id = d.order_id
		WHERE d.courier_id IS NULL AND o.status IN ('ready_for_delivery', 'pending')
		ORDER BY d.created_at ASC
		LIMIT $1 OFFSET $2
	`, deliveryColumnsPrefixed)

	var deliveries []*models.Delivery
	err := r.db.DB.SelectContext(ctx, &deliveries, query, limit, offset)

	if err != nil {
		r.logger.Error("Failed to list unassigned deliveries", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return deliveries, nil
}

const deliveryColumnsPrefixed = `d.id, d.order_id, d.courier_id, d.status, d.current_location, d.estimated_delivery,
	d.notes, d.assigned_at, d.picked_up_at, d.delivered_at, d.created_at, d.updated_at`

// ListByCourier retrieves the deliveries claimed by a courier
func (r *DeliveryRepository) ListByCourier(ctx context.Context, courierID string, limit, offset int) ([]*models.Delivery, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM deliveries
		WHERE courier_id = $3
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, deliveryColumns)

	var deliveries []*models.Delivery
	err := r.db.DB.SelectContext(ctx, &deliveries, query, limit, offset, courierID)

	if err != nil {
		r.logger.Error("Failed to list deliveries by courier", "error", err, "courierID", courierID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return deliveries, nil
}

// ListAll retrieves all deliveries with pagination
func (r *DeliveryRepository) ListAll(ctx context.Context, limit, offset int) ([]*models.Delivery, error) {
	query := fmt.Sprintf(`SELECT %s FROM deliveries ORDER BY created_at DESC LIMIT $1 OFFSET $2`, deliveryColumns)

	var deliveries []*models.Delivery
	err := r.db.DB.SelectContext(ctx, &deliveries, query, limit, offset)

	if err != nil {
		r.logger.Error("Failed to list deliveries", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return deliveries, nil
}

// CreateInTx inserts a delivery row
func (r *DeliveryRepository) CreateInTx(ctx context.Context, tx Tx, delivery *models.Delivery) error {
	query := `
		INSERT INTO deliveries (
			id, order_id, courier_id, status, current_location, estimated_delivery,
			notes, assigned_at, picked_up_at, delivered_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := tx.ExecContext(ctx, query,
		delivery.ID, delivery.OrderID, delivery.CourierID, delivery.Status,
		delivery.CurrentLocation, delivery.EstimatedDelivery, delivery.Notes,
		delivery.AssignedAt, delivery.PickedUpAt, delivery.DeliveredAt,
		delivery.CreatedAt, delivery.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create delivery", "error", err, "orderID", delivery.OrderID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// CreateIfAbsentInTx inserts a delivery row unless the order already has one.
// Concurrent inserts for the same order collide on the UNIQUE(order_id)
// constraint; the loser's insert becomes a no-op instead of an error.
func (r *DeliveryRepository) CreateIfAbsentInTx(ctx context.Context, tx Tx, delivery *models.Delivery) error {
	query := `
		INSERT INTO deliveries (
			id, order_id, courier_id, status, current_location, estimated_delivery,
			notes, assigned_at, picked_up_at, delivered_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (order_id) DO NOTHING
	`

	_, err := tx.ExecContext(ctx, query,
		delivery.ID, delivery.OrderID, delivery.CourierID, delivery.Status,
		delivery.CurrentLocation, delivery.EstimatedDelivery, delivery.Notes,
		delivery.AssignedAt, delivery.PickedUpAt, delivery.DeliveredAt,
		delivery.CreatedAt, delivery.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to upsert delivery", "error", err, "orderID", delivery.OrderID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetByOrderIDInTx reads the delivery attached to an order inside a
// transaction, seeing that transaction's own writes
func (r *DeliveryRepository) GetByOrderIDInTx(ctx context.Context, tx Tx, orderID string) (*models.Delivery, error) {
	query := fmt.Sprintf(`SELECT %s FROM deliveries WHERE order_id = $1`, deliveryColumns)

	var delivery models.Delivery
	err := tx.GetContext(ctx, &delivery, query, orderID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get delivery by order ID", "error", err, "orderID", orderID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &delivery, nil
}

// ClaimInTx assigns a courier to a delivery, but only while no courier holds
// it. The conditional WHERE decides races: of two concurrent claims exactly
// one matches the row, the other gets ErrAlreadyClaimed.
func (r *DeliveryRepository) ClaimInTx(ctx context.Context, tx Tx, deliveryID, courierID string) error {
	query := `
		UPDATE deliveries
		SET courier_id = $2, status = $3, assigned_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND courier_id IS NULL
	`

	result, err := tx.ExecContext(ctx, query, deliveryID, courierID, models.DeliveryStatusAssigned)

	if err != nil {
		r.logger.Error("Failed to claim delivery", "error", err, "deliveryID", deliveryID, "courierID", courierID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return ErrAlreadyClaimed
	}

	return nil
}

// UpdateInTx writes back the mutable delivery fields
func (r *DeliveryRepository) UpdateInTx(ctx context.Context, tx Tx, delivery *models.Delivery) error {
	query := `
		UPDATE deliveries
		SET status = $2, current_location = $3, estimated_delivery = $4, notes = $5,
			picked_up_at = $6, delivered_at = $7, updated_at = NOW()
		WHERE id = $1
	`

	result, err := tx.ExecContext(ctx, query,
		delivery.ID, delivery.Status, delivery.CurrentLocation, delivery.EstimatedDelivery,
		delivery.Notes, delivery.PickedUpAt, delivery.DeliveredAt,
	)

	if err != nil {
		r.logger.Error("Failed to update delivery", "error", err, "deliveryID", delivery.ID)
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
