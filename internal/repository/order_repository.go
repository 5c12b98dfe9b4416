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

const orderColumns = `id, user_id, pharmacy_id, courier_id, status, total_amount, payment_status,
	shipping_address, shipping_city, shipping_postal_code, shipping_country, notes, created_at, updated_at`

// OrderRepository handles database operations for orders and their items
type OrderRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *database.Database, logger logger.Logger) *OrderRepository {
	return &OrderRepository{
		db:     db,
		logger: logger,
	}
}

// BeginTx starts a transaction for multi-row order operations
func (r *OrderRepository) BeginTx(ctx context.Context) (Tx, error) {
	return r.db.BeginTx(ctx)
}

// GetByID retrieves an order by its ID, without its items
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	var order models.Order
	err := r.db.DB.GetContext(ctx, &order, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get order by ID", "error", err, "orderID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &order, nil
}

// GetWithItems retrieves an order together with its line items
func (r *OrderRepository) GetWithItems(ctx context.Context, id string) (*models.Order, error) {
	order, err := r.GetByID(ctx, id)

	if err != nil {
		return nil, err
	}

	items, err := r.GetItems(ctx, id)

	if err != nil {
		return nil, err
	}

	order.Items = items
	return order, nil
}

// GetItems retrieves the line items of an order
func (r *OrderRepository) GetItems(ctx context.Context, orderID string) ([]*models.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, quantity, unit_price, total_price, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC
	`

	var items []*models.OrderItem
	err := r.db.DB.SelectContext(ctx, &items, query, orderID)

	if err != nil {
		r.logger.Error("Failed to get order items", "error", err, "orderID", orderID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return items, nil
}

// ListAll retrieves all orders with pagination
func (r *OrderRepository) ListAll(ctx context.Context, limit, offset int) ([]*models.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`, orderColumns)
	return r.list(ctx, query, limit, offset)
}

// ListByUser retrieves the orders placed by a user
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE user_id = $3 ORDER BY created_at DESC LIMIT $1 OFFSET $2`, orderColumns)
	return r.list(ctx, query, limit, offset, userID)
}

// ListByPharmacy retrieves the orders addressed to a pharmacy
func (r *OrderRepository) ListByPharmacy(ctx context.Context, pharmacyID string, limit, offset int) ([]*models.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE pharmacy_id = $3 ORDER BY created_at DESC LIMIT $1 OFFSET $2`, orderColumns)
	return r.list(ctx, query, limit, offset, pharmacyID)
}

// ListByCourier retrieves the orders assigned to a courier
func (r *OrderRepository) ListByCourier(ctx context.Context, courierID string, limit, offset int) ([]*models.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE courier_id = $3 ORDER BY created_at DESC LIMIT $1 OFFSET $2`, orderColumns)
	return r.list(ctx, query, limit, offset, courierID)
}

// HasPurchased reports whether the user has a completed order containing
// the product
func (r *OrderRepository) HasPurchased(ctx context.Context, userID, productID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM orders o
			JOIN order_items oi ON oi.order_id = o.id
			WHERE o.user_id = $1 AND oi.product_id = $2 AND o.status = $3
		)
	`

	var purchased bool
	err := r.db.DB.GetContext(ctx, &purchased, query, userID, productID, models.OrderStatusCompleted)

	if err != nil {
		r.logger.Error("Failed to check purchase history", "error", err, "userID", userID, "productID", productID)
		return false, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return purchased, nil
}

func (r *OrderRepository) list(ctx context.Context, query string, limit, offset int, args ...interface{}) ([]*models.Order, error) {
	queryArgs := append([]interface{}{limit, offset}, args...)

	var orders []*models.Order
	err := r.db.DB.SelectContext(ctx, &orders, query, queryArgs...)

	if err != nil {
		r.logger.Error("Failed to list orders", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return orders, nil
}

// CreateInTx inserts an order row
func (r *OrderRepository) CreateInTx(ctx context.Context, tx Tx, order *models.Order) error {
	query := `
		INSERT INTO orders (
			id, user_id, pharmacy_id, courier_id, status, total_amount, payment_status,
			shipping_address, shipping_city, shipping_postal_code, shipping_country, notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := tx.ExecContext(ctx, query,
		order.ID, order.UserID, order.PharmacyID, order.CourierID, order.Status,
		order.TotalAmount, order.PaymentStatus, order.ShippingAddress, order.ShippingCity,
		order.ShippingPostalCode, order.ShippingCountry, order.Notes,
		order.CreatedAt, order.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create order", "error", err, "orderID", order.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// CreateItemInTx inserts an order line item
func (r *OrderRepository) CreateItemInTx(ctx context.Context, tx Tx, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity, unit_price, total_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.ExecContext(ctx, query,
		item.ID, item.OrderID, item.ProductID, item.Quantity,
		item.UnitPrice, item.TotalPrice, item.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create order item", "error", err, "orderID", item.OrderID, "productID", item.ProductID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// UpdateInTx writes back the mutable order fields
func (r *OrderRepository) UpdateInTx(ctx context.Context, tx Tx, order *models.Order) error {
	query := `
		UPDATE orders
		SET status = $2, payment_status = $3, courier_id = $4, notes = $5, updated_at = NOW()
		WHERE id = $1
	`

	result, err := tx.ExecContext(ctx, query,
		order.ID, order.Status, order.PaymentStatus, order.CourierID, order.Notes,
	)

	if err != nil {
		r.logger.Error("Failed to update order", "error", err, "orderID", order.ID)
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
