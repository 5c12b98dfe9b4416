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

const cartColumns = `id, user_id, pharmacy_id, is_active, subtotal, delivery_fee, service_fee,
	total, expires_at, created_at, updated_at`

// CartRepository handles database operations for carts and their items
type CartRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewCartRepository creates a new CartRepository
func NewCartRepository(db *database.Database, logger logger.Logger) *CartRepository {
	return &CartRepository{
		db:     db,
		logger: logger,
	}
}

// BeginTx starts a transaction for cart operations
func (r *CartRepository) BeginTx(ctx context.Context) (Tx, error) {
	return r.db.BeginTx(ctx)
}

// GetActive retrieves a user's active cart at a pharmacy. The partial unique
// index on (user_id, pharmacy_id) guarantees at most one row.
func (r *CartRepository) GetActive(ctx context.Context, userID, pharmacyID string) (*models.Cart, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM carts
		WHERE user_id = $1 AND pharmacy_id = $2 AND is_active
	`, cartColumns)

	var cart models.Cart
	err := r.db.DB.GetContext(ctx, &cart, query, userID, pharmacyID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get active cart", "error", err, "userID", userID, "pharmacyID", pharmacyID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &cart, nil
}

// GetItems retrieves the items of a cart
func (r *CartRepository) GetItems(ctx context.Context, cartID string) ([]*models.CartItem, error) {
	query := `
		SELECT id, cart_id, product_id, quantity, price_at_addition, line_total, created_at, updated_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY created_at ASC
	`

	var items []*models.CartItem
	err := r.db.DB.SelectContext(ctx, &items, query, cartID)

	if err != nil {
		r.logger.Error("Failed to get cart items", "error", err, "cartID", cartID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return items, nil
}

// GetItemByProduct retrieves the cart line for a product, if any
func (r *CartRepository) GetItemByProduct(ctx context.Context, cartID, productID string) (*models.CartItem, error) {
	query := `
		SELECT id, cart_id, product_id, quantity, price_at_addition, line_total, created_at, updated_at
		FROM cart_items
		WHERE cart_id = $1 AND product_id = $2
	`

	var item models.CartItem
	err := r.db.DB.GetContext(ctx, &item, query, cartID, productID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get cart item", "error", err, "cartID", cartID, "productID", productID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &item, nil
}

// Create inserts a new cart
func (r *CartRepository) Create(ctx context.Context, cart *models.Cart) error {
	query := `
		INSERT INTO carts (
			id, user_id, pharmacy_id, is_active, subtotal, delivery_fee, service_fee,
			total, expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.DB.ExecContext(ctx, query,
		cart.ID, cart.UserID, cart.PharmacyID, cart.IsActive,
		cart.Subtotal, cart.DeliveryFee, cart.ServiceFee, cart.Total,
		cart.ExpiresAt, cart.CreatedAt, cart.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create cart", "error", err, "userID", cart.UserID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// CreateItemInTx inserts a cart line item
func (r *CartRepository) CreateItemInTx(ctx context.Context, tx Tx, item *models.CartItem) error {
	query := `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, price_at_addition, line_total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := tx.ExecContext(ctx, query,
		item.ID, item.CartID, item.ProductID, item.Quantity,
		item.PriceAtAddition, item.LineTotal, item.CreatedAt, item.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create cart item", "error", err, "cartID", item.CartID, "productID", item.ProductID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// UpdateItemInTx writes back a cart line's quantity and totals
func (r *CartRepository) UpdateItemInTx(ctx context.Context, tx Tx, item *models.CartItem) error {
	query := `
		UPDATE cart_items
		SET quantity = $2, line_total = $3, updated_at = NOW()
		WHERE id = $1
	`

	result, err := tx.ExecContext(ctx, query, item.ID, item.Quantity, item.LineTotal)

	if err != nil {
		r.logger.Error("Failed to update cart item", "error", err, "itemID", item.ID)
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

// DeleteItemInTx removes a cart line
func (r *CartRepository) DeleteItemInTx(ctx context.Context, tx Tx, itemID string) error {
	query := `DELETE FROM cart_items WHERE id = $1`

	result, err := tx.ExecContext(ctx, query, itemID)

	if err != nil {
		r.logger.Error("Failed to delete cart item", "error", err, "itemID", itemID)
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

// ClearItemsInTx removes all lines of a cart
func (r *CartRepository) ClearItemsInTx(ctx context.Context, tx Tx, cartID string) error {
	query := `DELETE FROM cart_items WHERE cart_id = $1`

	_, err := tx.ExecContext(ctx, query, cartID)

	if err != nil {
		r.logger.Error("Failed to clear cart items", "error", err, "cartID", cartID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// UpdateTotalsInTx writes back the cart's computed totals
func (r *CartRepository) UpdateTotalsInTx(ctx context.Context, tx Tx, cart *models.Cart) error {
	query := `
		UPDATE carts
		SET subtotal = $2, delivery_fee = $3, service_fee = $4, total = $5, updated_at = NOW()
		WHERE id = $1
	`

	_, err := tx.ExecContext(ctx, query,
		cart.ID, cart.Subtotal, cart.DeliveryFee, cart.ServiceFee, cart.Total,
	)

	if err != nil {
		r.logger.Error("Failed to update cart totals", "error", err, "cartID", cart.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// Deactivate retires a cart, freeing the active slot for that user and pharmacy
func (r *CartRepository) Deactivate(ctx context.Context, cartID string) error {
	query := `UPDATE carts SET is_active = FALSE, updated_at = NOW() WHERE id = $1`

	_, err := r.db.DB.ExecContext(ctx, query, cartID)

	if err != nil {
		r.logger.Error("Failed to deactivate cart", "error", err, "cartID", cartID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}
