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

// ProductRepository handles database operations for products. Stock mutation
// lives here and nowhere else.
type ProductRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewProductRepository creates a new ProductRepository
func NewProductRepository(db *database.Database, logger logger.Logger) *ProductRepository {
	return &ProductRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a product by its ID
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	query := `
		SELECT id, pharmacy_id, category_id, name, price, stock, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var product models.Product
	err := r.db.DB.GetContext(ctx, &product, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get product by ID", "error", err, "productID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &product, nil
}

// ListByPharmacy retrieves a pharmacy's products with pagination
func (r *ProductRepository) ListByPharmacy(ctx context.Context, pharmacyID string, limit, offset int) ([]*models.Product, error) {
	query := `
		SELECT id, pharmacy_id, category_id, name, price, stock, created_at, updated_at
		FROM products
		WHERE pharmacy_id = $1
		ORDER BY name ASC
		LIMIT $2 OFFSET $3
	`

	var products []*models.Product
	err := r.db.DB.SelectContext(ctx, &products, query, pharmacyID, limit, offset)

	if err != nil {
		r.logger.Error("Failed to list products by pharmacy", "error", err, "pharmacyID", pharmacyID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return products, nil
}

// ReserveStockInTx atomically debits quantity from the product's stock and
// returns the price snapshot captured by the same statement. The conditional
// WHERE makes concurrent over-reservation impossible: of two competing
// checkouts, only the one that still fits the remaining stock matches a row.
func (r *ProductRepository) ReserveStockInTx(ctx context.Context, tx Tx, productID string, quantity int) (*models.StockSnapshot, error) {
	query := `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
		RETURNING id, pharmacy_id, name, price
	`

	var snapshot models.StockSnapshot
	err := tx.GetContext(ctx, &snapshot, query, productID, quantity)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// No row matched: either the product is missing or the stock
			// is too low. Tell them apart for the error report.
			if _, getErr := r.GetByID(ctx, productID); errors.Is(getErr, ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, ErrInsufficientStock
		}
		r.logger.Error("Failed to reserve stock", "error", err, "productID", productID, "quantity", quantity)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &snapshot, nil
}

// RestockInTx credits quantity back to the product's stock
func (r *ProductRepository) RestockInTx(ctx context.Context, tx Tx, productID string, quantity int) error {
	query := `
		UPDATE products
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := tx.ExecContext(ctx, query, productID, quantity)

	if err != nil {
		r.logger.Error("Failed to restock product", "error", err, "productID", productID, "quantity", quantity)
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
