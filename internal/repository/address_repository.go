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

const addressColumns = `id, user_id, label, recipient_name, phone_number, address_line1,
	address_line2, city, state, postal_code, country, landmark, type, is_default,
	created_at, updated_at`

// AddressRepository handles database operations for the address book
type AddressRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewAddressRepository creates a new AddressRepository
func NewAddressRepository(db *database.Database, logger logger.Logger) *AddressRepository {
	return &AddressRepository{
		db:     db,
		logger: logger,
	}
}

// BeginTx starts a transaction for address operations
func (r *AddressRepository) BeginTx(ctx context.Context) (Tx, error) {
	return r.db.BeginTx(ctx)
}

// GetByID retrieves an address by its ID
func (r *AddressRepository) GetByID(ctx context.Context, id string) (*models.Address, error) {
	query := fmt.Sprintf(`SELECT %s FROM addresses WHERE id = $1`, addressColumns)

	var address models.Address
	err := r.db.DB.GetContext(ctx, &address, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get address by ID", "error", err, "addressID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &address, nil
}

// ListByUser retrieves a user's addresses, default first
func (r *AddressRepository) ListByUser(ctx context.Context, userID string) ([]*models.Address, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM addresses
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at DESC
	`, addressColumns)

	var addresses []*models.Address
	err := r.db.DB.SelectContext(ctx, &addresses, query, userID)

	if err != nil {
		r.logger.Error("Failed to list addresses", "error", err, "userID", userID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return addresses, nil
}

// GetDefault retrieves the user's default address
func (r *AddressRepository) GetDefault(ctx context.Context, userID string) (*models.Address, error) {
	query := fmt.Sprintf(`SELECT %s FROM addresses WHERE user_id = $1 AND is_default`, addressColumns)

	var address models.Address
	err := r.db.DB.GetContext(ctx, &address, query, userID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get default address", "error", err, "userID", userID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &address, nil
}

// CountByUser returns how many addresses the user has saved
func (r *AddressRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM addresses WHERE user_id = $1`, userID)

	if err != nil {
		r.logger.Error("Failed to count addresses", "error", err, "userID", userID)
		return 0, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return count, nil
}

// CreateInTx inserts an address row
func (r *AddressRepository) CreateInTx(ctx context.Context, tx Tx, address *models.Address) error {
	query := `
		INSERT INTO addresses (
			id, user_id, label, recipient_name, phone_number, address_line1,
			address_line2, city, state, postal_code, country, landmark, type,
			is_default, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := tx.ExecContext(ctx, query,
		address.ID, address.UserID, address.Label, address.RecipientName,
		address.PhoneNumber, address.AddressLine1, address.AddressLine2,
		address.City, address.State, address.PostalCode, address.Country,
		address.Landmark, address.Type, address.IsDefault,
		address.CreatedAt, address.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create address", "error", err, "userID", address.UserID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// UpdateInTx writes back the mutable address fields
func (r *AddressRepository) UpdateInTx(ctx context.Context, tx Tx, address *models.Address) error {
	query := `
		UPDATE addresses
		SET label = $2, recipient_name = $3, phone_number = $4, address_line1 = $5,
			address_line2 = $6, city = $7, state = $8, postal_code = $9, country = $10,
			landmark = $11, type = $12, is_default = $13, updated_at = NOW()
		WHERE id = $1
	`

	result, err := tx.ExecContext(ctx, query,
		address.ID, address.Label, address.RecipientName, address.PhoneNumber,
		address.AddressLine1, address.AddressLine2, address.City, address.State,
		address.PostalCode, address.Country, address.Landmark, address.Type,
		address.IsDefault,
	)

	if err != nil {
		r.logger.Error("Failed to update address", "error", err, "addressID", address.ID)
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

// DeleteInTx removes an address row
func (r *AddressRepository) DeleteInTx(ctx context.Context, tx Tx, id string) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM addresses WHERE id = $1`, id)

	if err != nil {
		r.logger.Error("Failed to delete address", "error", err, "addressID", id)
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

// UnsetDefaultsInTx clears the default flag on all of the user's other
// addresses, keeping the one-default invariant when a new default is set
func (r *AddressRepository) UnsetDefaultsInTx(ctx context.Context, tx Tx, userID, exceptID string) error {
	query := `
		UPDATE addresses
		SET is_default = FALSE, updated_at = NOW()
		WHERE user_id = $1 AND id != $2 AND is_default
	`

	_, err := tx.ExecContext(ctx, query, userID, exceptID)

	if err != nil {
		r.logger.Error("Failed to unset default addresses", "error", err, "userID", userID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// PromoteAnotherInTx makes the user's oldest remaining address the default.
// A no-op when the user has no other address.
func (r *AddressRepository) PromoteAnotherInTx(ctx context.Context, tx Tx, userID, exceptID string) error {
	query := `
		UPDATE addresses
		SET is_default = TRUE, updated_at = NOW()
		WHERE id = (
			SELECT id FROM addresses
			WHERE user_id = $1 AND id != $2
			ORDER BY created_at ASC
			LIMIT 1
		)
	`

	_, err := tx.ExecContext(ctx, query, userID, exceptID)

	if err != nil {
		r.logger.Error("Failed to promote replacement default address", "error", err, "userID", userID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}
