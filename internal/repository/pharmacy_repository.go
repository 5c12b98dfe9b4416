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

// PharmacyRepository handles database operations for pharmacies
type PharmacyRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewPharmacyRepository creates a new PharmacyRepository
func NewPharmacyRepository(db *database.Database, logger logger.Logger) *PharmacyRepository {
	return &PharmacyRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a pharmacy by its ID
func (r *PharmacyRepository) GetByID(ctx context.Context, id string) (*models.Pharmacy, error) {
	query := `SELECT id, name, city, is_active, created_at FROM pharmacies WHERE id = $1`

	var pharmacy models.Pharmacy
	err := r.db.DB.GetContext(ctx, &pharmacy, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get pharmacy by ID", "error", err, "pharmacyID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &pharmacy, nil
}

// ListByCity retrieves the active pharmacies in a city
func (r *PharmacyRepository) ListByCity(ctx context.Context, city string) ([]*models.Pharmacy, error) {
	query := `
		SELECT id, name, city, is_active, created_at
		FROM pharmacies
		WHERE LOWER(city) = LOWER($1) AND is_active
		ORDER BY name ASC
	`

	var pharmacies []*models.Pharmacy
	err := r.db.DB.SelectContext(ctx, &pharmacies, query, city)

	if err != nil {
		r.logger.Error("Failed to list pharmacies by city", "error", err, "city", city)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return pharmacies, nil
}
