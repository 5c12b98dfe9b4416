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

// FavoriteRepository handles database operations for favorites
type FavoriteRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewFavoriteRepository creates a new FavoriteRepository
func NewFavoriteRepository(db *database.Database, logger logger.Logger) *FavoriteRepository {
	return &FavoriteRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a favorite by its ID
func (r *FavoriteRepository) GetByID(ctx context.Context, id string) (*models.Favorite, error) {
	query := `SELECT id, user_id, subject_kind, subject_id, created_at FROM favorites WHERE id = $1`

	var favorite models.Favorite
	err := r.db.DB.GetContext(ctx, &favorite, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get favorite by ID", "error", err, "favoriteID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &favorite, nil
}

// ListByUser retrieves a user's favorites, newest first
func (r *FavoriteRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Favorite, error) {
	query := `
		SELECT id, user_id, subject_kind, subject_id, created_at
		FROM favorites
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	var favorites []*models.Favorite
	err := r.db.DB.SelectContext(ctx, &favorites, query, userID, limit, offset)

	if err != nil {
		r.logger.Error("Failed to list favorites", "error", err, "userID", userID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return favorites, nil
}

// Exists reports whether the user already favorited the subject
func (r *FavoriteRepository) Exists(ctx context.Context, userID string, subject models.SubjectRef) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM favorites
			WHERE user_id = $1 AND subject_kind = $2 AND subject_id = $3
		)
	`

	var exists bool
	err := r.db.DB.GetContext(ctx, &exists, query, userID, subject.Kind, subject.ID)

	if err != nil {
		r.logger.Error("Failed to check favorite existence", "error", err, "userID", userID)
		return false, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return exists, nil
}

// Create inserts a favorite row
func (r *FavoriteRepository) Create(ctx context.Context, favorite *models.Favorite) error {
	query := `
		INSERT INTO favorites (id, user_id, subject_kind, subject_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.DB.ExecContext(ctx, query,
		favorite.ID, favorite.UserID, favorite.Kind, favorite.SubjectRef.ID, favorite.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create favorite", "error", err, "userID", favorite.UserID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// Delete removes a favorite row
func (r *FavoriteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.DB.ExecContext(ctx, `DELETE FROM favorites WHERE id = $1`, id)

	if err != nil {
		r.logger.Error("Failed to delete favorite", "error", err, "favoriteID", id)
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
