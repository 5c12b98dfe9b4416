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

const reviewColumns = `id, user_id, subject_kind, subject_id, rating, comment, status, created_at, updated_at`

// ReviewRepository handles database operations for reviews
type ReviewRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewReviewRepository creates a new ReviewRepository
func NewReviewRepository(db *database.Database, logger logger.Logger) *ReviewRepository {
	return &ReviewRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a review by its ID
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*models.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE id = $1`, reviewColumns)

	var review models.Review
	err := r.db.DB.GetContext(ctx, &review, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get review by ID", "error", err, "reviewID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &review, nil
}

// ListBySubject retrieves the approved reviews of a subject, newest first
func (r *ReviewRepository) ListBySubject(ctx context.Context, subject models.SubjectRef, limit, offset int) ([]*models.Review, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM reviews
		WHERE subject_kind = $1 AND subject_id = $2 AND status = $3
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`, reviewColumns)

	var reviews []*models.Review
	err := r.db.DB.SelectContext(ctx, &reviews, query,
		subject.Kind, subject.ID, models.ReviewStatusApproved, limit, offset,
	)

	if err != nil {
		r.logger.Error("Failed to list reviews", "error", err, "subjectKind", subject.Kind, "subjectID", subject.ID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return reviews, nil
}

// ExistsByUser reports whether the user already reviewed the subject
func (r *ReviewRepository) ExistsByUser(ctx context.Context, userID string, subject models.SubjectRef) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM reviews
			WHERE user_id = $1 AND subject_kind = $2 AND subject_id = $3
		)
	`

	var exists bool
	err := r.db.DB.GetContext(ctx, &exists, query, userID, subject.Kind, subject.ID)

	if err != nil {
		r.logger.Error("Failed to check review existence", "error", err, "userID", userID)
		return false, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return exists, nil
}

// Create inserts a review row
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (id, user_id, subject_kind, subject_id, rating, comment, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.DB.ExecContext(ctx, query,
		review.ID, review.UserID, review.Kind, review.SubjectRef.ID,
		review.Rating, review.Comment, review.Status,
		review.CreatedAt, review.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create review", "error", err, "userID", review.UserID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// Update writes back the rating, comment, and status of a review
func (r *ReviewRepository) Update(ctx context.Context, review *models.Review) error {
	query := `
		UPDATE reviews
		SET rating = $2, comment = $3, status = $4, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query,
		review.ID, review.Rating, review.Comment, review.Status,
	)

	if err != nil {
		r.logger.Error("Failed to update review", "error", err, "reviewID", review.ID)
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

// Delete removes a review row
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.DB.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)

	if err != nil {
		r.logger.Error("Failed to delete review", "error", err, "reviewID", id)
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

// RatingSummary aggregates the approved reviews of a subject
func (r *ReviewRepository) RatingSummary(ctx context.Context, subject models.SubjectRef) (*models.RatingSummary, error) {
	query := `
		SELECT COALESCE(AVG(rating), 0) AS average_rating, COUNT(*) AS review_count
		FROM reviews
		WHERE subject_kind = $1 AND subject_id = $2 AND status = $3
	`

	var summary models.RatingSummary
	err := r.db.DB.GetContext(ctx, &summary, query, subject.Kind, subject.ID, models.ReviewStatusApproved)

	if err != nil {
		r.logger.Error("Failed to aggregate ratings", "error", err, "subjectKind", subject.Kind, "subjectID", subject.ID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &summary, nil
}
