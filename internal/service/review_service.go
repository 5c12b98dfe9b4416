package service

import (
	"context"
	"errors"

	apperrors "github.com/SpideeCode/uberPharmaV2/pkg/errors"
	"github.com/SpideeCode/uberPharmaV2/pkg/logger"

	"github.com/SpideeCode/uberPharmaV2/internal/models"
	"github.com/SpideeCode/uberPharmaV2/internal/policy"
	"github.com/SpideeCode/uberPharmaV2/internal/repository"
)

// ReviewInput carries the writable fields of a review
type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// ReviewService manages ratings of products, pharmacies, and orders. New
// reviews start pending and only approved ones are listed or counted; a
// product may only be reviewed by someone who completed an order containing
// it.
type ReviewService struct {
	reviews  ReviewStore
	orders   OrderStore
	subjects *SubjectDirectory
	logger   logger.Logger
}

// NewReviewService creates a new ReviewService
func NewReviewService(reviews ReviewStore, orders OrderStore, subjects *SubjectDirectory, logger logger.Logger) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		orders:   orders,
		subjects: subjects,
		logger:   logger,
	}
}

// ListForSubject returns the approved reviews of a subject with its rating
// summary
func (s *ReviewService) ListForSubject(ctx context.Context, actor models.Actor, subject models.SubjectRef, limit, offset int) ([]*models.Review, *models.RatingSummary, error) {
	if !policy.Allows(actor.Role, policy.ResourceReview, policy.CapView) {
		return nil, nil, apperrors.NewForbiddenError("role cannot view reviews")
	}

	if err := s.subjects.Resolve(ctx, subject); err != nil {
		return nil, nil, err
	}

	reviews, err := s.reviews.ListBySubject(ctx, subject, limit, offset)

	if err != nil {
		return nil, nil, apperrors.NewInternalError("failed to list reviews")
	}

	if reviews == nil {
		reviews = []*models.Review{}
	}

	summary, err := s.reviews.RatingSummary(ctx, subject)

	if err != nil {
		return nil, nil, apperrors.NewInternalError("failed to aggregate ratings")
	}

	return reviews, summary, nil
}

// Create submits a review. One review per user and subject; product reviews
// require a completed purchase of that product.
func (s *ReviewService) Create(ctx context.Context, actor models.Actor, subject models.SubjectRef, input ReviewInput) (*models.Review, error) {
	if !policy.Allows(actor.Role, policy.ResourceReview, policy.CapCreate) {
		return nil, apperrors.NewForbiddenError("role cannot create reviews")
	}

	if input.Rating < 1 || input.Rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5")
	}

	if err := s.subjects.Resolve(ctx, subject); err != nil {
		return nil, err
	}

	if subject.Kind == models.SubjectProduct {
		purchased, err := s.orders.HasPurchased(ctx, actor.UserID, subject.ID)

		if err != nil {
			return nil, apperrors.NewInternalError("failed to check purchase history")
		}

		if !purchased {
			return nil, apperrors.NewForbiddenError("product reviews require a completed order containing the product")
		}
	}

	exists, err := s.reviews.ExistsByUser(ctx, actor.UserID, subject)

	if err != nil {
		return nil, apperrors.NewInternalError("failed to check review")
	}

	if exists {
		return nil, apperrors.NewConflictError("subject already reviewed", "")
	}

	review := models.NewReview(actor.UserID, subject, input.Rating, input.Comment)

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, apperrors.NewInternalError("failed to create review")
	}

	s.logger.Info("Review submitted", "reviewID", review.ID, "userID", actor.UserID,
		"subjectKind", subject.Kind, "subjectID", subject.ID, "rating", review.Rating)
	return review, nil
}

// Update rewrites the actor's own review. An edited review goes back to
// pending for moderation.
func (s *ReviewService) Update(ctx context.Context, actor models.Actor, id string, input ReviewInput) (*models.Review, error) {
	if !policy.Allows(actor.Role, policy.ResourceReview, policy.CapUpdate) {
		return nil, apperrors.NewForbiddenError("role cannot update reviews")
	}

	if input.Rating < 1 || input.Rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5")
	}

	review, err := s.ownedReview(ctx, actor, id)

	if err != nil {
		return nil, err
	}

	review.Rating = input.Rating
	review.Comment = input.Comment
	review.Status = models.ReviewStatusPending

	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, apperrors.NewInternalError("failed to update review")
	}

	return review, nil
}

// Delete removes the actor's own review; admins may remove any
func (s *ReviewService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if !policy.Allows(actor.Role, policy.ResourceReview, policy.CapDelete) {
		return apperrors.NewForbiddenError("role cannot delete reviews")
	}

	review, err := s.ownedReview(ctx, actor, id)

	if err != nil {
		return err
	}

	if err := s.reviews.Delete(ctx, review.ID); err != nil {
		return apperrors.NewInternalError("failed to delete review")
	}

	return nil
}

// Moderate approves or rejects a pending review. Admin only.
func (s *ReviewService) Moderate(ctx context.Context, actor models.Actor, id string, status models.ReviewStatus) (*models.Review, error) {
	if actor.Role != models.RoleAdmin {
		return nil, apperrors.NewForbiddenError("only admins moderate reviews")
	}

	if status != models.ReviewStatusApproved && status != models.ReviewStatusRejected {
		return nil, apperrors.NewValidationError("status must be approved or rejected")
	}

	review, err := s.reviews.GetByID(ctx, id)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("review not found")
		}
		return nil, apperrors.NewInternalError("failed to get review")
	}

	review.Status = status

	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, apperrors.NewInternalError("failed to update review")
	}

	s.logger.Info("Review moderated", "reviewID", review.ID, "status", status)
	return review, nil
}

// ownedReview loads a review and checks it belongs to the actor. Admins may
// touch any review.
func (s *ReviewService) ownedReview(ctx context.Context, actor models.Actor, id string) (*models.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("review not found")
		}
		return nil, apperrors.NewInternalError("failed to get review")
	}

	if actor.Role != models.RoleAdmin && review.UserID != actor.UserID {
		return nil, apperrors.NewNotFoundError("review not found")
	}

	return review, nil
}
