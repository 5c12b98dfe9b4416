package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/SpideeCode/uberPharmaV2/pkg/errors"
	"github.com/SpideeCode/uberPharmaV2/pkg/logger"

	"github.com/SpideeCode/uberPharmaV2/internal/models"
)

func newTestReviewService(db *memDB) *ReviewService {
	subjects := NewSubjectDirectory(memProducts{db}, memPharmacies{db}, db)
	return NewReviewService(memReviews{db}, db, subjects, logger.NewLogger("error"))
}

func seedCompletedOrder(db *memDB, id, userID, productID string) {
	db.orders[id] = &models.Order{
		ID:         id,
		UserID:     userID,
		PharmacyID: "phm-1",
		Status:     models.OrderStatusCompleted,
	}
	db.orderItems[id] = []*models.OrderItem{
		{ID: id + "-item", OrderID: id, ProductID: productID, Quantity: 1},
	}
}

func TestProductReviewRequiresCompletedPurchase(t *testing.T) {
	db := newMemDB()
	seedProduct(db, "prd-1", "phm-1", 3.50, 10)
	svc := newTestReviewService(db)

	subject := models.SubjectRef{Kind: models.SubjectProduct, ID: "prd-1"}

	_, err := svc.Create(context.Background(), clientActor, subject, ReviewInput{Rating: 5})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	seedCompletedOrder(db, "ord-1", clientActor.UserID, "prd-1")

	review, err := svc.Create(context.Background(), clientActor, subject, ReviewInput{Rating: 5, Comment: "Fast relief"})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusPending, review.Status)

	// The purchase gate is per user.
	_, err = svc.Create(context.Background(), strangerActor, subject, ReviewInput{Rating: 4})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestPharmacyReviewNeedsNoPurchase(t *testing.T) {
	db := newMemDB()
	seedPharmacy(db, "phm-1", "Lyon")
	svc := newTestReviewService(db)

	review, err := svc.Create(context.Background(), clientActor,
		models.SubjectRef{Kind: models.SubjectPharmacy, ID: "phm-1"}, ReviewInput{Rating: 4})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusPending, review.Status)
}

func TestReviewRatingBounds(t *testing.T) {
	db := newMemDB()
	seedPharmacy(db, "phm-1", "Lyon")
	svc := newTestReviewService(db)

	subject := models.SubjectRef{Kind: models.SubjectPharmacy, ID: "phm-1"}

	_, err := svc.Create(context.Background(), clientActor, subject, ReviewInput{Rating: 0})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.Create(context.Background(), clientActor, subject, ReviewInput{Rating: 6})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	assert.Empty(t, db.reviews)
}

func TestDuplicateReviewConflicts(t *testing.T) {
	db := newMemDB()
	seedPharmacy(db, "phm-1", "Lyon")
	svc := newTestReviewService(db)

	subject := models.SubjectRef{Kind: models.SubjectPharmacy, ID: "phm-1"}

	_, err := svc.Create(context.Background(), clientActor, subject, ReviewInput{Rating: 4})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), clientActor, subject, ReviewInput{Rating: 2})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestOnlyApprovedReviewsAreListed(t *testing.T) {
	db := newMemDB()
	seedPharmacy(db, "phm-1", "Lyon")
	svc := newTestReviewService(db)

	subject := models.SubjectRef{Kind: models.SubjectPharmacy, ID: "phm-1"}

	pending, err := svc.Create(context.Background(), clientActor, subject, ReviewInput{Rating: 4})
	require.NoError(t, err)
	other, err := svc.Create(context.Background(), strangerActor, subject, ReviewInput{Rating: 2})
	require.NoError(t, err)

	reviews, summary, err := svc.ListForSubject(context.Background(), clientActor, subject, 20, 0)
	require.NoError(t, err)
	assert.Empty(t, reviews)
	assert.Equal(t, 0, summary.ReviewCount)

	_, err = svc.Moderate(context.Background(), adminActor, pending.ID, models.ReviewStatusApproved)
	require.NoError(t, err)
	_, err = svc.Moderate(context.Background(), adminActor, other.ID, models.ReviewStatusRejected)
	require.NoError(t, err)

	reviews, summary, err = svc.ListForSubject(context.Background(), clientActor, subject, 20, 0)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, pending.ID, reviews[0].ID)
	assert.Equal(t, 1, summary.ReviewCount)
	assert.InDelta(t, 4.0, summary.AverageRating, 0.001)
}

func TestModerationIsAdminOnly(t *testing.T) {
	db := newMemDB()
	seedPharmacy(db, "phm-1", "Lyon")
	svc := newTestReviewService(db)

	review, err := svc.Create(context.Background(), clientActor,
		models.SubjectRef{Kind: models.SubjectPharmacy, ID: "phm-1"}, ReviewInput{Rating: 4})
	require.NoError(t, err)

	_, err = svc.Moderate(context.Background(), clientActor, review.ID, models.ReviewStatusApproved)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.Moderate(context.Background(), adminActor, review.ID, models.ReviewStatusPending)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestEditedReviewGoesBackToPending(t *testing.T) {
	db := newMemDB()
	seedPharmacy(db, "phm-1", "Lyon")
	svc := newTestReviewService(db)

	review, err := svc.Create(context.Background(), clientActor,
		models.SubjectRef{Kind: models.SubjectPharmacy, ID: "phm-1"}, ReviewInput{Rating: 4})
	require.NoError(t, err)

	_, err = svc.Moderate(context.Background(), adminActor, review.ID, models.ReviewStatusApproved)
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), clientActor, review.ID, ReviewInput{Rating: 2, Comment: "Changed my mind"})
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusPending, updated.Status)
	assert.Equal(t, 2, db.reviews[review.ID].Rating)

	// Someone else's review cannot be edited or deleted.
	_, err = svc.Update(context.Background(), strangerActor, review.ID, ReviewInput{Rating: 1})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = svc.Delete(context.Background(), strangerActor, review.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, svc.Delete(context.Background(), clientActor, review.ID))
	assert.Empty(t, db.reviews)
}
