package models

import (
	"time"
)

// ReviewStatus represents the moderation state of a review
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
)

// ValidReviewStatus reports whether s is a known review status
func ValidReviewStatus(s ReviewStatus) bool {
	switch s {
	case ReviewStatusPending, ReviewStatusApproved, ReviewStatusRejected:
		return true
	}
	return false
}

// Review is a user's rating of a product, pharmacy, or order. New reviews
// start pending until moderated.
type Review struct {
	ID     string `db:"id" json:"id"`
	UserID string `db:"user_id" json:"user_id"`
	SubjectRef
	Rating    int          `db:"rating" json:"rating"`
	Comment   string       `db:"comment" json:"comment,omitempty"`
	Status    ReviewStatus `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// RatingSummary aggregates the visible reviews of one subject
type RatingSummary struct {
	AverageRating float64 `db:"average_rating" json:"average_rating"`
	ReviewCount   int     `db:"review_count" json:"review_count"`
}

// NewReview creates a pending review
func NewReview(userID string, subject SubjectRef, rating int, comment string) *Review {
	now := GetCurrentTime()

	return &Review{
		ID:         GenerateID("rev"),
		UserID:     userID,
		SubjectRef: subject,
		Rating:     rating,
		Comment:    comment,
		Status:     ReviewStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
