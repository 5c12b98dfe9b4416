package models

import (
	"time"
)

// Favorite bookmarks a product or pharmacy for a user
type Favorite struct {
	ID     string `db:"id" json:"id"`
	UserID string `db:"user_id" json:"user_id"`
	SubjectRef
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NewFavorite creates a favorite entry
func NewFavorite(userID string, subject SubjectRef) *Favorite {
	return &Favorite{
		ID:         GenerateID("fav"),
		UserID:     userID,
		SubjectRef: subject,
		CreatedAt:  GetCurrentTime(),
	}
}
