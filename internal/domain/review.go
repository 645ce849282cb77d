package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinReviewRating = 1
	MaxReviewRating = 5
)

// Review is a rating left on a product. It has no lifecycle outside its product.
type Review struct {
	ID         uuid.UUID `json:"_id"`
	ReviewerID uuid.UUID `json:"user"`
	Name       string    `json:"name"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NewReview creates a review from the given reviewer
func NewReview(reviewerID uuid.UUID, name string, rating int, comment string, now time.Time) Review {
	return Review{
		ID:         uuid.New(),
		ReviewerID: reviewerID,
		Name:       name,
		Rating:     rating,
		Comment:    comment,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
