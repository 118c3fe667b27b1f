package domain

import "time"

const (
	MinRating        = 1
	MaxRating        = 5
	MaxReviewComment = 2000
)

// Review is a rating one user leaves for another, optionally tied to the tour it was about.
type Review struct {
	ID         int64     `json:"id"`
	ReviewerID int64     `json:"reviewer_id"`
	ReviewedID int64     `json:"reviewed_id"`
	TourID     *int64    `json:"tour_id,omitempty"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
