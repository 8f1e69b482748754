package domain

import (
	"time"
)

// Review is a single user's rating for one movie, unique per (user, movie).
// The JSON representation shows the reviewer's username and omits the movie,
// which is implied by the URL the review was fetched through.
type Review struct {
	ID          string    `json:"id" db:"id"`       // UUID
	MovieID     string    `json:"-" db:"movie_id"`  // implied by the URL
	UserID      string    `json:"-" db:"user_id"`   // internal; ReviewUser is shown instead
	ReviewUser  string    `json:"review_user" db:"review_user"` // username, joined from users
	Rating      int       `json:"rating" db:"rating"`
	Description string    `json:"description,omitempty" db:"description"`
	Active      bool      `json:"active" db:"active"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// CreateReviewRequest is the body of POST /api/movie/{id}/review/create.
// The rating range is checked before the movie is ever looked up.
type CreateReviewRequest struct {
	Rating      int    `json:"rating" validate:"required,gte=1,lte=5"`
	Description string `json:"description,omitempty" validate:"omitempty,max=200"`
}

// UpdateReviewRequest is the body of PUT /api/review/{id}. Updating a review
// does not re-aggregate the movie's rating statistics.
type UpdateReviewRequest struct {
	Rating      int    `json:"rating" validate:"required,gte=1,lte=5"`
	Description string `json:"description,omitempty" validate:"omitempty,max=200"`
	Active      *bool  `json:"active,omitempty"`
}
