package store

import (
	"context"
	"errors"

	"streamreview/internal/domain"
)

var (
	ErrReviewNotFound  = errors.New("review not found")
	ErrDuplicateReview = errors.New("user has already reviewed this movie")
)

// ReviewStore defines the interface for review persistence.
//
// SubmitReview is the aggregation protocol: inside a single transaction it
// locks the movie row, rejects a duplicate (user, movie) submission, folds the
// rating into the movie's aggregate statistics and inserts the review. A
// failed submission performs no mutation at all.
//
// Update and Delete are plain row operations; they deliberately do NOT touch
// the movie's avg_rating/number_rating, matching the recorded behavior of the
// platform (the aggregate goes stale after an edit or delete).
type ReviewStore interface {
	SubmitReview(ctx context.Context, review *domain.Review) error
	GetByID(ctx context.Context, reviewID string) (*domain.Review, error)
	Update(ctx context.Context, review *domain.Review) error
	Delete(ctx context.Context, reviewID string) error
	// ListByMovieID returns the movie's reviews; search, when non-empty,
	// filters on the reviewer's username (case-insensitive substring).
	ListByMovieID(ctx context.Context, movieID, search string) ([]*domain.Review, error)
	// ListByUsername returns every review by the named user; an unknown
	// username yields an empty list, not an error.
	ListByUsername(ctx context.Context, username string) ([]*domain.Review, error)
}
