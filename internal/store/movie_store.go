package store

import (
	"context"
	"errors"

	"streamreview/internal/domain"
)

var ErrMovieNotFound = errors.New("movie not found")

// MovieListParams narrows and pages the movie listing. Listing is ordered by
// title; Offset is derived from the caller's cursor.
type MovieListParams struct {
	PlatformID string
	Active     *bool
	Search     string // case-insensitive match on title or storyline
	Limit      int
	Offset     int
}

// MovieStore defines the interface for movie persistence. Delete removes the
// movie's reviews in the same transaction.
type MovieStore interface {
	Create(ctx context.Context, movie *domain.Movie) error
	GetByID(ctx context.Context, movieID string) (*domain.Movie, error)
	// List returns up to params.Limit movies plus a flag telling whether more
	// rows exist past the window.
	List(ctx context.Context, params MovieListParams) ([]*domain.Movie, bool, error)
	ListByPlatformID(ctx context.Context, platformID string) ([]*domain.Movie, error)
	Update(ctx context.Context, movie *domain.Movie) error
	Delete(ctx context.Context, movieID string) error
}
