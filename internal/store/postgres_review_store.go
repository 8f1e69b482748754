package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"streamreview/internal/cache"
	"streamreview/internal/domain"
	"streamreview/internal/ratings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresReviewStore implements ReviewStore for PostgreSQL.
type PostgresReviewStore struct {
	db     *sqlx.DB
	cache  *cache.Cache
	logger *slog.Logger
}

// NewPostgresReviewStore creates a new PostgresReviewStore. db must already be
// connected.
func NewPostgresReviewStore(db *sqlx.DB, c *cache.Cache, logger *slog.Logger) (*PostgresReviewStore, error) {
	if db == nil {
		return nil, errors.New("database connection (db) cannot be nil for PostgresReviewStore")
	}
	return &PostgresReviewStore{db: db, cache: c, logger: logger}, nil
}

// SubmitReview runs the aggregation protocol in one transaction. The movie row
// is locked FOR UPDATE so that the duplicate check, the recurrence and both
// writes happen in a single serialized scope: two concurrent submissions for
// the same movie cannot both take the first-review branch or drop each other's
// contribution.
func (s *PostgresReviewStore) SubmitReview(ctx context.Context, review *domain.Review) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin review submission transaction: %w", err)
	}
	defer tx.Rollback()

	var movieStats struct {
		AvgRating    float64 `db:"avg_rating"`
		NumberRating int     `db:"number_rating"`
	}
	err = tx.GetContext(ctx, &movieStats,
		`SELECT avg_rating, number_rating FROM movies WHERE id = $1 FOR UPDATE`, review.MovieID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.WarnContext(ctx, "Review submitted for non-existent movie",
				slog.String("movieID", review.MovieID))
			return ErrMovieNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to lock movie row for review submission",
			slog.String("movieID", review.MovieID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to lock movie for review submission: %w", err)
	}

	var alreadyReviewed bool
	err = tx.GetContext(ctx, &alreadyReviewed,
		`SELECT EXISTS(SELECT 1 FROM reviews WHERE movie_id = $1 AND user_id = $2)`,
		review.MovieID, review.UserID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to check for existing review",
			slog.String("movieID", review.MovieID), slog.String("userID", review.UserID),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to check for existing review: %w", err)
	}
	if alreadyReviewed {
		s.logger.WarnContext(ctx, "User has already reviewed this movie",
			slog.String("movieID", review.MovieID), slog.String("userID", review.UserID))
		return ErrDuplicateReview
	}

	newAvg, newCount := ratings.Apply(movieStats.AvgRating, movieStats.NumberRating, review.Rating)
	if _, err := tx.ExecContext(ctx,
		`UPDATE movies SET avg_rating = $1, number_rating = $2 WHERE id = $3`,
		newAvg, newCount, review.MovieID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to update movie rating statistics",
			slog.String("movieID", review.MovieID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to update movie rating statistics: %w", err)
	}

	review.Active = true
	review.UpdatedAt = time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO reviews (id, movie_id, user_id, rating, description, active, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		review.ID, review.MovieID, review.UserID, review.Rating,
		review.Description, review.Active, review.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == "uq_user_movie_review" {
			return ErrDuplicateReview
		}
		s.logger.ErrorContext(ctx, "Failed to insert review",
			slog.String("reviewID", review.ID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to insert review: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit review submission transaction: %w", err)
	}

	s.cache.Invalidate(ctx, movieCacheKey(review.MovieID))
	s.logger.InfoContext(ctx, "Review submitted and movie aggregate updated",
		slog.String("reviewID", review.ID), slog.String("movieID", review.MovieID),
		slog.Float64("avg_rating", newAvg), slog.Int("number_rating", newCount))
	return nil
}

// GetByID finds a review by id, with the reviewer's username joined in.
func (s *PostgresReviewStore) GetByID(ctx context.Context, reviewID string) (*domain.Review, error) {
	query := `SELECT r.id, r.movie_id, r.user_id, u.username AS review_user,
                     r.rating, r.description, r.active, r.updated_at
              FROM reviews r JOIN users u ON u.id = r.user_id
              WHERE r.id = $1`
	var review domain.Review

	err := s.db.GetContext(ctx, &review, query, reviewID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.WarnContext(ctx, "Review not found by ID in DB", slog.String("reviewID", reviewID))
			return nil, ErrReviewNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to get review by ID from DB",
			slog.String("reviewID", reviewID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get review by ID: %w", err)
	}
	return &review, nil
}

// Update overwrites the review's mutable fields. The movie's aggregate is left
// untouched.
func (s *PostgresReviewStore) Update(ctx context.Context, review *domain.Review) error {
	query := `UPDATE reviews SET rating = $1, description = $2, active = $3, updated_at = $4 WHERE id = $5`
	review.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, query,
		review.Rating, review.Description, review.Active, review.UpdatedAt, review.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to update review in DB",
			slog.String("reviewID", review.ID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to update review: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check review update result: %w", err)
	}
	if rowsAffected == 0 {
		return ErrReviewNotFound
	}
	s.logger.InfoContext(ctx, "Review updated successfully in DB", slog.String("reviewID", review.ID))
	return nil
}

// Delete removes the review. The movie's aggregate is left untouched.
func (s *PostgresReviewStore) Delete(ctx context.Context, reviewID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, reviewID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete review from DB",
			slog.String("reviewID", reviewID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete review: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check review delete result: %w", err)
	}
	if rowsAffected == 0 {
		return ErrReviewNotFound
	}
	s.logger.InfoContext(ctx, "Review deleted successfully from DB", slog.String("reviewID", reviewID))
	return nil
}

// ListByMovieID returns the movie's reviews, newest first; search filters on
// the reviewer's username.
func (s *PostgresReviewStore) ListByMovieID(ctx context.Context, movieID, search string) ([]*domain.Review, error) {
	query := `SELECT r.id, r.movie_id, r.user_id, u.username AS review_user,
                     r.rating, r.description, r.active, r.updated_at
              FROM reviews r JOIN users u ON u.id = r.user_id
              WHERE r.movie_id = $1`
	args := []interface{}{movieID}

	if search != "" {
		query += ` AND u.username ILIKE $2`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY r.updated_at DESC`

	reviews := []*domain.Review{}
	if err := s.db.SelectContext(ctx, &reviews, query, args...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list reviews by movieID from DB",
			slog.String("movieID", movieID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list reviews by movieID: %w", err)
	}
	return reviews, nil
}

// ListByUsername returns every review by the named user. An unknown username
// simply matches no rows.
func (s *PostgresReviewStore) ListByUsername(ctx context.Context, username string) ([]*domain.Review, error) {
	query := `SELECT r.id, r.movie_id, r.user_id, u.username AS review_user,
                     r.rating, r.description, r.active, r.updated_at
              FROM reviews r JOIN users u ON u.id = r.user_id
              WHERE u.username = $1
              ORDER BY r.updated_at DESC`

	reviews := []*domain.Review{}
	if err := s.db.SelectContext(ctx, &reviews, query, username); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list reviews by username from DB",
			slog.String("username", username), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list reviews by username: %w", err)
	}
	return reviews, nil
}
