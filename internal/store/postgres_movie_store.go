package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"streamreview/internal/cache"
	"streamreview/internal/domain"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresMovieStore implements MovieStore for PostgreSQL. Single-movie reads
// go through the cache; every write invalidates the movie's cache entry.
type PostgresMovieStore struct {
	db     *sqlx.DB
	cache  *cache.Cache
	logger *slog.Logger
}

// NewPostgresMovieStore creates a new PostgresMovieStore. db must already be
// connected.
func NewPostgresMovieStore(db *sqlx.DB, c *cache.Cache, logger *slog.Logger) (*PostgresMovieStore, error) {
	if db == nil {
		return nil, errors.New("database connection (db) cannot be nil for PostgresMovieStore")
	}
	return &PostgresMovieStore{db: db, cache: c, logger: logger}, nil
}

func movieCacheKey(movieID string) string {
	return "movie:" + movieID
}

// Create inserts a new movie. A foreign-key violation on platform_id is
// reported as ErrPlatformNotFound.
func (s *PostgresMovieStore) Create(ctx context.Context, movie *domain.Movie) error {
	query := `INSERT INTO movies (id, title, storyline, platform_id, active, avg_rating, number_rating)
              VALUES ($1, $2, $3, $4, $5, $6, $7)`

	s.logger.DebugContext(ctx, "Executing Create movie query",
		slog.String("movieID", movie.ID), slog.String("title", movie.Title))

	_, err := s.db.ExecContext(ctx, query,
		movie.ID, movie.Title, movie.Storyline, movie.PlatformID,
		movie.Active, movie.AvgRating, movie.NumberRating,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" { // foreign_key_violation
			s.logger.WarnContext(ctx, "Movie references unknown platform",
				slog.String("platformID", movie.PlatformID))
			return ErrPlatformNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to create movie in DB", slog.String("error", err.Error()))
		return fmt.Errorf("failed to create movie: %w", err)
	}
	s.logger.InfoContext(ctx, "Movie created successfully in DB", slog.String("movieID", movie.ID))
	return nil
}

// GetByID finds a movie by id, cache-aside.
func (s *PostgresMovieStore) GetByID(ctx context.Context, movieID string) (*domain.Movie, error) {
	var cached domain.Movie
	if s.cache.Get(ctx, movieCacheKey(movieID), &cached) {
		return &cached, nil
	}

	query := `SELECT id, title, storyline, platform_id, active, avg_rating, number_rating
              FROM movies WHERE id = $1`
	var movie domain.Movie

	err := s.db.GetContext(ctx, &movie, query, movieID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.WarnContext(ctx, "Movie not found by ID in DB", slog.String("movieID", movieID))
			return nil, ErrMovieNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to get movie by ID from DB",
			slog.String("movieID", movieID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get movie by ID: %w", err)
	}

	s.cache.Set(ctx, movieCacheKey(movieID), &movie)
	return &movie, nil
}

// List returns a window of movies ordered by title. It fetches limit+1 rows to
// detect whether more pages exist past the window.
func (s *PostgresMovieStore) List(ctx context.Context, params MovieListParams) ([]*domain.Movie, bool, error) {
	selectQuery := `SELECT id, title, storyline, platform_id, active, avg_rating, number_rating
                    FROM movies WHERE 1=1`

	var args []interface{}
	var conditions []string
	argID := 1

	if params.PlatformID != "" {
		conditions = append(conditions, fmt.Sprintf("platform_id = $%d", argID))
		args = append(args, params.PlatformID)
		argID++
	}
	if params.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", argID))
		args = append(args, *params.Active)
		argID++
	}
	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR storyline ILIKE $%d)", argID, argID))
		args = append(args, "%"+params.Search+"%")
		argID++
	}

	if len(conditions) > 0 {
		selectQuery += " AND " + strings.Join(conditions, " AND ")
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 10
	}
	selectQuery += fmt.Sprintf(" ORDER BY title ASC LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, limit+1, params.Offset)

	s.logger.DebugContext(ctx, "Executing List movies query",
		slog.String("query", selectQuery), slog.Any("args", args))

	movies := []*domain.Movie{}
	if err := s.db.SelectContext(ctx, &movies, selectQuery, args...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list movies from DB", slog.String("error", err.Error()))
		return nil, false, fmt.Errorf("failed to list movies: %w", err)
	}

	hasMore := len(movies) > limit
	if hasMore {
		movies = movies[:limit]
	}
	return movies, hasMore, nil
}

// ListByPlatformID returns every movie on the platform, for nested platform
// representations.
func (s *PostgresMovieStore) ListByPlatformID(ctx context.Context, platformID string) ([]*domain.Movie, error) {
	query := `SELECT id, title, storyline, platform_id, active, avg_rating, number_rating
              FROM movies WHERE platform_id = $1 ORDER BY title ASC`

	movies := []*domain.Movie{}
	if err := s.db.SelectContext(ctx, &movies, query, platformID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list movies by platform from DB",
			slog.String("platformID", platformID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list movies by platform: %w", err)
	}
	return movies, nil
}

// Update overwrites a movie's descriptive fields. Rating statistics are owned
// by the review submission protocol and are not written here.
func (s *PostgresMovieStore) Update(ctx context.Context, movie *domain.Movie) error {
	query := `UPDATE movies SET title = $1, storyline = $2, platform_id = $3, active = $4 WHERE id = $5`

	result, err := s.db.ExecContext(ctx, query,
		movie.Title, movie.Storyline, movie.PlatformID, movie.Active, movie.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" { // foreign_key_violation
			return ErrPlatformNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to update movie in DB",
			slog.String("movieID", movie.ID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to update movie: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check movie update result: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMovieNotFound
	}

	s.cache.Invalidate(ctx, movieCacheKey(movie.ID))
	s.logger.InfoContext(ctx, "Movie updated successfully in DB", slog.String("movieID", movie.ID))
	return nil
}

// Delete removes the movie and its reviews in one transaction.
func (s *PostgresMovieStore) Delete(ctx context.Context, movieID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin movie delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reviews WHERE movie_id = $1`, movieID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete reviews for movie delete",
			slog.String("movieID", movieID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete movie reviews: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM movies WHERE id = $1`, movieID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete movie from DB",
			slog.String("movieID", movieID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete movie: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check movie delete result: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMovieNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit movie delete transaction: %w", err)
	}

	s.cache.Invalidate(ctx, movieCacheKey(movieID))
	s.logger.InfoContext(ctx, "Movie deleted with cascading reviews", slog.String("movieID", movieID))
	return nil
}
