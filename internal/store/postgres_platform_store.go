package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"streamreview/internal/cache"
	"streamreview/internal/domain"

	"github.com/jmoiron/sqlx"
)

// PostgresPlatformStore implements PlatformStore for PostgreSQL.
type PostgresPlatformStore struct {
	db     *sqlx.DB
	cache  *cache.Cache
	logger *slog.Logger
}

// NewPostgresPlatformStore creates a new PostgresPlatformStore. db must
// already be connected; c may be nil-backed to disable caching.
func NewPostgresPlatformStore(db *sqlx.DB, c *cache.Cache, logger *slog.Logger) (*PostgresPlatformStore, error) {
	if db == nil {
		return nil, errors.New("database connection (db) cannot be nil for PostgresPlatformStore")
	}
	return &PostgresPlatformStore{db: db, cache: c, logger: logger}, nil
}

// Create inserts a new platform.
func (s *PostgresPlatformStore) Create(ctx context.Context, platform *domain.Platform) error {
	query := `INSERT INTO platforms (id, name, about, website) VALUES ($1, $2, $3, $4)`

	s.logger.DebugContext(ctx, "Executing Create platform query",
		slog.String("platformID", platform.ID), slog.String("name", platform.Name))

	_, err := s.db.ExecContext(ctx, query, platform.ID, platform.Name, platform.About, platform.Website)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to create platform in DB", slog.String("error", err.Error()))
		return fmt.Errorf("failed to create platform: %w", err)
	}
	s.logger.InfoContext(ctx, "Platform created successfully in DB", slog.String("platformID", platform.ID))
	return nil
}

// GetByID finds a platform by id.
func (s *PostgresPlatformStore) GetByID(ctx context.Context, platformID string) (*domain.Platform, error) {
	query := `SELECT id, name, about, website FROM platforms WHERE id = $1`
	var platform domain.Platform

	err := s.db.GetContext(ctx, &platform, query, platformID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.WarnContext(ctx, "Platform not found by ID in DB", slog.String("platformID", platformID))
			return nil, ErrPlatformNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to get platform by ID from DB",
			slog.String("platformID", platformID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get platform by ID: %w", err)
	}
	return &platform, nil
}

// List returns all platforms ordered by name.
func (s *PostgresPlatformStore) List(ctx context.Context) ([]*domain.Platform, error) {
	query := `SELECT id, name, about, website FROM platforms ORDER BY name ASC`

	platforms := []*domain.Platform{}
	if err := s.db.SelectContext(ctx, &platforms, query); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list platforms from DB", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list platforms: %w", err)
	}
	return platforms, nil
}

// Update overwrites a platform's fields.
func (s *PostgresPlatformStore) Update(ctx context.Context, platform *domain.Platform) error {
	query := `UPDATE platforms SET name = $1, about = $2, website = $3 WHERE id = $4`

	result, err := s.db.ExecContext(ctx, query, platform.Name, platform.About, platform.Website, platform.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to update platform in DB",
			slog.String("platformID", platform.ID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to update platform: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check platform update result: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPlatformNotFound
	}
	s.logger.InfoContext(ctx, "Platform updated successfully in DB", slog.String("platformID", platform.ID))
	return nil
}

// Delete removes the platform, its movies and their reviews in one
// transaction. The cascade is explicit: dependent rows are enumerated and
// deleted bottom-up before the platform row itself.
func (s *PostgresPlatformStore) Delete(ctx context.Context, platformID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin platform delete transaction: %w", err)
	}
	defer tx.Rollback()

	var movieIDs []string
	if err := tx.SelectContext(ctx, &movieIDs,
		`SELECT id FROM movies WHERE platform_id = $1`, platformID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to enumerate movies for platform delete",
			slog.String("platformID", platformID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to enumerate platform movies: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM reviews WHERE movie_id IN (SELECT id FROM movies WHERE platform_id = $1)`,
		platformID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete reviews for platform delete",
			slog.String("platformID", platformID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete platform reviews: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM movies WHERE platform_id = $1`, platformID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete movies for platform delete",
			slog.String("platformID", platformID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete platform movies: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM platforms WHERE id = $1`, platformID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete platform from DB",
			slog.String("platformID", platformID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete platform: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check platform delete result: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPlatformNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit platform delete transaction: %w", err)
	}

	cacheKeys := make([]string, 0, len(movieIDs))
	for _, id := range movieIDs {
		cacheKeys = append(cacheKeys, movieCacheKey(id))
	}
	s.cache.Invalidate(ctx, cacheKeys...)

	s.logger.InfoContext(ctx, "Platform deleted with cascading movies and reviews",
		slog.String("platformID", platformID), slog.Int("movies_removed", len(movieIDs)))
	return nil
}
