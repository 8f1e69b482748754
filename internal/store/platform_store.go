package store

import (
	"context"
	"errors"

	"streamreview/internal/domain"
)

var ErrPlatformNotFound = errors.New("platform not found")

// PlatformStore defines the interface for streaming platform persistence.
// Delete removes the platform together with its movies and their reviews in
// one transaction; there is no foreign-key cascade to lean on.
type PlatformStore interface {
	Create(ctx context.Context, platform *domain.Platform) error
	GetByID(ctx context.Context, platformID string) (*domain.Platform, error)
	List(ctx context.Context) ([]*domain.Platform, error)
	Update(ctx context.Context, platform *domain.Platform) error
	Delete(ctx context.Context, platformID string) error
}
