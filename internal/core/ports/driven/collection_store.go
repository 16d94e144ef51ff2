package driven

import (
	"context"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
)

// CollectionStore handles collection persistence (PostgreSQL)
type CollectionStore interface {
	// Save creates or updates a collection
	Save(ctx context.Context, c *domain.Collection) error

	// Get retrieves a collection by ID
	Get(ctx context.Context, id string) (*domain.Collection, error)

	// GetByDriveFolderID retrieves a collection by its Drive folder ID
	GetByDriveFolderID(ctx context.Context, folderID string) (*domain.Collection, error)

	// GetBySlug retrieves a collection by slug
	GetBySlug(ctx context.Context, slug string) (*domain.Collection, error)

	// List retrieves all collections ordered by sort order
	List(ctx context.Context) ([]*domain.Collection, error)

	// Delete deletes a collection
	Delete(ctx context.Context, id string) error

	// Count returns total collection count
	Count(ctx context.Context) (int, error)
}
