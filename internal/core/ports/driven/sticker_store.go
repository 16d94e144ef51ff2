package driven

import (
	"context"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
)

// StickerStore handles sticker persistence (PostgreSQL)
type StickerStore interface {
	// Save creates or updates a sticker
	Save(ctx context.Context, s *domain.Sticker) error

	// Get retrieves a sticker by ID
	Get(ctx context.Context, id string) (*domain.Sticker, error)

	// GetByDriveFileID retrieves a sticker by its Drive file ID
	GetByDriveFileID(ctx context.Context, fileID string) (*domain.Sticker, error)

	// ListByCollection retrieves all stickers of a collection
	ListByCollection(ctx context.Context, collectionID string) ([]*domain.Sticker, error)

	// Delete deletes a sticker
	Delete(ctx context.Context, id string) error

	// DeleteBatch deletes multiple stickers by ID
	DeleteBatch(ctx context.Context, ids []string) error

	// DeleteByCollection deletes all stickers of a collection
	DeleteByCollection(ctx context.Context, collectionID string) (int, error)

	// Count returns total sticker count
	Count(ctx context.Context) (int, error)
}
