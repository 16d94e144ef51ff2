package driving

import (
	"context"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
)

// ImageService resolves Drive file ids to image bytes
type ImageService interface {
	// Resolve never fails: when every strategy misses it returns a placeholder.
	Resolve(ctx context.Context, fileID string, size int) *domain.ImageResult

	// ClearCache drops every cached image and returns how many were removed.
	ClearCache() int
}
