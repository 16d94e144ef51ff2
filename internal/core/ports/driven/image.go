package driven

import (
	"context"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
)

// ImageStrategy is one way of turning a Drive file id into image bytes.
// Implementations return domain.ErrInvalidImage (wrapped) when the upstream
// answered with something that is not an image.
type ImageStrategy interface {
	// Name identifies the strategy in logs, metrics and response headers.
	Name() string

	// Attempt tries to resolve the file at the requested size (0 = default).
	Attempt(ctx context.Context, fileID string, size int) (*domain.ImageResult, error)
}

// ImageCache is a bounded, time-limited cache of validated image bytes.
type ImageCache interface {
	Get(key string) (*domain.ImageResult, bool)
	Set(key string, result *domain.ImageResult)
	// Clear removes every entry and returns how many were removed.
	Clear() int
	// Prune removes expired entries and returns how many were removed.
	Prune() int
	Len() int
}

// BlobStore is a plain object store used to mirror resolved originals.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, string, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
}
