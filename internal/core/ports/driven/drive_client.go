package driven

import (
	"context"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
)

// DriveClient wraps the external file-storage API.
// Any call may fail transiently (network, rate limit) or permanently
// (bad id, permission denied); callers retry with backoff.
type DriveClient interface {
	// ListFolders returns non-trashed folder children of parentID.
	ListFolders(ctx context.Context, parentID string) ([]domain.DriveFolder, error)

	// ListFiles returns non-trashed image children of folderID.
	ListFiles(ctx context.Context, folderID string) ([]domain.DriveFile, error)

	// FetchBytes downloads the full content of a file.
	FetchBytes(ctx context.Context, fileID string) ([]byte, error)

	// GetStartPageToken returns the baseline change-feed token.
	GetStartPageToken(ctx context.Context) (string, error)

	// ListChanges returns one page of the change feed starting at token.
	ListChanges(ctx context.Context, token string) (*domain.ChangesPage, error)

	// Watch registers a push-notification channel for the change feed.
	Watch(ctx context.Context, req domain.WatchRequest) (*domain.WebhookChannel, error)

	// StopChannel stops a previously registered channel.
	StopChannel(ctx context.Context, channelID, resourceID string) error
}
