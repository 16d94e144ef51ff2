package driving

import (
	"context"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
)

// WebhookService handles Drive push notifications
type WebhookService interface {
	// HandleNotification validates a notification and triggers an incremental
	// sync for change events. The sync handshake is acknowledged without work.
	HandleNotification(ctx context.Context, n domain.WebhookNotification) (*domain.WebhookOutcome, error)

	// Register creates a new push channel, replacing any previous one.
	Register(ctx context.Context) (*domain.WebhookChannel, error)
}
