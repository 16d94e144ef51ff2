package services

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driven"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driving"
)

// Webhook outcome statuses
const (
	WebhookAcknowledged = "acknowledged"
	WebhookIgnored      = "ignored"
	WebhookTriggered    = "triggered"
)

// Verify interface compliance
var (
	_ driving.WebhookService = (*WebhookService)(nil)
	_ WebhookRegistrar       = (*WebhookService)(nil)
)

// WebhookService registers Drive push channels and turns change
// notifications into incremental syncs.
type WebhookService struct {
	drive       driven.DriveClient
	kv          driven.KeyValueStore
	sync        driving.SyncService
	callbackURL string
	token       string
	ttl         time.Duration
	logger      *slog.Logger
}

// WebhookServiceConfig holds dependencies for WebhookService.
type WebhookServiceConfig struct {
	Drive       driven.DriveClient
	KV          driven.KeyValueStore
	CallbackURL string        // public URL of the webhook endpoint
	Token       string        // shared secret echoed by Drive in X-Goog-Channel-Token
	TTL         time.Duration // requested channel lifetime (default: 24h)
	Logger      *slog.Logger
}

// NewWebhookService creates a new WebhookService. The sync service is
// attached later with SetSyncService because it depends on the registrar.
func NewWebhookService(cfg WebhookServiceConfig) *WebhookService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	return &WebhookService{
		drive:       cfg.Drive,
		kv:          cfg.KV,
		callbackURL: cfg.CallbackURL,
		token:       cfg.Token,
		ttl:         ttl,
		logger:      logger,
	}
}

// SetSyncService attaches the sync service used for change notifications.
func (s *WebhookService) SetSyncService(sync driving.SyncService) {
	s.sync = sync
}

// Register creates a push channel on the change feed and stores it,
// stopping the previously stored channel.
func (s *WebhookService) Register(ctx context.Context) (*domain.WebhookChannel, error) {
	if s.drive == nil || s.callbackURL == "" {
		return nil, fmt.Errorf("webhook callback url: %w", domain.ErrNotConfigured)
	}

	pageToken, err := s.kv.Get(ctx, domain.CursorKeyChanges)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("load change cursor: %w", err)
	}
	if pageToken == "" {
		if pageToken, err = s.drive.GetStartPageToken(ctx); err != nil {
			return nil, fmt.Errorf("get start page token: %w", err)
		}
	}

	previous, _ := s.Current(ctx)

	channel, err := s.drive.Watch(ctx, domain.WatchRequest{
		ChannelID:   domain.GenerateID(),
		CallbackURL: s.callbackURL,
		Token:       s.token,
		PageToken:   pageToken,
		TTL:         s.ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("watch changes: %w", err)
	}

	data, err := json.Marshal(channel)
	if err != nil {
		return nil, fmt.Errorf("encode channel: %w", err)
	}
	if err := s.kv.Set(ctx, domain.KeyWebhookChannel, string(data)); err != nil {
		return nil, fmt.Errorf("store channel: %w", err)
	}

	if previous != nil && previous.ID != channel.ID {
		if err := s.drive.StopChannel(ctx, previous.ID, previous.ResourceID); err != nil {
			s.logger.Warn("failed to stop previous webhook channel", "channel_id", previous.ID, "error", err)
		}
	}

	s.logger.Info("webhook channel registered",
		"channel_id", channel.ID,
		"expiration", channel.Expiration,
	)
	return channel, nil
}

// Current returns the stored channel, or ErrNotFound.
func (s *WebhookService) Current(ctx context.Context) (*domain.WebhookChannel, error) {
	raw, err := s.kv.Get(ctx, domain.KeyWebhookChannel)
	if err != nil {
		return nil, err
	}
	var channel domain.WebhookChannel
	if err := json.Unmarshal([]byte(raw), &channel); err != nil {
		return nil, fmt.Errorf("decode channel: %w", err)
	}
	return &channel, nil
}

// HandleNotification validates and dispatches a push notification.
func (s *WebhookService) HandleNotification(ctx context.Context, n domain.WebhookNotification) (*domain.WebhookOutcome, error) {
	if s.token != "" && subtle.ConstantTimeCompare([]byte(n.Token), []byte(s.token)) != 1 {
		return nil, domain.ErrUnauthorized
	}

	if current, err := s.Current(ctx); err == nil && n.ChannelID != "" && current.ID != n.ChannelID {
		s.logger.Debug("ignoring notification for stale channel", "channel_id", n.ChannelID)
		return &domain.WebhookOutcome{Status: WebhookIgnored}, nil
	}

	if n.ResourceState == domain.ResourceStateSync {
		s.logger.Info("webhook channel handshake", "channel_id", n.ChannelID)
		return &domain.WebhookOutcome{Status: WebhookAcknowledged}, nil
	}

	if s.sync == nil {
		return nil, fmt.Errorf("sync service: %w", domain.ErrNotConfigured)
	}

	s.logger.Info("webhook change notification",
		"channel_id", n.ChannelID,
		"resource_state", n.ResourceState,
		"message_number", n.MessageNumber,
	)
	result := s.sync.Trigger(ctx, domain.SyncKindIncremental, driving.TriggerOptions{Async: true})
	return &domain.WebhookOutcome{Status: WebhookTriggered, Sync: result}, nil
}
