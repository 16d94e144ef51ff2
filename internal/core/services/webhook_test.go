package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driven/mocks"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driving"
)

type recordingSync struct {
	kinds []domain.SyncKind
	opts  []driving.TriggerOptions
}

func (r *recordingSync) Trigger(ctx context.Context, kind domain.SyncKind, opts driving.TriggerOptions) *domain.SyncTriggerResult {
	r.kinds = append(r.kinds, kind)
	r.opts = append(r.opts, opts)
	return &domain.SyncTriggerResult{Status: domain.TriggerStatusStarted, Kind: kind}
}

func (r *recordingSync) Status() domain.SyncStatusReport { return domain.SyncStatusReport{} }

func (r *recordingSync) ListRuns(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	return nil, nil
}

func newTestWebhookService(t *testing.T, token string) (*WebhookService, *mocks.MockDriveClient, *mocks.MockKeyValueStore, *recordingSync) {
	t.Helper()
	drive := mocks.NewMockDriveClient()
	drive.StartToken = "start-9"
	kv := mocks.NewMockKeyValueStore()
	syncer := &recordingSync{}
	svc := NewWebhookService(WebhookServiceConfig{
		Drive:       drive,
		KV:          kv,
		CallbackURL: "https://stickers.example.org/api/v1/webhooks/drive",
		Token:       token,
	})
	svc.SetSyncService(syncer)
	return svc, drive, kv, syncer
}

func TestWebhookService_Register(t *testing.T) {
	svc, drive, _, _ := newTestWebhookService(t, "secret")

	channel, err := svc.Register(context.Background())
	require.NoError(t, err)
	require.Len(t, drive.Watches, 1)

	req := drive.Watches[0]
	assert.Equal(t, "start-9", req.PageToken, "no cursor yet, so the start token is used")
	assert.Equal(t, "secret", req.Token)
	assert.Equal(t, channel.ID, req.ChannelID)

	current, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, channel.ID, current.ID)
	assert.Equal(t, "resource-"+channel.ID, current.ResourceID)
}

func TestWebhookService_RegisterUsesCursorAndStopsPrevious(t *testing.T) {
	svc, drive, kv, _ := newTestWebhookService(t, "")
	require.NoError(t, kv.Set(context.Background(), domain.CursorKeyChanges, "cursor-5"))

	first, err := svc.Register(context.Background())
	require.NoError(t, err)
	second, err := svc.Register(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "cursor-5", drive.Watches[1].PageToken)
	assert.Equal(t, []string{first.ID}, drive.Stopped)

	current, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)
}

func TestWebhookService_RegisterRequiresCallback(t *testing.T) {
	svc := NewWebhookService(WebhookServiceConfig{
		Drive: mocks.NewMockDriveClient(),
		KV:    mocks.NewMockKeyValueStore(),
	})

	_, err := svc.Register(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestWebhookService_RegisterWatchFailure(t *testing.T) {
	svc, drive, _, _ := newTestWebhookService(t, "")
	drive.WatchErr = errors.New("unauthorized webhook domain")

	_, err := svc.Register(context.Background())
	require.Error(t, err)

	_, err = svc.Current(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWebhookService_SyncHandshakeIsAcknowledged(t *testing.T) {
	svc, _, _, syncer := newTestWebhookService(t, "secret")

	outcome, err := svc.HandleNotification(context.Background(), domain.WebhookNotification{
		ChannelID:     "ch-1",
		ResourceState: domain.ResourceStateSync,
		Token:         "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, WebhookAcknowledged, outcome.Status)
	assert.Empty(t, syncer.kinds)
}

func TestWebhookService_ChangeTriggersIncrementalSync(t *testing.T) {
	svc, _, _, syncer := newTestWebhookService(t, "secret")

	outcome, err := svc.HandleNotification(context.Background(), domain.WebhookNotification{
		ChannelID:     "ch-1",
		ResourceState: domain.ResourceStateChange,
		Token:         "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, WebhookTriggered, outcome.Status)
	require.NotNil(t, outcome.Sync)
	assert.Equal(t, []domain.SyncKind{domain.SyncKindIncremental}, syncer.kinds)
	assert.True(t, syncer.opts[0].Async)
}

func TestWebhookService_RejectsBadToken(t *testing.T) {
	svc, _, _, syncer := newTestWebhookService(t, "secret")

	_, err := svc.HandleNotification(context.Background(), domain.WebhookNotification{
		ResourceState: domain.ResourceStateChange,
		Token:         "guess",
	})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Empty(t, syncer.kinds)
}

func TestWebhookService_IgnoresStaleChannel(t *testing.T) {
	svc, _, _, syncer := newTestWebhookService(t, "")
	_, err := svc.Register(context.Background())
	require.NoError(t, err)

	outcome, err := svc.HandleNotification(context.Background(), domain.WebhookNotification{
		ChannelID:     "old-channel",
		ResourceState: domain.ResourceStateChange,
	})
	require.NoError(t, err)
	assert.Equal(t, WebhookIgnored, outcome.Status)
	assert.Empty(t, syncer.kinds)
}
